package extract

import (
	"bytes"
	"strings"

	"code.sajari.com/docconv/v2"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// 这些元素一般是导航、脚本等样板内容，不属于正文。
const boilerplateSelector = "script, style, noscript, nav, header, footer, aside, form, iframe, svg, template"

// 遍历时在这些元素前后插入段落分隔，保持正文的段落结构。
var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "ul": true, "ol": true, "table": true, "tr": true,
	"blockquote": true, "pre": true, "br": true, "dd": true, "dt": true,
}

// FromHTML 从 HTML 中抽取正文文本。
// readability 为 true 时优先使用 docconv 的可读性算法，结果为空或出错时回退到基于 goquery 的清洗。
func FromHTML(raw []byte, readability bool) (string, error) {
	if readability {
		text, _, err := docconv.ConvertHTML(bytes.NewReader(raw), true)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
	}
	return stripMarkup(raw)
}

func stripMarkup(raw []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	doc.Find(boilerplateSelector).Remove()

	root := doc.Find("article").First()
	if root.Length() == 0 || strings.TrimSpace(root.Text()) == "" {
		root = doc.Find("main").First()
	}
	if root.Length() == 0 || strings.TrimSpace(root.Text()) == "" {
		root = doc.Find("body").First()
	}
	if root.Length() == 0 {
		root = doc.Selection
	}

	var b strings.Builder
	for _, n := range root.Nodes {
		writeText(&b, n)
	}
	return b.String(), nil
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		b.WriteString(" ")
		return
	case html.CommentNode:
		return
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		b.WriteString("\n\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteString("\n\n")
	}
}
