// Package extract 抓取单个网页并抽取其正文的纯文本。
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"guia-turismo-go/internal/config"
	"guia-turismo-go/pkg/log"
	"guia-turismo-go/pkg/tika"
	"guia-turismo-go/pkg/useragent"

	"golang.org/x/time/rate"
)

const maxBodyBytes = 10 << 20

var (
	// ErrEmptyContent 表示页面可以访问但没有可用的正文。
	ErrEmptyContent = errors.New("no readable content")
	// ErrUnsupportedContent 表示页面类型既不是 HTML/纯文本，也没有配置 Tika。
	ErrUnsupportedContent = errors.New("unsupported content type")
)

// Extractor 定义了正文抽取的接口。
// 失败时返回空字符串和错误；实现保证不会 panic。
type Extractor interface {
	Extract(ctx context.Context, pageURL string, maxChars int) (string, error)
}

// Client 是基于 HTTP 的 Extractor 实现。
type Client struct {
	client         *http.Client
	referer        string
	acceptLanguage string
	readability    bool
	limiter        *rate.Limiter
	tika           *tika.Client
}

// NewClient 创建一个正文抽取客户端；tikaClient 可以为 nil。
func NewClient(cfg config.ExtractConfig, tikaClient *tika.Client) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		client:         &http.Client{Timeout: timeout},
		referer:        cfg.Referer,
		acceptLanguage: cfg.AcceptLanguage,
		readability:    cfg.Readability,
		tika:           tikaClient,
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

// Extract 下载页面并返回正文，maxChars > 0 时截断并追加 "..."。
func (c *Client) Extract(ctx context.Context, pageURL string, maxChars int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("panic while extracting %s: %v", pageURL, r)
		}
		if err != nil {
			log.Warnf("[Extractor] 抽取正文失败, url: %s, error: %v", pageURL, err)
		}
	}()

	log.Debugf("[Extractor] 开始抽取正文, url: %s", pageURL)
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	body, contentType, err := c.fetch(ctx, pageURL)
	if err != nil {
		return "", err
	}

	raw, err := c.toText(ctx, pageURL, body, contentType)
	if err != nil {
		return "", err
	}

	text = CollapseWhitespace(raw)
	if text == "" {
		return "", ErrEmptyContent
	}
	log.Debugf("[Extractor] 正文抽取成功, url: %s, 长度: %d", pageURL, len([]rune(text)))
	return Truncate(text, maxChars), nil
}

func (c *Client) fetch(ctx context.Context, pageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create page request: %w", err)
	}
	req.Header.Set("User-Agent", useragent.Random())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	if c.acceptLanguage != "" {
		req.Header.Set("Accept-Language", c.acceptLanguage)
	}
	if c.referer != "" {
		req.Header.Set("Referer", c.referer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("page returned non-2xx status: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read page body: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// toText 根据 Content-Type 选择抽取方式。
func (c *Client) toText(ctx context.Context, pageURL string, body []byte, contentType string) (string, error) {
	mediaType := ""
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			mediaType = mt
		}
	}

	switch {
	case mediaType == "" || mediaType == "text/html" || mediaType == "application/xhtml+xml":
		return FromHTML(body, c.readability)
	case mediaType == "text/plain":
		return string(body), nil
	case c.tika != nil:
		if mediaType == "application/octet-stream" {
			if u, err := url.Parse(pageURL); err == nil {
				mediaType = tika.DetectMimeType(u.Path)
			}
		}
		return c.tika.ExtractText(ctx, bytes.NewReader(body), mediaType)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedContent, mediaType)
	}
}

// Truncate 按字符（rune）截断文本，发生截断时追加 "..."。
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars]) + "..."
}

// CollapseWhitespace 把每行内的连续空白压缩为单个空格，去掉首尾空白，
// 并把连续的空行合并为一个段落分隔（"\n\n"）。
func CollapseWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var b strings.Builder
	blank := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank = b.Len() > 0
			continue
		}
		if b.Len() > 0 {
			if blank {
				b.WriteString("\n\n")
			} else {
				b.WriteString("\n")
			}
		}
		b.WriteString(line)
		blank = false
	}
	return b.String()
}
