// Package pipeline 定义了语料构建的核心流程：并发抽取网页正文，再切分为分块。
package pipeline

import (
	"context"
	"fmt"
	"unicode/utf8"

	"guia-turismo-go/internal/model"
	"guia-turismo-go/pkg/extract"
	"guia-turismo-go/pkg/log"

	"golang.org/x/sync/errgroup"
)

// Corpus 是一次构建得到的文档与分块，分块顺序与输入 URL 顺序一致。
type Corpus struct {
	Documents []model.Document
	Chunks    []model.Chunk
}

// Texts 返回所有分块的文本。
func (c *Corpus) Texts() []string {
	texts := make([]string, len(c.Chunks))
	for i, ch := range c.Chunks {
		texts[i] = ch.Text
	}
	return texts
}

// Processor 封装了语料构建的所有依赖和逻辑。
type Processor struct {
	extractor extract.Extractor
	splitter  *Splitter
	workers   int
	maxChars  int
}

// NewProcessor 创建一个新的 Processor 实例。workers <= 0 时串行抽取。
func NewProcessor(extractor extract.Extractor, splitter *Splitter, workers, maxChars int) *Processor {
	if workers <= 0 {
		workers = 1
	}
	return &Processor{
		extractor: extractor,
		splitter:  splitter,
		workers:   workers,
		maxChars:  maxChars,
	}
}

// Process 是语料构建的主函数。单个 URL 抽取失败只会被跳过；只有 ctx 被取消时才返回错误。
func (p *Processor) Process(ctx context.Context, urls []string) (*Corpus, error) {
	log.Infof("[Processor] 开始构建语料, URL 数量: %d, 并发度: %d", len(urls), p.workers)

	// 1. 并发抽取正文，结果按下标写回，保证顺序
	texts := make([]string, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, u := range urls {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, err := p.extractor.Extract(gctx, u, p.maxChars)
			if err != nil {
				log.Warnw("[Processor] 跳过 URL", "url", u, "error", err)
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("语料构建被中断: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("语料构建被中断: %w", err)
	}

	// 2. 跳过空结果，切分为分块
	corpus := &Corpus{}
	for i, text := range texts {
		if text == "" {
			continue
		}
		corpus.Documents = append(corpus.Documents, model.Document{URL: urls[i], Text: text})
		for j, chunk := range p.splitter.Split(text) {
			corpus.Chunks = append(corpus.Chunks, model.Chunk{URL: urls[i], Index: j, Text: chunk})
		}
		log.Debugf("[Processor] 文档抽取完成, url: %s, 长度: %d", urls[i], utf8.RuneCountInString(text))
	}

	log.Infof("[Processor] 语料构建完成, 有效文档: %d/%d, 分块: %d", len(corpus.Documents), len(urls), len(corpus.Chunks))
	return corpus, nil
}
