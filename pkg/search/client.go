// Package search 向公共搜索引擎发起查询并提取去重后的结果链接。
package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"guia-turismo-go/internal/config"
	"guia-turismo-go/pkg/log"
	"guia-turismo-go/pkg/retry"
	"guia-turismo-go/pkg/useragent"

	"github.com/PuerkitoBio/goquery"
)

// ErrExhausted 表示重试次数用尽仍未拿到结果。
var ErrExhausted = retry.ErrExhausted

// Client 定义了搜索客户端的接口。
// 返回的 URL 保持搜索引擎给出的顺序、不含重复，长度不超过 maxResults。
// 重试用尽时返回空切片和一个包装了 ErrExhausted 的错误，调用方可以据此降级。
type Client interface {
	Search(ctx context.Context, query string, maxResults int) ([]string, error)
}

// NewClient 根据配置中的 provider 创建搜索客户端。
func NewClient(cfg config.SearchConfig) Client {
	policy := PolicyFromConfig(cfg.Retry)
	switch strings.ToLower(cfg.Provider) {
	case "searxng":
		return NewSearxng(cfg.SearxngURL, cfg.Timeout, policy)
	default:
		return NewDuckDuckGo(cfg.Endpoint, cfg.Timeout, policy)
	}
}

// PolicyFromConfig 把配置转换为重试策略，并挂上日志回调。
func PolicyFromConfig(cfg config.RetryConfig) retry.Policy {
	return retry.Policy{
		MaxAttempts: cfg.MaxAttempts,
		MinBackoff:  cfg.MinBackoff,
		MaxBackoff:  cfg.MaxBackoff,
		OnRetry: func(attempt int, wait time.Duration, err error) {
			log.Warnf("[SearchClient] 连接出错, 第 %d 次尝试失败, 等待 %.2f 秒后重试: %v", attempt, wait.Seconds(), err)
		},
	}
}

type duckDuckGoClient struct {
	endpoint string
	client   *http.Client
	policy   retry.Policy
}

// NewDuckDuckGo 创建一个抓取 DuckDuckGo HTML 结果页的客户端。
func NewDuckDuckGo(endpoint string, timeout time.Duration, policy retry.Policy) Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &duckDuckGoClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		policy:   policy,
	}
}

// Search 以表单 POST 方式提交查询，失败时按策略重试。
func (c *duckDuckGoClient) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	var links []string
	err := c.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		log.Debugf("[SearchClient] 发起搜索请求: %s (attempt=%d)", c.endpoint, attempt)
		body, err := c.post(ctx, query)
		if err != nil {
			return err
		}
		defer body.Close()

		parsed, err := ParseLinks(body, maxResults)
		if err != nil {
			return retry.Permanent(err)
		}
		links = parsed
		return nil
	})
	if err != nil {
		log.Errorf("[SearchClient] 搜索失败, query: '%s', error: %v", query, err)
		return []string{}, err
	}

	if len(links) == 0 {
		log.Debugf("[SearchClient] 没有找到任何链接, query: '%s'", query)
	} else {
		log.Debugf("[SearchClient] 找到 %d 个链接, query: '%s'", len(links), query)
	}
	return links, nil
}

func (c *duckDuckGoClient) post(ctx context.Context, query string) (io.ReadCloser, error) {
	form := strings.NewReader(url.Values{"q": {query}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, form)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to create search request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", useragent.Random())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call search endpoint: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("search endpoint returned non-2xx status: %s", resp.Status)
	}
	return resp.Body, nil
}

// ParseLinks 从结果页 HTML 中抽取以 http:// 或 https:// 开头的锚点链接。
// 保留首次出现的顺序并去重；maxResults <= 0 表示不截断。
func ParseLinks(r io.Reader, maxResults int) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search result page: %w", err)
	}

	var hrefs []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		hrefs = append(hrefs, href)
	})
	return collect(hrefs, maxResults), nil
}

// collect 过滤、去重并截断链接列表。
func collect(candidates []string, maxResults int) []string {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, u := range candidates {
		if !strings.HasPrefix(u, "https://") && !strings.HasPrefix(u, "http://") {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
		if maxResults > 0 && len(out) == maxResults {
			break
		}
	}
	return out
}
