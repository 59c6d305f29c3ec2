package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"guia-turismo-go/pkg/log"
	"guia-turismo-go/pkg/retry"
	"guia-turismo-go/pkg/useragent"
)

type searxngClient struct {
	baseURL string
	client  *http.Client
	policy  retry.Policy
}

type searxngResponse struct {
	Results []struct {
		URL   string `json:"url"`
		Title string `json:"title"`
	} `json:"results"`
}

// NewSearxng 创建一个调用 SearXNG JSON 接口的客户端。
func NewSearxng(baseURL string, timeout time.Duration, policy retry.Policy) Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &searxngClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		policy:  policy,
	}
}

func (c *searxngClient) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	params := url.Values{
		"q":          {query},
		"format":     {"json"},
		"categories": {"general"},
		"safesearch": {"1"},
	}
	endpoint := c.baseURL + "/search?" + params.Encode()

	var links []string
	err := c.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return retry.Permanent(fmt.Errorf("failed to create searxng request: %w", err))
		}
		req.Header.Set("User-Agent", useragent.Random())
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to call searxng: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("searxng returned non-200 status: %s", resp.Status)
		}

		var body searxngResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return retry.Permanent(fmt.Errorf("failed to decode searxng response: %w", err))
		}
		urls := make([]string, 0, len(body.Results))
		for _, r := range body.Results {
			urls = append(urls, r.URL)
		}
		links = collect(urls, maxResults)
		return nil
	})
	if err != nil {
		log.Errorf("[SearchClient] SearXNG 搜索失败, query: '%s', error: %v", query, err)
		return []string{}, err
	}
	log.Debugf("[SearchClient] SearXNG 返回 %d 个链接, query: '%s'", len(links), query)
	return links, nil
}
