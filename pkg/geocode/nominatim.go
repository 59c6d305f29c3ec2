// Package geocode 通过 Nominatim 把地点名解析为坐标与可选的 GeoJSON 轮廓。
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"guia-turismo-go/internal/config"
	"guia-turismo-go/pkg/log"
)

// ErrNotFound 表示地点没有任何匹配。
var ErrNotFound = errors.New("location not found")

// Place 是一次地理编码的结果。
type Place struct {
	Name        string
	DisplayName string
	Lat         float64
	Lon         float64
	GeoJSON     json.RawMessage // 可能为空
}

// Geocoder 定义了地理编码接口。
type Geocoder interface {
	Geocode(ctx context.Context, name string) (*Place, error)
}

// Client 是 Nominatim 的 HTTP 客户端。
type Client struct {
	baseURL      string
	countryCodes string
	userAgent    string
	client       *http.Client
}

// NewClient 创建一个新的 Nominatim 客户端。
func NewClient(cfg config.GeocodeConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		countryCodes: cfg.CountryCodes,
		userAgent:    cfg.UserAgent,
		client:       &http.Client{Timeout: timeout},
	}
}

type nominatimResult struct {
	Lat         string          `json:"lat"`
	Lon         string          `json:"lon"`
	DisplayName string          `json:"display_name"`
	GeoJSON     json.RawMessage `json:"geojson"`
}

// Geocode 查询第一个匹配的地点。没有匹配或返回非 200 时返回 ErrNotFound。
func (c *Client) Geocode(ctx context.Context, name string) (*Place, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNotFound
	}

	params := url.Values{}
	params.Set("q", name)
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("polygon_geojson", "1")
	if c.countryCodes != "" {
		params.Set("countrycodes", c.countryCodes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create geocode request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call nominatim: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warnf("[Geocoder] Nominatim 返回非 200 状态码: %s, q: %s", resp.Status, name)
		return nil, fmt.Errorf("%w: nominatim status %s", ErrNotFound, resp.Status)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode nominatim response: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}

	r := results[0]
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q: %w", r.Lat, err)
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q: %w", r.Lon, err)
	}

	place := &Place{Name: name, DisplayName: r.DisplayName, Lat: lat, Lon: lon}
	if len(r.GeoJSON) > 0 && string(r.GeoJSON) != "null" {
		place.GeoJSON = r.GeoJSON
	}
	log.Infof("[Geocoder] 地点解析成功, q: %s, lat: %f, lon: %f", name, lat, lon)
	return place, nil
}
