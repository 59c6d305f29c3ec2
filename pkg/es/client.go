// Package es 提供了与 Elasticsearch 交互的客户端功能：语料归档与按地点检索。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"guia-turismo-go/internal/config"
	"guia-turismo-go/internal/model"
	"guia-turismo-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"golang.org/x/crypto/blake2b"
)

var ESClient *elasticsearch.Client

// InitES 初始化 Elasticsearch 客户端
func InitES(esCfg config.ElasticsearchConfig) error {
	cfg := elasticsearch.Config{
		Addresses: strings.Split(esCfg.Addresses, ","),
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return err
	}
	ESClient = client
	return createIndexIfNotExists(esCfg.IndexName)
}

// createIndexIfNotExists 检查索引是否存在，如果不存在则创建它
func createIndexIfNotExists(indexName string) error {
	res, err := ESClient.Indices.Exists([]string{indexName})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	defer res.Body.Close()
	// 如果 res.StatusCode 是 200，说明索引已存在
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", indexName)
		return nil
	}
	// 如果 res.StatusCode 是 404，说明索引不存在，需要创建
	if res.StatusCode != http.StatusNotFound {
		log.Errorf("检查索引 '%s' 是否存在时收到意外的状态码: %d", indexName, res.StatusCode)
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	// 内容多为葡萄牙语，使用内置的 brazilian 分析器
	mapping := `{
		"mappings": {
			"properties": {
				"doc_id": { "type": "keyword" },
				"localizacao": {
					"type": "text",
					"analyzer": "brazilian",
					"fields": { "raw": { "type": "keyword" } }
				},
				"conteudo": { "type": "text", "analyzer": "brazilian" },
				"url": { "type": "keyword" },
				"chunk_index": { "type": "integer" },
				"indexed_at": { "type": "date" }
			}
		}
	}`

	created, err := ESClient.Indices.Create(
		indexName,
		ESClient.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", indexName, err)
		return err
	}
	defer created.Body.Close()
	if created.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", indexName, created.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", indexName)
	return nil
}

// DocumentID 为 (地点, URL, 分块序号) 生成确定性的文档 ID，重复归档会覆盖而不是追加。
func DocumentID(location, url string, chunkIndex int) string {
	sum := blake2b.Sum256([]byte(fmt.Sprintf("%s|%s|%d", strings.ToLower(strings.TrimSpace(location)), url, chunkIndex)))
	return hex.EncodeToString(sum[:16])
}

// IndexDocuments 使用 bulk API 批量写入归档文档。
func IndexDocuments(ctx context.Context, indexName string, docs []model.ArchiveDocument) error {
	if len(docs) == 0 {
		return nil
	}
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, doc := range docs {
		meta := map[string]map[string]string{"index": {"_index": indexName, "_id": doc.DocID}}
		if err := enc.Encode(meta); err != nil {
			return err
		}
		if err := enc.Encode(doc); err != nil {
			return err
		}
	}

	req := esapi.BulkRequest{
		Body:    &body,
		Refresh: "true",
	}
	res, err := req.Do(ctx, ESClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("批量索引文档到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to bulk index documents")
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if bulkResp.Errors {
		return errors.New("bulk response reported item errors")
	}
	return nil
}

// SearchByLocation 按 localizacao 字段 match 查询，返回 conteudo 列表。
func SearchByLocation(ctx context.Context, indexName, location string, size int) ([]string, error) {
	if size <= 0 {
		size = 10
	}
	query := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"match": map[string]interface{}{
				"localizacao": location,
			},
		},
		"sort": []interface{}{"_score", map[string]string{"chunk_index": "asc"}},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, err
	}

	res, err := ESClient.Search(
		ESClient.Search.WithContext(ctx),
		ESClient.Search.WithIndex(indexName),
		ESClient.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search error: %s", res.String())
	}

	var searchResp struct {
		Hits struct {
			Hits []struct {
				Source model.ArchiveDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	contents := make([]string, 0, len(searchResp.Hits.Hits))
	for _, hit := range searchResp.Hits.Hits {
		contents = append(contents, hit.Source.Conteudo)
	}
	return contents, nil
}
