package service

import (
	"context"
	"errors"
	"strings"

	"guia-turismo-go/pkg/log"
)

// ErrArchiveDisabled 表示未启用 Elasticsearch 归档。
var ErrArchiveDisabled = errors.New("corpus archive disabled")

// ArchiveSearcher 是按地点检索归档分块的能力，es.SearchByLocation 满足它。
type ArchiveSearcher func(ctx context.Context, indexName, location string, size int) ([]string, error)

// CorpusService 查询归档的语料：按 localizacao 匹配，返回 conteudo 以空格拼接的上下文。
type CorpusService interface {
	Lookup(ctx context.Context, location string) (string, error)
}

type corpusService struct {
	search          ArchiveSearcher
	indexName       string
	maxContextChars int
}

// NewCorpusService 创建一个新的 CorpusService。search 为 nil 时所有查询返回 ErrArchiveDisabled。
func NewCorpusService(search ArchiveSearcher, indexName string, maxContextChars int) CorpusService {
	return &corpusService{search: search, indexName: indexName, maxContextChars: maxContextChars}
}

func (s *corpusService) Lookup(ctx context.Context, location string) (string, error) {
	if s.search == nil {
		return "", ErrArchiveDisabled
	}
	location = strings.TrimSpace(location)
	log.Infof("[CorpusService] 查询归档上下文, location: %s", location)
	contents, err := s.search(ctx, s.indexName, location, 10)
	if err != nil {
		log.Errorf("[CorpusService] 查询归档失败, location: %s, error: %v", location, err)
		return "", err
	}
	return AssembleContext(contents, s.maxContextChars), nil
}
