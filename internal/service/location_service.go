package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"guia-turismo-go/internal/index"
	"guia-turismo-go/internal/model"
	"guia-turismo-go/internal/pipeline"
	"guia-turismo-go/internal/repository"
	"guia-turismo-go/pkg/geocode"
	"guia-turismo-go/pkg/log"
	"guia-turismo-go/pkg/mapview"
	"guia-turismo-go/pkg/search"
)

// ErrLocationNotFound 表示地理编码没有找到该地点。
var ErrLocationNotFound = errors.New("location not found")

// CorpusBuilder 把 URL 列表构建为语料。
type CorpusBuilder interface {
	Process(ctx context.Context, urls []string) (*pipeline.Corpus, error)
}

// LocationResult 是一次地点处理的结果。
type LocationResult struct {
	Location    string          `json:"location"`
	DisplayName string          `json:"displayName,omitempty"`
	Lat         float64         `json:"lat"`
	Lon         float64         `json:"lon"`
	Description string          `json:"description"`
	Status      pipeline.Status `json:"status"`
	URLCount    int             `json:"urlCount"`
	DocCount    int             `json:"docCount"`
	ChunkCount  int             `json:"chunkCount"`
}

// LocationService 编排一次地点处理：地理编码 -> 地图 -> 搜索 -> 语料 -> 重建索引 -> 描述。
type LocationService interface {
	Process(ctx context.Context, sess *Session, location string) (*LocationResult, error)
	// Close 等待后台写出（归档、快照、事件）完成。
	Close(ctx context.Context) error
}

type locationService struct {
	geocoder   geocode.Geocoder
	searcher   search.Client
	builder    CorpusBuilder
	answers    AnswerService
	auditRepo  repository.AuditRepository
	sinks      []CorpusSink
	maxResults int

	wg sync.WaitGroup
}

// NewLocationService 创建一个新的 LocationService 实例。sinks 可以为空。
func NewLocationService(
	geocoder geocode.Geocoder,
	searcher search.Client,
	builder CorpusBuilder,
	answers AnswerService,
	auditRepo repository.AuditRepository,
	maxResults int,
	sinks ...CorpusSink,
) LocationService {
	return &locationService{
		geocoder:   geocoder,
		searcher:   searcher,
		builder:    builder,
		answers:    answers,
		auditRepo:  auditRepo,
		sinks:      sinks,
		maxResults: maxResults,
	}
}

// SearchQuery 返回构建语料时使用的搜索语句。
func SearchQuery(location string) string {
	return location + " turismo"
}

func (s *locationService) Process(ctx context.Context, sess *Session, location string) (*LocationResult, error) {
	location = strings.TrimSpace(location)
	sess.processMu.Lock()
	defer sess.processMu.Unlock()

	log.Infof("[LocationService] 开始处理地点, session: %s, location: %s", sess.ID, location)
	audit := &model.LocationSearch{SessionID: sess.ID, Location: location}
	defer func() {
		if err := s.auditRepo.RecordSearch(audit); err != nil {
			log.Warnf("[LocationService] 写入检索审计失败: %v", err)
		}
	}()

	// 1. 地理编码与地图
	place, err := s.geocoder.Geocode(ctx, location)
	if err != nil {
		log.Warnf("[LocationService] 地理编码失败, location: %s, error: %v", location, err)
		audit.Status = "not_found"
		return nil, fmt.Errorf("%w: %v", ErrLocationNotFound, err)
	}
	audit.Lat, audit.Lon = place.Lat, place.Lon
	mapHTML, err := mapview.Render(place.Lat, place.Lon, location, place.GeoJSON)
	if err != nil {
		log.Warnf("[LocationService] 渲染地图轮廓失败, 使用无轮廓地图: %v", err)
		mapHTML, _ = mapview.Render(place.Lat, place.Lon, location, nil)
	}
	sess.setView(location, mapHTML)

	result := &LocationResult{
		Location:    location,
		DisplayName: place.DisplayName,
		Lat:         place.Lat,
		Lon:         place.Lon,
	}

	// 2. 搜索，耗尽重试时得到空列表
	urls, err := s.searcher.Search(ctx, SearchQuery(location), s.maxResults)
	if err != nil {
		log.Warnf("[LocationService] 搜索失败, 以空结果继续: %v", err)
	}
	result.URLCount = len(urls)

	// 3. 构建语料并重建索引
	corpus, err := s.builder.Process(ctx, urls)
	if err != nil {
		// 地点与地图已经切换，旧地点的索引不能继续回答新地点的问题
		sess.Index.Reset()
		audit.Status = string(pipeline.StatusError)
		return nil, err
	}
	result.DocCount = len(corpus.Documents)
	result.ChunkCount = len(corpus.Chunks)

	if err := sess.Index.Rebuild(ctx, corpus.Texts()); err != nil && !errors.Is(err, index.ErrEmptyCorpus) {
		log.Errorf("[LocationService] 重建索引失败, session: %s, error: %v", sess.ID, err)
	}

	// 4. 生成描述
	outcome := s.answers.Describe(ctx, location, sess.Index)
	result.Status = outcome.Status
	result.Description = DescriptionReply(outcome, location)

	audit.Status = string(outcome.Status)
	audit.URLCount, audit.DocCount, audit.ChunkCount = result.URLCount, result.DocCount, result.ChunkCount

	if len(corpus.Chunks) > 0 {
		s.publish(&IndexedCorpus{
			SessionID: sess.ID,
			Location:  location,
			URLs:      urls,
			Corpus:    corpus,
			Status:    outcome.Status,
			At:        time.Now(),
		})
	}

	log.Infof("[LocationService] 地点处理完成, location: %s, urls: %d, chunks: %d, status: %s",
		location, result.URLCount, result.ChunkCount, result.Status)
	return result, nil
}

// publish 在后台把语料写出到各个 sink，失败只记录日志。
func (s *locationService) publish(ic *IndexedCorpus) {
	for _, sink := range s.sinks {
		s.wg.Add(1)
		go func(sink CorpusSink) {
			defer s.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := sink.Publish(ctx, ic); err != nil {
				log.Warnf("[LocationService] 写出到 %s 失败, location: %s, error: %v", sink.Name(), ic.Location, err)
			}
		}(sink)
	}
}

func (s *locationService) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
