package service

import (
	"context"
	"time"

	"guia-turismo-go/internal/model"
	"guia-turismo-go/internal/pipeline"
	"guia-turismo-go/pkg/es"
	"guia-turismo-go/pkg/kafka"
	"guia-turismo-go/pkg/log"
	"guia-turismo-go/pkg/storage"
	"guia-turismo-go/pkg/tasks"
)

// IndexedCorpus 是一次成功重建后交给各个 sink 的数据。
type IndexedCorpus struct {
	SessionID string
	Location  string
	URLs      []string
	Corpus    *pipeline.Corpus
	Status    pipeline.Status
	At        time.Time
}

// CorpusSink 接收重建后的语料副本。sink 只写不读，向量索引永远不从这里恢复。
type CorpusSink interface {
	Name() string
	Publish(ctx context.Context, ic *IndexedCorpus) error
}

type archiveSink struct {
	indexName string
}

// NewArchiveSink 把分块归档到 Elasticsearch（字段 localizacao / conteudo）。
func NewArchiveSink(indexName string) CorpusSink {
	return &archiveSink{indexName: indexName}
}

func (s *archiveSink) Name() string { return "elasticsearch" }

func (s *archiveSink) Publish(ctx context.Context, ic *IndexedCorpus) error {
	docs := make([]model.ArchiveDocument, 0, len(ic.Corpus.Chunks))
	for _, ch := range ic.Corpus.Chunks {
		docs = append(docs, model.ArchiveDocument{
			DocID:       es.DocumentID(ic.Location, ch.URL, ch.Index),
			Localizacao: ic.Location,
			Conteudo:    ch.Text,
			URL:         ch.URL,
			ChunkIndex:  ch.Index,
			IndexedAt:   ic.At,
		})
	}
	if err := es.IndexDocuments(ctx, s.indexName, docs); err != nil {
		return err
	}
	log.Infof("[ArchiveSink] 归档完成, location: %s, 文档数: %d", ic.Location, len(docs))
	return nil
}

type snapshotSink struct {
	bucketName string
}

// NewSnapshotSink 把每次重建的语料快照写入 MinIO。
func NewSnapshotSink(bucketName string) CorpusSink {
	return &snapshotSink{bucketName: bucketName}
}

func (s *snapshotSink) Name() string { return "minio" }

func (s *snapshotSink) Publish(ctx context.Context, ic *IndexedCorpus) error {
	objectName, err := storage.SaveSnapshot(ctx, s.bucketName, &model.CorpusSnapshot{
		SessionID: ic.SessionID,
		Location:  ic.Location,
		URLs:      ic.URLs,
		Chunks:    ic.Corpus.Chunks,
		CreatedAt: ic.At,
	})
	if err != nil {
		return err
	}
	// 预签名地址只用于排查，生成失败不影响写出结果
	url, err := storage.GetPresignedURL(ctx, s.bucketName, objectName, 24*time.Hour)
	if err != nil {
		log.Infof("[SnapshotSink] 快照已保存, object: %s", objectName)
		return nil
	}
	log.Infof("[SnapshotSink] 快照已保存, object: %s, url: %s", objectName, url)
	return nil
}

type eventSink struct{}

// NewEventSink 发布 location.indexed 事件到 Kafka。
func NewEventSink() CorpusSink {
	return eventSink{}
}

func (eventSink) Name() string { return "kafka" }

func (eventSink) Publish(ctx context.Context, ic *IndexedCorpus) error {
	return kafka.PublishLocationIndexed(ctx, tasks.LocationIndexed{
		SessionID:  ic.SessionID,
		Location:   ic.Location,
		Status:     string(ic.Status),
		URLCount:   len(ic.URLs),
		ChunkCount: len(ic.Corpus.Chunks),
		OccurredAt: ic.At,
	})
}
