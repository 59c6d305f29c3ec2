// Package kafka 提供了与 Kafka 消息队列交互的功能：发布地点索引完成事件。
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"guia-turismo-go/internal/config"
	"guia-turismo-go/pkg/log"
	"guia-turismo-go/pkg/tasks"

	"github.com/segmentio/kafka-go"
)

// MessageWriter 是 kafka.Writer 中本包用到的部分。
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var producer MessageWriter

// InitProducer 初始化 Kafka 生产者。
func InitProducer(cfg config.KafkaConfig) {
	producer = &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(cfg.Brokers, ",")...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	log.Info("Kafka 生产者初始化成功")
}

// SetProducer 替换全局生产者，主要用于测试。
func SetProducer(w MessageWriter) {
	producer = w
}

// Enabled 报告生产者是否已初始化。
func Enabled() bool {
	return producer != nil
}

// PublishLocationIndexed 发送一个地点索引完成事件。消息 key 为地点名，同一地点的事件落在同一分区。
func PublishLocationIndexed(ctx context.Context, event tasks.LocationIndexed) error {
	if producer == nil {
		return fmt.Errorf("kafka producer not initialized")
	}
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return producer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strings.ToLower(event.Location)),
		Value: value,
		Time:  event.OccurredAt,
	})
}

// Close 关闭生产者，刷新未发送的消息。
func Close() error {
	if producer == nil {
		return nil
	}
	return producer.Close()
}
