package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"NewsPulse/internal/config"

	"github.com/segmentio/kafka-go"
)

// ArticleIngested 新文章入库事件
type ArticleIngested struct {
	RunUUID    string    `json:"run_uuid"`
	Company    string    `json:"company"`
	Topic      string    `json:"topic"`
	Variant    string    `json:"variant"`
	Instance   int       `json:"instance"`
	ArticleID  int64     `json:"article_id"`
	CategoryID int64     `json:"category_id"`
	Title      string    `json:"title"`
	Date       string    `json:"date"`
	Source     string    `json:"source"`
	URL        string    `json:"url"`
	IngestedAt time.Time `json:"ingested_at"`
}

type Publisher interface {
	PublishArticle(ctx context.Context, evt ArticleIngested) error
	Close() error
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(cfg config.KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (p *KafkaPublisher) PublishArticle(ctx context.Context, evt ArticleIngested) error {
	msg, err := messageFor(evt)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("发送入库事件失败: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// messageFor 同一实例同一篇文章的事件落在同一分区
func messageFor(evt ArticleIngested) (kafka.Message, error) {
	value, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("序列化入库事件失败: %w", err)
	}
	return kafka.Message{
		Key:   []byte(fmt.Sprintf("%s:%d:%d", evt.Topic, evt.Instance, evt.ArticleID)),
		Value: value,
		Time:  evt.IngestedAt,
	}, nil
}

// Noop 未配置 kafka 时使用
type Noop struct{}

func (Noop) PublishArticle(context.Context, ArticleIngested) error { return nil }
func (Noop) Close() error                                          { return nil }
