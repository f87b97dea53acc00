package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"CoinCast/internal/domain/models"
	domrepo "CoinCast/internal/domain/repository"
	"CoinCast/pkg/util"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

// refreshEvent / forecastEvent are the wire shapes pushed to the event sink.
type refreshEvent struct {
	Type    string  `json:"type"`
	Outcome string  `json:"outcome"`
	Date    string  `json:"date"`
	Price   float64 `json:"price"`
}

type forecastEvent struct {
	Type            string  `json:"type"`
	ObservationDate string  `json:"observation_date"`
	TargetDate      string  `json:"target_date"`
	PriceNow        float64 `json:"price_now"`
	PredictedPrice  float64 `json:"predicted_price"`
}

// KafkaEventPublisher pushes events to a Kafka topic, keyed by target date so
// downstream consumers can compact per day.
type KafkaEventPublisher struct {
	writer *kafka.Writer
}

func NewKafkaEventPublisher(brokers []string, topic string) domrepo.EventPublisher {
	return &KafkaEventPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (p *KafkaEventPublisher) PublishRefresh(ctx context.Context, outcome models.RefreshOutcome, date time.Time, price float64) error {
	return p.write(ctx, util.FormatDate(date), refreshEvent{
		Type:    "refresh",
		Outcome: string(outcome),
		Date:    util.FormatDate(date),
		Price:   price,
	})
}

func (p *KafkaEventPublisher) PublishForecast(ctx context.Context, res *models.ForecastResult) error {
	return p.write(ctx, util.FormatDate(res.TargetDate), forecastEvent{
		Type:            "forecast",
		ObservationDate: util.FormatDate(res.ObservationDate),
		TargetDate:      util.FormatDate(res.TargetDate),
		PriceNow:        res.PriceNow,
		PredictedPrice:  res.PredictedPrice,
	})
}

func (p *KafkaEventPublisher) write(ctx context.Context, key string, payload interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: b}); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (p *KafkaEventPublisher) Close() error {
	return p.writer.Close()
}

// RedisEventPublisher pushes events to a Redis pub/sub channel.
type RedisEventPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisEventPublisher(addr, password string, db int, channel string) domrepo.EventPublisher {
	return &RedisEventPublisher{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		channel: channel,
	}
}

func (p *RedisEventPublisher) PublishRefresh(ctx context.Context, outcome models.RefreshOutcome, date time.Time, price float64) error {
	return p.publish(ctx, refreshEvent{
		Type:    "refresh",
		Outcome: string(outcome),
		Date:    util.FormatDate(date),
		Price:   price,
	})
}

func (p *RedisEventPublisher) PublishForecast(ctx context.Context, res *models.ForecastResult) error {
	return p.publish(ctx, forecastEvent{
		Type:            "forecast",
		ObservationDate: util.FormatDate(res.ObservationDate),
		TargetDate:      util.FormatDate(res.TargetDate),
		PriceNow:        res.PriceNow,
		PredictedPrice:  res.PredictedPrice,
	})
}

func (p *RedisEventPublisher) publish(ctx context.Context, payload interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, b).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (p *RedisEventPublisher) Close() error {
	return p.client.Close()
}

// NoopEventPublisher is the sink when events are disabled.
type NoopEventPublisher struct{}

func NewNoopEventPublisher() domrepo.EventPublisher { return NoopEventPublisher{} }

func (NoopEventPublisher) PublishRefresh(context.Context, models.RefreshOutcome, time.Time, float64) error {
	return nil
}

func (NoopEventPublisher) PublishForecast(context.Context, *models.ForecastResult) error {
	return nil
}

func (NoopEventPublisher) Close() error { return nil }
