package processor

import (
	"context"
	"encoding/json"
	"time"

	"yantarmarket/internal/app/market/entity"
	"yantarmarket/internal/app/market/service"
	"yantarmarket/pkg/logger"
	"yantarmarket/pkg/metrics"

	"github.com/segmentio/kafka-go"
)

// KafkaConsumer обрабатывает события оплаты заказов из топика order_events.
// Это единственный триггер расчёта инвентаря и проекции истории покупок.
//
// Контракт fire-and-forget: любая ошибка обработки логируется, offset
// коммитится в любом случае. Событие не доставляется повторно - платёжный
// сервис уже подтвердил оплату, а повторный расчёт списал бы остатки дважды.
type KafkaConsumer struct {
	reader        *kafka.Reader
	settlementSvc service.SettlementServiceInterface
	historySvc    service.HistoryServiceInterface
	groupID       string
	stopChan      chan struct{}
	doneChan      chan struct{}
}

// NewKafkaConsumer создает новый Kafka consumer
func NewKafkaConsumer(
	brokers []string,
	topic string,
	groupID string,
	settlementSvc service.SettlementServiceInterface,
	historySvc service.HistoryServiceInterface,
) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
		ReadBackoffMin: 100 * time.Millisecond,
		ReadBackoffMax: time.Second,
	})

	return &KafkaConsumer{
		reader:        reader,
		settlementSvc: settlementSvc,
		historySvc:    historySvc,
		groupID:       groupID,
		stopChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
	}
}

// Start запускает consumer в отдельной горутине
func (c *KafkaConsumer) Start(ctx context.Context) {
	logger.Info().Str("topic", c.reader.Config().Topic).Msg("starting kafka consumer")
	go c.consume(ctx)
}

// Stop останавливает consumer
func (c *KafkaConsumer) Stop() {
	logger.Info().Msg("stopping kafka consumer")
	close(c.stopChan)
	<-c.doneChan
	c.reader.Close()
	logger.Info().Msg("kafka consumer stopped")
}

// consume читает и обрабатывает сообщения из Kafka
func (c *KafkaConsumer) consume(ctx context.Context) {
	defer close(c.doneChan)

	for {
		select {
		case <-c.stopChan:
			return
		default:
			readCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			message, err := c.reader.FetchMessage(readCtx)
			cancel()

			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Error().Err(err).Msg("error fetching message")
				time.Sleep(time.Second)
				continue
			}

			c.processMessage(ctx, message)

			// Offset коммитится независимо от исхода обработки:
			// доставка не более одного раза на заказ
			if err := c.reader.CommitMessages(ctx, message); err != nil {
				logger.Error().Err(err).Msg("error committing message")
			}
		}
	}
}

// processMessage разбирает событие оплаты и запускает оба побочных
// эффекта: расчёт инвентаря и проекцию истории. Они независимы -
// отказ одного не отменяет другой, оба отказа только логируются.
func (c *KafkaConsumer) processMessage(ctx context.Context, message kafka.Message) {
	topic := c.reader.Config().Topic

	var event entity.OrderPaidEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		metrics.RecordKafkaError("market", topic, "consume")
		logger.Error().Err(err).Int64("offset", message.Offset).Msg("failed to unmarshal order event")
		return
	}

	if event.EventType != "ORDER_PAID" {
		logger.Debug().Str("event_type", event.EventType).Msg("ignoring event")
		return
	}

	logger.Info().
		Str("order_id", event.OrderID.Hex()).
		Int64("offset", message.Offset).
		Int("partition", message.Partition).
		Msg("received ORDER_PAID event")

	metrics.RecordKafkaMessageConsumed("market", topic, c.groupID)

	if err := c.settlementSvc.Settle(ctx, event.OrderID); err != nil {
		logger.Error().Err(err).Str("order_id", event.OrderID.Hex()).Msg("settlement failed")
	}

	if err := c.historySvc.Project(ctx, event.UserID, event.OrderID); err != nil {
		logger.Error().Err(err).
			Str("order_id", event.OrderID.Hex()).
			Str("user_id", event.UserID.Hex()).
			Msg("history projection failed")
	}
}
