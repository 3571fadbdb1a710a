package service

import (
	"context"
	"errors"
	"fmt"

	"yantarmarket/internal/app/market/entity"
	"yantarmarket/internal/app/market/repository"
	"yantarmarket/pkg/logger"
	"yantarmarket/pkg/metrics"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SettlementService применяет изменения остатков к товарам оплаченного
// заказа: по каждой позиции quantity уменьшается на count, sold
// увеличивается на count, вся пачка уходит одним BulkWrite.
//
// Дедупликации нет: контракт с внешним триггером оплаты - доставка
// не более одного раза на заказ. Повторный вызов спишет остатки дважды.
type SettlementService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
}

// NewSettlementService создает новый сервис расчёта инвентаря
func NewSettlementService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
) *SettlementService {
	return &SettlementService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
	}
}

// Settle загружает заказ и применяет изменения остатков по всем позициям.
// Ошибка возвращается вызывающей стороне для логирования, но по контракту
// fire-and-forget она не должна попадать в путь подтверждения оплаты.
func (s *SettlementService) Settle(ctx context.Context, orderID primitive.ObjectID) error {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		metrics.SettlementsProcessed.WithLabelValues("failed").Inc()
		if errors.Is(err, repository.ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to load order: %w", err)
	}

	if len(order.Products) == 0 {
		logger.Warn().Str("order_id", orderID.Hex()).Msg("order has no line items, nothing to settle")
		return nil
	}

	s.warnOversold(ctx, order)

	deltas := make([]repository.InventoryDelta, 0, len(order.Products))
	for _, item := range order.Products {
		deltas = append(deltas, repository.InventoryDelta{
			ProductID: item.ProductID,
			Count:     item.Count,
		})
	}

	if err := s.productRepo.ApplyInventoryDeltas(ctx, deltas); err != nil {
		metrics.SettlementsProcessed.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to settle order %s: %w", orderID.Hex(), err)
	}

	metrics.SettlementsProcessed.WithLabelValues("success").Inc()
	logger.Info().
		Str("order_id", orderID.Hex()).
		Int("line_items", len(order.Products)).
		Msg("order settled")

	return nil
}

// warnOversold логирует позиции, списание по которым уведёт остаток
// в минус. Списание всё равно выполняется: отрицательный остаток -
// аварийное состояние, которое находит инвентарный аудит.
func (s *SettlementService) warnOversold(ctx context.Context, order *entity.Order) {
	ids := make([]primitive.ObjectID, 0, len(order.Products))
	for _, item := range order.Products {
		ids = append(ids, item.ProductID)
	}

	products, err := s.productRepo.GetManyByIDs(ctx, ids)
	if err != nil {
		logger.Warn().Err(err).Str("order_id", order.ID.Hex()).Msg("failed to check stock before settlement")
		return
	}

	quantities := make(map[primitive.ObjectID]int, len(products))
	for _, p := range products {
		quantities[p.ID] = p.Quantity
	}

	for _, item := range order.Products {
		quantity, ok := quantities[item.ProductID]
		if !ok {
			logger.Warn().
				Str("order_id", order.ID.Hex()).
				Str("product_id", item.ProductID.Hex()).
				Msg("order references product missing from catalog")
			continue
		}
		if item.Count > quantity {
			logger.Warn().
				Str("order_id", order.ID.Hex()).
				Str("product_id", item.ProductID.Hex()).
				Int("count", item.Count).
				Int("quantity", quantity).
				Msg("settlement will drive product quantity negative")
		}
	}
}
