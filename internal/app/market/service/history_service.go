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

// HistoryService проецирует оплаченные заказы в историю покупок
// пользователя. Запись истории - неизменяемый денормализованный снимок:
// правки и удаления товара в каталоге её не затрагивают.
type HistoryService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
}

// NewHistoryService создает новый сервис истории покупок
func NewHistoryService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
) *HistoryService {
	return &HistoryService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
	}
}

// Project денормализует позиции заказа в записи истории и дописывает
// их в документ пользователя одной атомарной пачкой.
// Работает независимо от расчёта инвентаря, общей транзакции нет.
func (s *HistoryService) Project(ctx context.Context, userID, orderID primitive.ObjectID) error {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		metrics.HistoryProjections.WithLabelValues("failed").Inc()
		if errors.Is(err, repository.ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to load order: %w", err)
	}

	ids := make([]primitive.ObjectID, 0, len(order.Products))
	for _, item := range order.Products {
		ids = append(ids, item.ProductID)
	}

	products, err := s.productRepo.GetManyByIDs(ctx, ids)
	if err != nil {
		metrics.HistoryProjections.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to load order products: %w", err)
	}

	byID := make(map[primitive.ObjectID]entity.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	entries := make([]entity.HistoryEntry, 0, len(order.Products))
	for _, item := range order.Products {
		product, ok := byID[item.ProductID]
		if !ok {
			// Товар уже удалён из каталога - снять снимок не с чего
			logger.Warn().
				Str("order_id", orderID.Hex()).
				Str("product_id", item.ProductID.Hex()).
				Msg("skipping history entry for product missing from catalog")
			continue
		}
		entries = append(entries, entity.HistoryEntry{
			ProductID:     product.ID,
			Name:          product.Name,
			Description:   product.Description,
			CategoryID:    product.CategoryID,
			Quantity:      item.Count,
			TransactionID: order.TradeNo,
			Amount:        order.Amount,
		})
	}

	if err := s.userRepo.AppendHistory(ctx, userID, entries); err != nil {
		metrics.HistoryProjections.WithLabelValues("failed").Inc()
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to append history: %w", err)
	}

	metrics.HistoryProjections.WithLabelValues("success").Inc()
	logger.Info().
		Str("user_id", userID.Hex()).
		Str("order_id", orderID.Hex()).
		Int("entries", len(entries)).
		Msg("purchase history projected")

	return nil
}

// PurchaseHistory возвращает заказы пользователя, новые первыми.
// Пользователь проецируется в {id, name}, позиции разворачиваются
// в товары без фото; удалённый товар остаётся nil-ссылкой.
func (s *HistoryService) PurchaseHistory(ctx context.Context, userID primitive.ObjectID) ([]entity.PurchaseHistoryOrder, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	orders, err := s.orderRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get orders: %w", err)
	}

	// Собираем все товары всех заказов одним запросом
	seen := make(map[primitive.ObjectID]struct{})
	ids := make([]primitive.ObjectID, 0)
	for _, order := range orders {
		for _, item := range order.Products {
			if _, ok := seen[item.ProductID]; !ok {
				seen[item.ProductID] = struct{}{}
				ids = append(ids, item.ProductID)
			}
		}
	}

	products, err := s.productRepo.GetManyByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve order products: %w", err)
	}

	byID := make(map[primitive.ObjectID]entity.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	userRef := entity.UserRef{ID: user.ID, Name: user.Name}

	result := make([]entity.PurchaseHistoryOrder, 0, len(orders))
	for _, order := range orders {
		items := make([]entity.PurchasedLineItem, 0, len(order.Products))
		for _, item := range order.Products {
			var productRef *entity.Product
			if p, ok := byID[item.ProductID]; ok {
				product := p
				productRef = &product
			}
			items = append(items, entity.PurchasedLineItem{
				Product: productRef,
				Count:   item.Count,
			})
		}
		result = append(result, entity.PurchaseHistoryOrder{
			ID:        order.ID,
			User:      userRef,
			Products:  items,
			Amount:    order.Amount,
			TradeNo:   order.TradeNo,
			CreatedAt: order.CreatedAt,
		})
	}

	return result, nil
}
