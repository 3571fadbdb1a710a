package processor

import (
	"context"

	"yantarmarket/internal/app/market/repository"
	"yantarmarket/pkg/logger"
	"yantarmarket/pkg/metrics"

	"github.com/robfig/cron/v3"
)

// InventoryAuditor периодически ищет товары с отрицательным остатком.
// Расчёт инвентаря не блокирует списание ниже нуля и версии документов
// не проверяются, поэтому дрейф возможен - аудит делает его видимым
// в логах и метриках.
type InventoryAuditor struct {
	cron        *cron.Cron
	productRepo repository.ProductRepository
}

// NewInventoryAuditor создает новый планировщик инвентарного аудита
func NewInventoryAuditor(productRepo repository.ProductRepository) *InventoryAuditor {
	return &InventoryAuditor{
		cron:        cron.New(),
		productRepo: productRepo,
	}
}

// Start регистрирует задачу по расписанию и сразу выполняет первый проход
func (a *InventoryAuditor) Start(ctx context.Context, schedule string) error {
	logger.Info().Str("schedule", schedule).Msg("starting inventory audit scheduler")

	_, err := a.cron.AddFunc(schedule, func() {
		a.audit(ctx)
	})
	if err != nil {
		return err
	}

	a.cron.Start()

	a.audit(ctx)

	return nil
}

// Stop останавливает планировщик, дожидаясь текущей задачи
func (a *InventoryAuditor) Stop() {
	logger.Info().Msg("stopping inventory audit scheduler")
	ctx := a.cron.Stop()
	<-ctx.Done()
	logger.Info().Msg("inventory audit scheduler stopped")
}

// audit выполняет один проход аудита
func (a *InventoryAuditor) audit(ctx context.Context) {
	products, err := a.productRepo.FindOversold(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("inventory audit failed")
		return
	}

	metrics.OversoldProducts.Set(float64(len(products)))

	if len(products) == 0 {
		logger.Debug().Msg("inventory audit passed, no oversold products")
		return
	}

	for _, p := range products {
		logger.Warn().
			Str("product_id", p.ID.Hex()).
			Str("name", p.Name).
			Int("quantity", p.Quantity).
			Int("sold", p.Sold).
			Msg("product oversold")
	}
}
