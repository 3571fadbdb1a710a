package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"yantarmarket/internal/app/market/entity"
	"yantarmarket/internal/app/market/repository"
	"yantarmarket/internal/app/market/util"
	"yantarmarket/pkg/logger"
	"yantarmarket/pkg/metrics"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Умолчания списков товаров, совпадают с исходным каталогом
const (
	defaultListLimit    = 6
	defaultRelatedLimit = 6
	defaultFilterLimit  = 4
)

// ErrInvalidPriceFilter - фильтр price обязан быть парой [min, max]
var ErrInvalidPriceFilter = errors.New("price filter must be a [min, max] pair")

// ProductService обрабатывает бизнес-логику товаров каталога:
// CRUD с фото, динамические фильтры, поиск и связанные выборки
type ProductService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	publisher    util.MessagePublisher
}

// NewProductService создает новый сервис товаров с внедрением зависимостей
func NewProductService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	publisher util.MessagePublisher,
) *ProductService {
	return &ProductService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		publisher:    publisher,
	}
}

// Create создает новый товар
// Все шесть полей обязательны, отсутствующие перечисляются в ValidationError.
// Фото размером больше MaxPhotoSize отклоняется, товар не создаётся.
func (s *ProductService) Create(ctx context.Context, req *entity.CreateProductRequest, photo *entity.Photo) (*entity.Product, error) {
	var missing []string
	if req.Name == "" {
		missing = append(missing, "name")
	}
	if req.Description == "" {
		missing = append(missing, "description")
	}
	if req.Price == nil {
		missing = append(missing, "price")
	}
	if req.CategoryID == "" {
		missing = append(missing, "category")
	}
	if req.Quantity == nil {
		missing = append(missing, "quantity")
	}
	if req.Shipping == nil {
		missing = append(missing, "shipping")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Fields: missing}
	}

	if photo != nil && len(photo.Data) > MaxPhotoSize {
		return nil, &PhotoTooLargeError{Size: len(photo.Data)}
	}

	categoryID, err := primitive.ObjectIDFromHex(req.CategoryID)
	if err != nil {
		return nil, ErrCategoryNotFound
	}

	// Категория товара обязана существовать
	if _, err := s.categoryRepo.GetByID(ctx, categoryID); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to verify category: %w", err)
	}

	product := &entity.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		CategoryID:  categoryID,
		Quantity:    *req.Quantity,
		Shipping:    *req.Shipping,
		Photo:       photo,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	metrics.ProductsCreated.Inc()

	return product, nil
}

// Get получает товар по ID с развёрнутой категорией, фото исключено
func (s *ProductService) Get(ctx context.Context, id primitive.ObjectID) (*entity.ProductWithCategory, error) {
	product, err := s.productRepo.GetWithCategory(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return product, nil
}

// Update выполняет частичное обновление товара: заполненные поля запроса
// перезаписывают прежние значения, незаполненные остаются как были.
// При изменении цены отправляется событие PRODUCT_UPDATED в Kafka.
func (s *ProductService) Update(ctx context.Context, id primitive.ObjectID, req *entity.UpdateProductRequest, photo *entity.Photo) (*entity.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if photo != nil && len(photo.Data) > MaxPhotoSize {
		return nil, &PhotoTooLargeError{Size: len(photo.Data)}
	}

	oldPrice := product.Price

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.CategoryID != nil {
		categoryID, err := primitive.ObjectIDFromHex(*req.CategoryID)
		if err != nil {
			return nil, ErrCategoryNotFound
		}
		if _, err := s.categoryRepo.GetByID(ctx, categoryID); err != nil {
			if errors.Is(err, repository.ErrCategoryNotFound) {
				return nil, ErrCategoryNotFound
			}
			return nil, fmt.Errorf("failed to verify category: %w", err)
		}
		product.CategoryID = categoryID
	}
	if req.Quantity != nil {
		product.Quantity = *req.Quantity
	}
	if req.Shipping != nil {
		product.Shipping = *req.Shipping
	}
	if photo != nil {
		product.Photo = photo
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	if product.Price != oldPrice {
		s.publishProductUpdated(ctx, product)
	}

	return product, nil
}

// Delete удаляет товар безусловно. Ссылки из старых заказов остаются
// висячими - история покупок хранит денормализованные снимки.
func (s *ProductService) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return nil
}

// List получает товары с сортировкой и лимитом
// Умолчания: sortBy=_id, order=asc, limit=6
func (s *ProductService) List(ctx context.Context, req *entity.ListProductsRequest) ([]entity.ProductWithCategory, error) {
	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = "_id"
	}
	order := req.Order
	if order == "" {
		order = "asc"
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	descending, err := parseOrder(order)
	if err != nil {
		return nil, err
	}

	products, err := s.productRepo.List(ctx, repository.ListOptions{
		SortBy:     sortBy,
		Descending: descending,
		Limit:      int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return products, nil
}

// ListRelated получает товары той же категории, что и заданный,
// исключая его самого. Умолчание limit=6.
func (s *ProductService) ListRelated(ctx context.Context, id primitive.ObjectID, limit int) ([]entity.ProductWithCategory, error) {
	if limit <= 0 {
		limit = defaultRelatedLimit
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	related, err := s.productRepo.ListRelated(ctx, product.CategoryID, product.ID, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list related products: %w", err)
	}

	return related, nil
}

// ListCategoriesInUse возвращает множество категорий,
// на которые ссылается хотя бы один товар
func (s *ProductService) ListCategoriesInUse(ctx context.Context) ([]primitive.ObjectID, error) {
	ids, err := s.productRepo.DistinctCategoryIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories in use: %w", err)
	}

	return ids, nil
}

// ListByFilter строит конъюнктивный предикат по переданным фильтрам.
// Ключ price - включающий диапазон [min, max], остальные ключи -
// совпадение с любым из значений. Пустые массивы значений игнорируются.
// Умолчания: sortBy=_id, order=desc, limit=4, skip=0.
func (s *ProductService) ListByFilter(ctx context.Context, req *entity.FilterProductsRequest) (*entity.FilteredProductsResponse, error) {
	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = "_id"
	}
	order := req.Order
	if order == "" {
		order = "desc"
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultFilterLimit
	}

	descending, err := parseOrder(order)
	if err != nil {
		return nil, err
	}

	query := repository.ProductQuery{Exact: map[string][]interface{}{}}
	for key, values := range req.Filters {
		if len(values) == 0 {
			continue
		}
		if key == "price" {
			priceRange, err := parsePriceRange(values)
			if err != nil {
				return nil, err
			}
			query.Price = priceRange
			continue
		}
		query.Exact[key] = values
	}

	products, err := s.productRepo.Find(ctx, query, repository.ListOptions{
		SortBy:     sortBy,
		Descending: descending,
		Limit:      int64(limit),
		Skip:       int64(req.Skip),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to filter products: %w", err)
	}

	if products == nil {
		products = []entity.Product{}
	}

	return &entity.FilteredProductsResponse{
		Size: len(products),
		Data: products,
	}, nil
}

// Search ищет подстроку в имени товара без учёта регистра.
// Пустой поисковый запрос намеренно не выполняет обращения к хранилищу
// и возвращает пустой результат. Категория "All" не сужает выборку.
func (s *ProductService) Search(ctx context.Context, term string, category string) ([]entity.Product, error) {
	if term == "" {
		return []entity.Product{}, nil
	}

	var categoryID *primitive.ObjectID
	if category != "" && category != "All" {
		id, err := primitive.ObjectIDFromHex(category)
		if err != nil {
			return nil, ErrCategoryNotFound
		}
		categoryID = &id
	}

	products, err := s.productRepo.Search(ctx, term, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}

	if products == nil {
		products = []entity.Product{}
	}

	return products, nil
}

// Photo возвращает бинарные данные фото товара и content type.
// Отсутствие фото - не ошибка хранилища, а сигнал ErrNoPhoto,
// по которому handler отвечает 404.
func (s *ProductService) Photo(ctx context.Context, id primitive.ObjectID) (*entity.Photo, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if product.Photo == nil || len(product.Photo.Data) == 0 {
		return nil, ErrNoPhoto
	}

	return product.Photo, nil
}

// publishProductUpdated отправляет событие PRODUCT_UPDATED в Kafka.
// Товар уже обновлён, проблемы с Kafka не критичны - логируем и продолжаем.
func (s *ProductService) publishProductUpdated(ctx context.Context, product *entity.Product) {
	event := entity.ProductEvent{
		EventType:  "PRODUCT_UPDATED",
		ProductID:  product.ID,
		Name:       product.Name,
		Price:      product.Price,
		CategoryID: product.CategoryID,
		Timestamp:  time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Msg("failed to marshal product event")
		return
	}

	// Ключ - ID товара для сохранения порядка событий в партиции
	if err := s.publisher.PublishMessage(ctx, product.ID.Hex(), data); err != nil {
		logger.Error().Err(err).Str("product_id", product.ID.Hex()).Msg("failed to publish product updated event")
	}
}

// parseOrder проверяет токен направления сортировки
func parseOrder(order string) (bool, error) {
	switch order {
	case "asc":
		return false, nil
	case "desc":
		return true, nil
	default:
		return false, ErrInvalidSortOrder
	}
}

// parsePriceRange разбирает значение фильтра price в диапазон [min, max]
func parsePriceRange(values []interface{}) (*repository.PriceRange, error) {
	if len(values) != 2 {
		return nil, ErrInvalidPriceFilter
	}

	min, okMin := toFloat(values[0])
	max, okMax := toFloat(values[1])
	if !okMin || !okMax {
		return nil, ErrInvalidPriceFilter
	}

	return &repository.PriceRange{Min: min, Max: max}, nil
}

// toFloat приводит JSON-число к float64
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
