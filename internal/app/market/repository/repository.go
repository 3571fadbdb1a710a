package repository

import (
	"context"
	"errors"

	"yantarmarket/internal/app/market/entity"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// Стандартные ошибки репозитория для обработки в service layer
	ErrCategoryNotFound = errors.New("category not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrDuplicateKey     = errors.New("duplicate key")
)

// ListOptions - сортировка и пагинация выборки товаров
type ListOptions struct {
	SortBy     string
	Descending bool
	Limit      int64
	Skip       int64
}

// PriceRange - включающий диапазон цены [Min, Max]
type PriceRange struct {
	Min float64
	Max float64
}

// ProductQuery - составной предикат фильтра товаров.
// Price накладывает диапазон на цену, Exact - совпадение поля
// с любым из перечисленных значений. Условия объединяются по AND.
type ProductQuery struct {
	Price *PriceRange
	Exact map[string][]interface{}
}

// InventoryDelta - изменение остатков одного товара по позиции заказа:
// quantity уменьшается на Count, sold увеличивается на Count
type InventoryDelta struct {
	ProductID primitive.ObjectID
	Count     int
}

type CategoryRepository interface {
	Create(ctx context.Context, category *entity.Category) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*entity.Category, error)
	GetAll(ctx context.Context) ([]entity.Category, error)
	Update(ctx context.Context, category *entity.Category) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	// GetByID возвращает полный документ товара, включая фото
	GetByID(ctx context.Context, id primitive.ObjectID) (*entity.Product, error)
	// GetWithCategory возвращает товар без фото с развёрнутой категорией
	GetWithCategory(ctx context.Context, id primitive.ObjectID) (*entity.ProductWithCategory, error)
	// List возвращает товары без фото с развёрнутыми категориями
	List(ctx context.Context, opts ListOptions) ([]entity.ProductWithCategory, error)
	// ListRelated возвращает товары той же категории, исключая exclude
	ListRelated(ctx context.Context, categoryID, exclude primitive.ObjectID, limit int64) ([]entity.ProductWithCategory, error)
	// DistinctCategoryIDs возвращает категории, на которые ссылается хотя бы один товар
	DistinctCategoryIDs(ctx context.Context) ([]primitive.ObjectID, error)
	// Find выполняет составной фильтр, фото исключается из выборки
	Find(ctx context.Context, query ProductQuery, opts ListOptions) ([]entity.Product, error)
	// Search ищет подстроку в имени без учёта регистра, опционально сужая по категории
	Search(ctx context.Context, term string, categoryID *primitive.ObjectID) ([]entity.Product, error)
	// GetManyByIDs возвращает товары по списку ID без фото
	GetManyByIDs(ctx context.Context, ids []primitive.ObjectID) ([]entity.Product, error)
	CountByCategory(ctx context.Context, categoryID primitive.ObjectID) (int64, error)
	// FindOversold возвращает товары с отрицательным остатком
	FindOversold(ctx context.Context) ([]entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	// ApplyInventoryDeltas применяет изменения остатков одним BulkWrite
	ApplyInventoryDeltas(ctx context.Context, deltas []InventoryDelta) error
}

type OrderRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*entity.Order, error)
	// GetByUser возвращает заказы пользователя, новые первыми
	GetByUser(ctx context.Context, userID primitive.ObjectID) ([]entity.Order, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// AppendHistory дописывает пачку записей в history одним атомарным $push
	AppendHistory(ctx context.Context, userID primitive.ObjectID, entries []entity.HistoryEntry) error
}
