package service

import (
	"context"

	"yantarmarket/internal/app/market/entity"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CategoryServiceInterface interface {
	Create(ctx context.Context, req *entity.CreateCategoryRequest) (*entity.Category, error)
	Get(ctx context.Context, id primitive.ObjectID) (*entity.Category, error)
	GetAll(ctx context.Context) ([]entity.Category, error)
	Update(ctx context.Context, id primitive.ObjectID, req *entity.UpdateCategoryRequest) (*entity.Category, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type ProductServiceInterface interface {
	Create(ctx context.Context, req *entity.CreateProductRequest, photo *entity.Photo) (*entity.Product, error)
	Get(ctx context.Context, id primitive.ObjectID) (*entity.ProductWithCategory, error)
	Update(ctx context.Context, id primitive.ObjectID, req *entity.UpdateProductRequest, photo *entity.Photo) (*entity.Product, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, req *entity.ListProductsRequest) ([]entity.ProductWithCategory, error)
	ListRelated(ctx context.Context, id primitive.ObjectID, limit int) ([]entity.ProductWithCategory, error)
	ListCategoriesInUse(ctx context.Context) ([]primitive.ObjectID, error)
	ListByFilter(ctx context.Context, req *entity.FilterProductsRequest) (*entity.FilteredProductsResponse, error)
	Search(ctx context.Context, term string, category string) ([]entity.Product, error)
	Photo(ctx context.Context, id primitive.ObjectID) (*entity.Photo, error)
}

// SettlementServiceInterface - расчёт инвентаря по оплаченному заказу
type SettlementServiceInterface interface {
	Settle(ctx context.Context, orderID primitive.ObjectID) error
}

// HistoryServiceInterface - проекция и чтение истории покупок
type HistoryServiceInterface interface {
	Project(ctx context.Context, userID, orderID primitive.ObjectID) error
	PurchaseHistory(ctx context.Context, userID primitive.ObjectID) ([]entity.PurchaseHistoryOrder, error)
}

type AuthServiceInterface interface {
	Register(ctx context.Context, req *entity.RegisterRequest) (*entity.User, error)
	Login(ctx context.Context, req *entity.LoginRequest) (*entity.AuthResponse, error)
	GetProfile(ctx context.Context, id primitive.ObjectID) (*entity.User, error)
}
