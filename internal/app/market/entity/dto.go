package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateCategoryRequest - создание категории
type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

// UpdateCategoryRequest - переименование категории
type UpdateCategoryRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

// CreateProductRequest - создание товара из multipart формы.
// Числовые и булевы поля указательные: так отличается "поле не передано"
// от нулевого значения, все шесть полей обязательны.
type CreateProductRequest struct {
	Name        string
	Description string
	Price       *float64
	CategoryID  string
	Quantity    *int
	Shipping    *bool
}

// UpdateProductRequest - частичное обновление товара.
// Заполненные указатели перезаписывают поле, nil оставляет прежнее значение.
type UpdateProductRequest struct {
	Name        *string
	Description *string
	Price       *float64
	CategoryID  *string
	Quantity    *int
	Shipping    *bool
}

// ListProductsRequest - параметры списка товаров
// Пустые значения заменяются умолчаниями: sortBy=_id, order=asc, limit=6
type ListProductsRequest struct {
	SortBy string
	Order  string
	Limit  int
}

// FilterProductsRequest - динамический фильтр списка товаров.
// Ключ price трактуется как диапазон [min, max], остальные ключи -
// точное совпадение с любым из значений. Пустые массивы игнорируются.
type FilterProductsRequest struct {
	Filters map[string][]interface{} `json:"filters"`
	SortBy  string                   `json:"sortBy"`
	Order   string                   `json:"order"`
	Limit   int                      `json:"limit"`
	Skip    int                      `json:"skip"`
}

// FilteredProductsResponse - ответ фильтра в формате {size, data}
type FilteredProductsResponse struct {
	Size int       `json:"size"`
	Data []Product `json:"data"`
}

// RegisterRequest - регистрация пользователя
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest - вход пользователя
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse - ответ на успешный вход
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// UserRef - проекция пользователя {id, name} для истории покупок
type UserRef struct {
	ID   primitive.ObjectID `json:"id"`
	Name string             `json:"name"`
}

// PurchasedLineItem - позиция исторического заказа с развёрнутым товаром.
// Товар может быть nil, если он уже удалён из каталога: старые заказы
// хранят денормализованные снимки, висячая ссылка допустима.
type PurchasedLineItem struct {
	Product *Product `json:"product"`
	Count   int      `json:"count"`
}

// PurchaseHistoryOrder - заказ в выдаче истории покупок
type PurchaseHistoryOrder struct {
	ID        primitive.ObjectID  `json:"id"`
	User      UserRef             `json:"user"`
	Products  []PurchasedLineItem `json:"products"`
	Amount    float64             `json:"amount"`
	TradeNo   string              `json:"trade_no"`
	CreatedAt time.Time           `json:"created_at"`
}

// ErrorResponse - формат ошибки на границе API
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse - информационный ответ без сущности
type MessageResponse struct {
	Message string `json:"message"`
}
