package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category представляет категорию товаров
type Category struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

// Photo хранит бинарные данные обложки товара прямо в документе,
// как это делал исходный каталог. Наружу отдаётся только через
// отдельный endpoint, поэтому из JSON всегда исключается.
type Photo struct {
	Data        []byte `json:"-" bson:"data,omitempty"`
	ContentType string `json:"-" bson:"content_type,omitempty"`
}

// Product представляет товар в каталоге
// Quantity - остаток на складе, Sold - количество проданных единиц.
// Оба поля меняются только движком расчёта инвентаря ($inc по оплаченному заказу).
type Product struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description" bson:"description"`
	Price       float64            `json:"price" bson:"price"`
	CategoryID  primitive.ObjectID `json:"category_id" bson:"category"`
	Quantity    int                `json:"quantity" bson:"quantity"`
	Sold        int                `json:"sold" bson:"sold"`
	Photo       *Photo             `json:"-" bson:"photo,omitempty"`
	Shipping    bool               `json:"shipping" bson:"shipping"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// ProductWithCategory содержит товар с развёрнутой категорией
type ProductWithCategory struct {
	Product
	Category Category `json:"category"`
}

// LineItem представляет позицию заказа: товар и количество
type LineItem struct {
	ProductID primitive.ObjectID `json:"product_id" bson:"product"`
	Count     int                `json:"count" bson:"count"`
}

// Order представляет заказ. Заказы создаёт и оплачивает внешний сервис,
// каталог их только читает при расчёте инвентаря и проекции истории.
type Order struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"user_id" bson:"user"`
	Products  []LineItem         `json:"products" bson:"products"`
	Amount    float64            `json:"amount" bson:"amount"`
	TradeNo   string             `json:"trade_no" bson:"trade_no"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

// HistoryEntry - денормализованный снимок купленного товара.
// Снимок неизменяем: последующие правки или удаление товара из каталога
// не должны менять историю покупок пользователя.
type HistoryEntry struct {
	ProductID     primitive.ObjectID `json:"product_id" bson:"product"`
	Name          string             `json:"name" bson:"name"`
	Description   string             `json:"description" bson:"description"`
	CategoryID    primitive.ObjectID `json:"category_id" bson:"category"`
	Quantity      int                `json:"quantity" bson:"quantity"`
	TransactionID string             `json:"transaction_id" bson:"transaction_id"`
	Amount        float64            `json:"amount" bson:"amount"`
}

// User представляет пользователя магазина
type User struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name           string             `json:"name" bson:"name"`
	Email          string             `json:"email" bson:"email"`
	HashedPassword string             `json:"-" bson:"hashed_password"`
	Role           string             `json:"role" bson:"role"`
	History        []HistoryEntry     `json:"history" bson:"history"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
}

// Роли пользователей
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// OrderPaidEvent - событие оплаты заказа из Kafka топика order_events.
// Внешний триггер гарантирует доставку не более одного раза на заказ,
// движок расчёта дедупликацию не выполняет.
type OrderPaidEvent struct {
	EventType string             `json:"event_type"` // ORDER_PAID
	OrderID   primitive.ObjectID `json:"order_id"`
	UserID    primitive.ObjectID `json:"user_id"`
	Timestamp time.Time          `json:"timestamp"`
}

// ProductEvent представляет событие изменения товара для Kafka
type ProductEvent struct {
	EventType  string             `json:"event_type"` // PRODUCT_UPDATED
	ProductID  primitive.ObjectID `json:"product_id"`
	Name       string             `json:"name"`
	Price      float64            `json:"price"`
	CategoryID primitive.ObjectID `json:"category_id"`
	Timestamp  time.Time          `json:"timestamp"`
}
