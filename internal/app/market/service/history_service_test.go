package service

import (
	"context"
	"testing"
	"time"

	"yantarmarket/internal/app/market/entity"
	"yantarmarket/internal/app/market/repository"
	"yantarmarket/internal/app/market/repository/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestUser() *entity.User {
	return &entity.User{
		ID:        primitive.NewObjectID(),
		Name:      "Ivan",
		Email:     "ivan@example.com",
		Role:      entity.RoleCustomer,
		CreatedAt: time.Now(),
	}
}

func TestHistoryService_Project_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	orderRepo := new(mocks.MockOrderRepository)
	productRepo := new(mocks.MockProductRepository)
	userRepo := new(mocks.MockUserRepository)

	user := newTestUser()
	first := newTestProduct(primitive.NewObjectID())
	second := newTestProduct(primitive.NewObjectID())
	second.Name = "Mouse"

	order := newTestOrder([]entity.LineItem{
		{ProductID: first.ID, Count: 1},
		{ProductID: second.ID, Count: 2},
	})

	orderRepo.On("GetByID", ctx, order.ID).Return(order, nil)
	productRepo.On("GetManyByIDs", ctx, mock.AnythingOfType("[]primitive.ObjectID")).
		Return([]entity.Product{*first, *second}, nil)

	var captured []entity.HistoryEntry
	userRepo.On("AppendHistory", ctx, user.ID, mock.AnythingOfType("[]entity.HistoryEntry")).
		Run(func(args mock.Arguments) {
			captured = args.Get(2).([]entity.HistoryEntry)
		}).
		Return(nil)

	service := NewHistoryService(orderRepo, productRepo, userRepo)

	// Act
	err := service.Project(ctx, user.ID, order.ID)

	// Assert: ровно по записи на позицию заказа, одной пачкой
	require.NoError(t, err)
	require.Len(t, captured, len(order.Products))

	assert.Equal(t, first.ID, captured[0].ProductID)
	assert.Equal(t, first.Name, captured[0].Name)
	assert.Equal(t, first.Description, captured[0].Description)
	assert.Equal(t, first.CategoryID, captured[0].CategoryID)
	assert.Equal(t, 1, captured[0].Quantity)
	assert.Equal(t, order.TradeNo, captured[0].TransactionID)
	assert.Equal(t, order.Amount, captured[0].Amount)

	assert.Equal(t, "Mouse", captured[1].Name)
	assert.Equal(t, 2, captured[1].Quantity)

	userRepo.AssertNumberOfCalls(t, "AppendHistory", 1)
}

func TestHistoryService_Project_SkipsDeletedProducts(t *testing.T) {
	// Arrange
	ctx := context.Background()
	orderRepo := new(mocks.MockOrderRepository)
	productRepo := new(mocks.MockProductRepository)
	userRepo := new(mocks.MockUserRepository)

	user := newTestUser()
	existing := newTestProduct(primitive.NewObjectID())
	deletedID := primitive.NewObjectID()

	order := newTestOrder([]entity.LineItem{
		{ProductID: existing.ID, Count: 1},
		{ProductID: deletedID, Count: 4},
	})

	orderRepo.On("GetByID", ctx, order.ID).Return(order, nil)
	// Каталог вернул только существующий товар
	productRepo.On("GetManyByIDs", ctx, mock.AnythingOfType("[]primitive.ObjectID")).
		Return([]entity.Product{*existing}, nil)

	var captured []entity.HistoryEntry
	userRepo.On("AppendHistory", ctx, user.ID, mock.AnythingOfType("[]entity.HistoryEntry")).
		Run(func(args mock.Arguments) {
			captured = args.Get(2).([]entity.HistoryEntry)
		}).
		Return(nil)

	service := NewHistoryService(orderRepo, productRepo, userRepo)

	// Act
	err := service.Project(ctx, user.ID, order.ID)

	// Assert
	require.NoError(t, err)
	require.Len(t, captured, 1)
	assert.Equal(t, existing.ID, captured[0].ProductID)
}

func TestHistoryService_Project_OrderNotFound(t *testing.T) {
	// Arrange
	ctx := context.Background()
	orderRepo := new(mocks.MockOrderRepository)
	productRepo := new(mocks.MockProductRepository)
	userRepo := new(mocks.MockUserRepository)

	orderID := primitive.NewObjectID()
	orderRepo.On("GetByID", ctx, orderID).Return(nil, repository.ErrOrderNotFound)

	service := NewHistoryService(orderRepo, productRepo, userRepo)

	// Act
	err := service.Project(ctx, primitive.NewObjectID(), orderID)

	// Assert
	assert.ErrorIs(t, err, ErrOrderNotFound)
	userRepo.AssertNotCalled(t, "AppendHistory", mock.Anything, mock.Anything, mock.Anything)
}

func TestHistoryService_Project_UserNotFound(t *testing.T) {
	// Arrange
	ctx := context.Background()
	orderRepo := new(mocks.MockOrderRepository)
	productRepo := new(mocks.MockProductRepository)
	userRepo := new(mocks.MockUserRepository)

	product := newTestProduct(primitive.NewObjectID())
	order := newTestOrder([]entity.LineItem{
		{ProductID: product.ID, Count: 1},
	})
	userID := primitive.NewObjectID()

	orderRepo.On("GetByID", ctx, order.ID).Return(order, nil)
	productRepo.On("GetManyByIDs", ctx, mock.AnythingOfType("[]primitive.ObjectID")).
		Return([]entity.Product{*product}, nil)
	userRepo.On("AppendHistory", ctx, userID, mock.AnythingOfType("[]entity.HistoryEntry")).
		Return(repository.ErrUserNotFound)

	service := NewHistoryService(orderRepo, productRepo, userRepo)

	// Act
	err := service.Project(ctx, userID, order.ID)

	// Assert
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestHistoryService_PurchaseHistory_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	orderRepo := new(mocks.MockOrderRepository)
	productRepo := new(mocks.MockProductRepository)
	userRepo := new(mocks.MockUserRepository)

	user := newTestUser()
	product := newTestProduct(primitive.NewObjectID())
	deletedID := primitive.NewObjectID()

	newer := newTestOrder([]entity.LineItem{
		{ProductID: product.ID, Count: 2},
	})
	older := newTestOrder([]entity.LineItem{
		{ProductID: deletedID, Count: 1},
	})

	userRepo.On("GetByID", ctx, user.ID).Return(user, nil)
	// Репозиторий уже отдаёт заказы новыми первыми
	orderRepo.On("GetByUser", ctx, user.ID).Return([]entity.Order{*newer, *older}, nil)
	productRepo.On("GetManyByIDs", ctx, mock.AnythingOfType("[]primitive.ObjectID")).
		Return([]entity.Product{*product}, nil)

	service := NewHistoryService(orderRepo, productRepo, userRepo)

	// Act
	history, err := service.PurchaseHistory(ctx, user.ID)

	// Assert
	require.NoError(t, err)
	require.Len(t, history, 2)

	// Пользователь спроецирован в {id, name}
	assert.Equal(t, entity.UserRef{ID: user.ID, Name: user.Name}, history[0].User)

	// Существующий товар развёрнут
	require.Len(t, history[0].Products, 1)
	require.NotNil(t, history[0].Products[0].Product)
	assert.Equal(t, product.Name, history[0].Products[0].Product.Name)
	assert.Equal(t, 2, history[0].Products[0].Count)

	// Удалённый товар остаётся nil-ссылкой, заказ из выдачи не выпадает
	require.Len(t, history[1].Products, 1)
	assert.Nil(t, history[1].Products[0].Product)
	assert.Equal(t, 1, history[1].Products[0].Count)
}

func TestHistoryService_PurchaseHistory_UserNotFound(t *testing.T) {
	// Arrange
	ctx := context.Background()
	orderRepo := new(mocks.MockOrderRepository)
	productRepo := new(mocks.MockProductRepository)
	userRepo := new(mocks.MockUserRepository)

	userID := primitive.NewObjectID()
	userRepo.On("GetByID", ctx, userID).Return(nil, repository.ErrUserNotFound)

	service := NewHistoryService(orderRepo, productRepo, userRepo)

	// Act
	history, err := service.PurchaseHistory(ctx, userID)

	// Assert
	assert.Nil(t, history)
	assert.ErrorIs(t, err, ErrUserNotFound)
	orderRepo.AssertNotCalled(t, "GetByUser", mock.Anything, mock.Anything)
}

func TestHistoryService_PurchaseHistory_NoOrders(t *testing.T) {
	// Arrange
	ctx := context.Background()
	orderRepo := new(mocks.MockOrderRepository)
	productRepo := new(mocks.MockProductRepository)
	userRepo := new(mocks.MockUserRepository)

	user := newTestUser()
	userRepo.On("GetByID", ctx, user.ID).Return(user, nil)
	orderRepo.On("GetByUser", ctx, user.ID).Return([]entity.Order{}, nil)
	productRepo.On("GetManyByIDs", ctx, mock.AnythingOfType("[]primitive.ObjectID")).
		Return([]entity.Product{}, nil)

	service := NewHistoryService(orderRepo, productRepo, userRepo)

	// Act
	history, err := service.PurchaseHistory(ctx, user.ID)

	// Assert
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.NotNil(t, history)
}
