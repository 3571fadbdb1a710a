package service

import (
	"bytes"
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

// Хелперы для создания тестовых данных

func newTestProduct(categoryID primitive.ObjectID) *entity.Product {
	return &entity.Product{
		ID:          primitive.NewObjectID(),
		Name:        "Laptop",
		Description: "High-performance laptop for developers",
		Price:       1299.99,
		CategoryID:  categoryID,
		Quantity:    10,
		Shipping:    true,
		CreatedAt:   time.Now(),
	}
}

func newCreateProductRequest(categoryID primitive.ObjectID) *entity.CreateProductRequest {
	price := 1299.99
	quantity := 10
	shipping := true
	return &entity.CreateProductRequest{
		Name:        "Laptop",
		Description: "High-performance laptop for developers",
		Price:       &price,
		CategoryID:  categoryID.Hex(),
		Quantity:    &quantity,
		Shipping:    &shipping,
	}
}

// ==================== Create ====================

func TestProductService_Create_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	productRepo := new(mocks.MockProductRepository)
	categoryRepo := new(mocks.MockCategoryRepository)
	publisher := new(mocks.MockMessagePublisher)

	category := newTestCategory()
	categoryRepo.On("GetByID", ctx, category.ID).Return(category, nil)
	productRepo.On("Create", ctx, mock.AnythingOfType("*entity.Product")).Return(nil)

	service := NewProductService(productRepo, categoryRepo, publisher)

	// Act
	product, err := service.Create(ctx, newCreateProductRequest(category.ID), nil)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Laptop", product.Name)
	assert.Equal(t, 1299.99, product.Price)
	assert.Equal(t, category.ID, product.CategoryID)

	productRepo.AssertExpectations(t)
	categoryRepo.AssertExpectations(t)
}

func TestProductService_Create_MissingFields(t *testing.T) {
	// Arrange
	ctx := context.Background()
	productRepo := new(mocks.MockProductRepository)
	categoryRepo := new(mocks.MockCategoryRepository)
	publisher := new(mocks.MockMessagePublisher)

	service := NewProductService(productRepo, categoryRepo, publisher)

	// Передаём только имя: остальные пять полей должны попасть в ошибку
	req := &entity.CreateProductRequest{Name: "Laptop"}

	// Act
	product, err := service.Create(ctx, req, nil)

	// Assert
	assert.Nil(t, product)

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, []string{"description", "price", "category", "quantity", "shipping"}, validation.Fields)

	productRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProductService_Create_PhotoTooLarge(t *testing.T) {
	// Arrange
	ctx := context.Background()
	productRepo := new(mocks.MockProductRepository)
	categoryRepo := new(mocks.MockCategoryRepository)
	publisher := new(mocks.MockMessagePublisher)

	service := NewProductService(productRepo, categoryRepo, publisher)

	category := newTestCategory()
	photo := &entity.Photo{
		Data:        bytes.Repeat([]byte{0xFF}, MaxPhotoSize+1),
		ContentType: "image/jpeg",
	}

	// Act
	product, err := service.Create(ctx, newCreateProductRequest(category.ID), photo)

	// Assert
	assert.Nil(t, product)

	var tooLarge *PhotoTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, MaxPhotoSize+1, tooLarge.Size)

	productRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProductService_Create_PhotoAtLimit(t *testing.T) {
	// Arrange
	ctx := context.Background()
	productRepo := new(mocks.MockProductRepository)
	categoryRepo := new(mocks.MockCategoryRepository)
	publisher := new(mocks.MockMessagePublisher)

	category := newTestCategory()
	categoryRepo.On("GetByID", ctx, category.ID).Return(category, nil)
	productRepo.On("Create", ctx, mock.AnythingOfType("*entity.Product")).Return(nil)

	service := NewProductService(productRepo, categoryRepo, publisher)

	// Ровно на границе - допустимо
	photo := &entity.Photo{
		Data:        bytes.Repeat([]byte{0xFF}, MaxPhotoSize),
		ContentType: "image/jpeg",
	}

	// Act
	product, err := service.Create(ctx, newCreateProductRequest(category.ID), photo)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, photo, product.Photo)
}

func TestProductService_Create_UnknownCategory(t *testing.T) {
	// Arrange
	ctx := context.Background()
	productRepo := new(mocks.MockProductRepository)
	categoryRepo := new(mocks.MockCategoryRepository)
	publisher := new(mocks.MockMessagePublisher)

	categoryID := primitive.NewObjectID()
	categoryRepo.On("GetByID", ctx, categoryID).Return(nil, repository.ErrCategoryNotFound)

	service := NewProductService(productRepo, categoryRepo, publisher)

	// Act
	product, err := service.Create(ctx, newCreateProductRequest(categoryID), nil)

	// Assert
	assert.Nil(t, product)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

// ==================== Update ====================

func TestProductService_Update_PartialFields(t *testing.T) {
	// Arrange
	ctx := context.Background()
	productRepo := new(mocks.MockProductRepository)
	categoryRepo := new(mocks.MockCategoryRepository)
	publisher := new(mocks.MockMessagePublisher)

	existing := newTestProduct(primitive.NewObjectID())
	productRepo.On("GetByID", ctx, existing.ID).Return(existing, nil)
	productRepo.On("Update", ctx, mock.AnythingOfType("*entity.Product")).Return(nil)

	service := NewProductService(productRepo, categoryRepo, publisher)

	newName := "Gaming Laptop"
	req := &entity.UpdateProductRequest{Name: &newName}

	// Act
	product, err := service.Update(ctx, existing.ID, req, nil)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Gaming Laptop", product.Name)
	// Непереданные поля сохраняют прежние значения
	assert.Equal(t, 1299.99, product.Price)
	assert.Equal(t, 10, product.Quantity)

	// Цена не менялась - событие не отправляется
	publisher.AssertNotCalled(t, "PublishMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestProductService_Update_PriceChangePublishesEvent(t *testing.T) {
	// Arrange
	ctx := context.Background()
	productRepo := new(mocks.MockProductRepository)
	categoryRepo := new(mocks.MockCategoryRepository)
	publisher := new(mocks.MockMessagePublisher)

	existing := newTestProduct(primitive.NewObjectID())
	productRepo.On("GetByID", ctx, existing.ID).Return(existing, nil)
	productRepo.On("Update", ctx, mock.AnythingOfType("*entity.Product")).Return(nil)
	publisher.On("PublishMessage", ctx, existing.ID.Hex(), mock.Anything).Return(nil)

	service := NewProductService(productRepo, categoryRepo, publisher)

	newPrice := 999.99
	req := &entity.UpdateProductRequest{Price: &newPrice}

	// Act
	product, err := service.Update(ctx, existing.ID, req, nil)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 999.99, product.Price)
	publisher.AssertExpectations(t)
}

func TestProductService_Update_NotFound(t *testing.T) {
	// Arrange
	ctx := context.Background()
	productRepo := new(mocks.MockProductRepository)
	categoryRepo := new(mocks.MockCategoryRepository)
	publisher := new(mocks.MockMessagePublisher)

	id := primitive.NewObjectID()
	productRepo.On("GetByID", ctx, id).Return(nil, repository.ErrProductNotFound)

	service := NewProductService(productRepo, categoryRepo, publisher)

	// Act
	product, err := service.Update(ctx, id, &entity.UpdateProductRequest{}, nil)

	// Assert
	assert.Nil(t, product)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

// ==================== List ====================

func TestProductService_List_Defaults(t *testing.T) {
	// Arrange
	ctx := context.Background()
	productRepo := new(mocks.MockProductRepository)
	categoryRepo := new(mocks.MockCategoryRepository)
	publisher := new(mocks.MockMessagePublisher)

	expectedOpts := repository.ListOptions{
		SortBy:     "_id",
		Descending: false,
		Limit:      6,
	}
	productRepo.On("List", ctx, expectedOpts).Return([]entity.ProductWithCategory{}, nil)

	service := NewProductService(productRepo, categoryRepo, publisher)

	// Act
	_, err := service.List(ctx, &entity.ListProductsRequest{})

	// Assert
	require.NoError(t, err)
	productRepo.AssertExpectations(t)
}

func TestProductService_List_InvalidOrder(t *testing.T) {
	// Arrange
	ctx := context.Background()
	productRepo := new(mocks.MockProductRepository)
	categoryRepo := new(mocks.MockCategoryRepository)
	publisher := new(mocks.MockMessagePublisher)

	service := NewProductService(productRepo, categoryRepo, publisher)

	// Act
	products, err := service.List(ctx, &entity.ListProductsRequest{Order: "sideways"})

	// Assert
	assert.Nil(t, products)
	assert.ErrorIs(t, err, ErrInvalidSortOrder)
	productRepo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

// ==================== ListByFilter ====================

func TestProductService_ListByFilter_Defaults(t *testing.T) {
	// Arrange
	ctx := context.Background()
	productRepo := new(mocks.MockProductRepository)
	categoryRepo := new(mocks.MockCategoryRepository)
	publisher := new(mocks.MockMessagePublisher)

	expectedOpts := repository.ListOptions{
		SortBy:     "_id",
		Descending: true,
		Limit:      4,
		Skip:       0,
	}
	productRepo.On("Find", ctx, mock.AnythingOfType("repository.ProductQuery"), expectedOpts).
		Return([]entity.Product{}, nil)

	service := NewProductService(productRepo, categoryRepo, publisher)

	// Act
	result, err := service.ListByFilter(ctx, &entity.FilterProductsRequest{})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 0, result.Size)
	assert.NotNil(t, result.Data)
	productRepo.AssertExpectations(t)
}

func TestProductService_ListByFilter_PriceRange(t *testing.T) {
	// Arrange
	ctx := context.Background()
	productRepo := new(mocks.MockProductRepository)
	categoryRepo := new(mocks.MockCategoryRepository)
	publisher := new(mocks.MockMessagePublisher)

	var captured repository.ProductQuery
	productRepo.On("Find", ctx, mock.AnythingOfType("repository.ProductQuery"), mock.AnythingOfType("repository.ListOptions")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(repository.ProductQuery)
		}).
		Return([]entity.Product{*newTestProduct(primitive.NewObjectID())}, nil)

	service := NewProductService(productRepo, categoryRepo, publisher)

	req := &entity.FilterProductsRequest{
		Filters: map[string][]interface{}{
			"price":    {float64(100), float64(500)},
			"category": {primitive.NewObjectID().Hex()},
			"shipping": {},
		},
	}

	// Act
	result, err := service.ListByFilter(ctx, req)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, result.Size)

	require.NotNil(t, captured.Price)
	assert.Equal(t, float64(100), captured.Price.Min)
	assert.Equal(t, float64(500), captured.Price.Max)

	// price ушёл в диапазон, пустой shipping отброшен
	assert.Contains(t, captured.Exact, "category")
	assert.NotContains(t, captured.Exact, "price")
	assert.NotContains(t, captured.Exact, "shipping")
}

func TestProductService_ListByFilter_BadPriceRange(t *testing.T) {
	// Arrange
	ctx := context.Background()
	productRepo := new(mocks.MockProductRepository)
	categoryRepo := new(mocks.MockCategoryRepository)
	publisher := new(mocks.MockMessagePublisher)

	service := NewProductService(productRepo, categoryRepo, publisher)

	req := &entity.FilterProductsRequest{
		Filters: map[string][]interface{}{
			"price": {float64(100)},
		},
	}

	// Act
	result, err := service.ListByFilter(ctx, req)

	// Assert
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrInvalidPriceFilter)
	productRepo.AssertNotCalled(t, "Find", mock.Anything, mock.Anything, mock.Anything)
}

// ==================== Search ====================

func TestProductService_Search_EmptyTermSkipsStore(t *testing.T) {
	// Arrange
	ctx := context.Background()
	productRepo := new(mocks.MockProductRepository)
	categoryRepo := new(mocks.MockCategoryRepository)
	publisher := new(mocks.MockMessagePublisher)

	service := NewProductService(productRepo, categoryRepo, publisher)

	// Act
	products, err := service.Search(ctx, "", "")

	// Assert
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.NotNil(t, products)

	// Пустой запрос не должен обращаться к хранилищу
	productRepo.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
}

func TestProductService_Search_CategoryAllIgnored(t *testing.T) {
	// Arrange
	ctx := context.Background()
	productRepo := new(mocks.MockProductRepository)
	categoryRepo := new(mocks.MockCategoryRepository)
	publisher := new(mocks.MockMessagePublisher)

	productRepo.On("Search", ctx, "laptop", (*primitive.ObjectID)(nil)).
		Return([]entity.Product{*newTestProduct(primitive.NewObjectID())}, nil)

	service := NewProductService(productRepo, categoryRepo, publisher)

	// Act
	products, err := service.Search(ctx, "laptop", "All")

	// Assert
	require.NoError(t, err)
	assert.Len(t, products, 1)
	productRepo.AssertExpectations(t)
}

func TestProductService_Search_WithCategory(t *testing.T) {
	// Arrange
	ctx := context.Background()
	productRepo := new(mocks.MockProductRepository)
	categoryRepo := new(mocks.MockCategoryRepository)
	publisher := new(mocks.MockMessagePublisher)

	categoryID := primitive.NewObjectID()
	productRepo.On("Search", ctx, "laptop", &categoryID).
		Return([]entity.Product{}, nil)

	service := NewProductService(productRepo, categoryRepo, publisher)

	// Act
	products, err := service.Search(ctx, "laptop", categoryID.Hex())

	// Assert
	require.NoError(t, err)
	assert.NotNil(t, products)
	productRepo.AssertExpectations(t)
}

// ==================== Related / Photo ====================

func TestProductService_ListRelated_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	productRepo := new(mocks.MockProductRepository)
	categoryRepo := new(mocks.MockCategoryRepository)
	publisher := new(mocks.MockMessagePublisher)

	product := newTestProduct(primitive.NewObjectID())
	productRepo.On("GetByID", ctx, product.ID).Return(product, nil)
	productRepo.On("ListRelated", ctx, product.CategoryID, product.ID, int64(6)).
		Return([]entity.ProductWithCategory{}, nil)

	service := NewProductService(productRepo, categoryRepo, publisher)

	// Act
	_, err := service.ListRelated(ctx, product.ID, 0)

	// Assert
	require.NoError(t, err)
	productRepo.AssertExpectations(t)
}

func TestProductService_Photo_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	productRepo := new(mocks.MockProductRepository)
	categoryRepo := new(mocks.MockCategoryRepository)
	publisher := new(mocks.MockMessagePublisher)

	product := newTestProduct(primitive.NewObjectID())
	product.Photo = &entity.Photo{Data: []byte{1, 2, 3}, ContentType: "image/png"}
	productRepo.On("GetByID", ctx, product.ID).Return(product, nil)

	service := NewProductService(productRepo, categoryRepo, publisher)

	// Act
	photo, err := service.Photo(ctx, product.ID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "image/png", photo.ContentType)
	assert.Equal(t, []byte{1, 2, 3}, photo.Data)
}

func TestProductService_Photo_Missing(t *testing.T) {
	// Arrange
	ctx := context.Background()
	productRepo := new(mocks.MockProductRepository)
	categoryRepo := new(mocks.MockCategoryRepository)
	publisher := new(mocks.MockMessagePublisher)

	product := newTestProduct(primitive.NewObjectID())
	productRepo.On("GetByID", ctx, product.ID).Return(product, nil)

	service := NewProductService(productRepo, categoryRepo, publisher)

	// Act
	photo, err := service.Photo(ctx, product.ID)

	// Assert
	assert.Nil(t, photo)
	assert.ErrorIs(t, err, ErrNoPhoto)
}
