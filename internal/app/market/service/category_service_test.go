package service

import (
	"context"
	"errors"
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

func newTestCategory() *entity.Category {
	return &entity.Category{
		ID:        primitive.NewObjectID(),
		Name:      "Electronics",
		CreatedAt: time.Now(),
	}
}

func TestCategoryService_Create_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	categoryRepo := new(mocks.MockCategoryRepository)
	productRepo := new(mocks.MockProductRepository)
	cache := new(mocks.MockCategoryCache)

	categoryRepo.On("Create", ctx, mock.AnythingOfType("*entity.Category")).Return(nil)
	cache.On("DeleteCategories", ctx).Return(nil)

	service := NewCategoryService(categoryRepo, productRepo, cache)

	req := &entity.CreateCategoryRequest{Name: "Electronics"}

	// Act
	category, err := service.Create(ctx, req)

	// Assert
	require.NoError(t, err)
	assert.NotNil(t, category)
	assert.Equal(t, "Electronics", category.Name)

	categoryRepo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestCategoryService_Create_DuplicateName(t *testing.T) {
	// Arrange
	ctx := context.Background()
	categoryRepo := new(mocks.MockCategoryRepository)
	productRepo := new(mocks.MockProductRepository)
	cache := new(mocks.MockCategoryCache)

	categoryRepo.On("Create", ctx, mock.AnythingOfType("*entity.Category")).Return(repository.ErrDuplicateKey)

	service := NewCategoryService(categoryRepo, productRepo, cache)

	// Act
	category, err := service.Create(ctx, &entity.CreateCategoryRequest{Name: "Electronics"})

	// Assert
	assert.Nil(t, category)
	assert.ErrorIs(t, err, ErrCategoryExists)
}

func TestCategoryService_GetAll_CacheHit(t *testing.T) {
	// Arrange
	ctx := context.Background()
	categoryRepo := new(mocks.MockCategoryRepository)
	productRepo := new(mocks.MockProductRepository)
	cache := new(mocks.MockCategoryCache)

	cached := []entity.Category{*newTestCategory()}
	cache.On("GetCategories", ctx).Return(cached, nil)

	service := NewCategoryService(categoryRepo, productRepo, cache)

	// Act
	categories, err := service.GetAll(ctx)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, cached, categories)

	// БД не трогаем при попадании в кеш
	categoryRepo.AssertNotCalled(t, "GetAll", mock.Anything)
}

func TestCategoryService_GetAll_CacheMiss(t *testing.T) {
	// Arrange
	ctx := context.Background()
	categoryRepo := new(mocks.MockCategoryRepository)
	productRepo := new(mocks.MockProductRepository)
	cache := new(mocks.MockCategoryCache)

	stored := []entity.Category{*newTestCategory(), *newTestCategory()}
	cache.On("GetCategories", ctx).Return(nil, nil)
	categoryRepo.On("GetAll", ctx).Return(stored, nil)
	cache.On("SetCategories", ctx, stored, time.Hour).Return(nil)

	service := NewCategoryService(categoryRepo, productRepo, cache)

	// Act
	categories, err := service.GetAll(ctx)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, stored, categories)

	categoryRepo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestCategoryService_Update_NotFound(t *testing.T) {
	// Arrange
	ctx := context.Background()
	categoryRepo := new(mocks.MockCategoryRepository)
	productRepo := new(mocks.MockProductRepository)
	cache := new(mocks.MockCategoryCache)

	id := primitive.NewObjectID()
	categoryRepo.On("GetByID", ctx, id).Return(nil, repository.ErrCategoryNotFound)

	service := NewCategoryService(categoryRepo, productRepo, cache)

	// Act
	category, err := service.Update(ctx, id, &entity.UpdateCategoryRequest{Name: "Books"})

	// Assert
	assert.Nil(t, category)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCategoryService_Delete_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	categoryRepo := new(mocks.MockCategoryRepository)
	productRepo := new(mocks.MockProductRepository)
	cache := new(mocks.MockCategoryCache)

	category := newTestCategory()
	categoryRepo.On("GetByID", ctx, category.ID).Return(category, nil)
	productRepo.On("CountByCategory", ctx, category.ID).Return(int64(0), nil)
	categoryRepo.On("Delete", ctx, category.ID).Return(nil)
	cache.On("DeleteCategories", ctx).Return(nil)

	service := NewCategoryService(categoryRepo, productRepo, cache)

	// Act
	err := service.Delete(ctx, category.ID)

	// Assert
	require.NoError(t, err)
	categoryRepo.AssertExpectations(t)
	productRepo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestCategoryService_Delete_BlockedByProducts(t *testing.T) {
	// Arrange
	ctx := context.Background()
	categoryRepo := new(mocks.MockCategoryRepository)
	productRepo := new(mocks.MockProductRepository)
	cache := new(mocks.MockCategoryCache)

	category := newTestCategory()
	categoryRepo.On("GetByID", ctx, category.ID).Return(category, nil)
	productRepo.On("CountByCategory", ctx, category.ID).Return(int64(3), nil)

	service := NewCategoryService(categoryRepo, productRepo, cache)

	// Act
	err := service.Delete(ctx, category.ID)

	// Assert
	require.Error(t, err)

	var notEmpty *CategoryNotEmptyError
	require.ErrorAs(t, err, &notEmpty)
	assert.Equal(t, category.Name, notEmpty.Name)
	assert.Equal(t, int64(3), notEmpty.Count)
	assert.Contains(t, err.Error(), "3 product(s)")

	// Удаление не должно выполняться
	categoryRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	cache.AssertNotCalled(t, "DeleteCategories", mock.Anything)
}

func TestCategoryService_Delete_SingleProductBlocks(t *testing.T) {
	// Arrange
	ctx := context.Background()
	categoryRepo := new(mocks.MockCategoryRepository)
	productRepo := new(mocks.MockProductRepository)
	cache := new(mocks.MockCategoryCache)

	category := newTestCategory()
	categoryRepo.On("GetByID", ctx, category.ID).Return(category, nil)
	productRepo.On("CountByCategory", ctx, category.ID).Return(int64(1), nil)

	service := NewCategoryService(categoryRepo, productRepo, cache)

	// Act
	err := service.Delete(ctx, category.ID)

	// Assert
	var notEmpty *CategoryNotEmptyError
	require.ErrorAs(t, err, &notEmpty)
	assert.Equal(t, int64(1), notEmpty.Count)
	categoryRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestCategoryService_Delete_NotFound(t *testing.T) {
	// Arrange
	ctx := context.Background()
	categoryRepo := new(mocks.MockCategoryRepository)
	productRepo := new(mocks.MockProductRepository)
	cache := new(mocks.MockCategoryCache)

	id := primitive.NewObjectID()
	categoryRepo.On("GetByID", ctx, id).Return(nil, repository.ErrCategoryNotFound)

	service := NewCategoryService(categoryRepo, productRepo, cache)

	// Act
	err := service.Delete(ctx, id)

	// Assert
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCategoryService_Delete_CountError(t *testing.T) {
	// Arrange
	ctx := context.Background()
	categoryRepo := new(mocks.MockCategoryRepository)
	productRepo := new(mocks.MockProductRepository)
	cache := new(mocks.MockCategoryCache)

	category := newTestCategory()
	categoryRepo.On("GetByID", ctx, category.ID).Return(category, nil)
	productRepo.On("CountByCategory", ctx, category.ID).Return(int64(0), errors.New("db error"))

	service := NewCategoryService(categoryRepo, productRepo, cache)

	// Act
	err := service.Delete(ctx, category.ID)

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to count products")
	categoryRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
