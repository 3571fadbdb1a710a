package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"yantarmarket/internal/app/market/entity"
	"yantarmarket/internal/app/market/repository"
	"yantarmarket/internal/app/market/util"
	"yantarmarket/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Время жизни кеша списка категорий
const categoriesCacheTTL = time.Hour

// CategoryService обрабатывает бизнес-логику категорий каталога.
// Главный инвариант: категорию нельзя удалить, пока на неё
// ссылается хотя бы один товар.
type CategoryService struct {
	categoryRepo repository.CategoryRepository
	productRepo  repository.ProductRepository
	cache        util.CategoryCache
}

// NewCategoryService создает новый сервис категорий с внедрением зависимостей
func NewCategoryService(
	categoryRepo repository.CategoryRepository,
	productRepo repository.ProductRepository,
	cache util.CategoryCache,
) *CategoryService {
	return &CategoryService{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		cache:        cache,
	}
}

// Create создает новую категорию и инвалидирует кеш
func (s *CategoryService) Create(ctx context.Context, req *entity.CreateCategoryRequest) (*entity.Category, error) {
	category := &entity.Category{
		Name: req.Name,
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrCategoryExists
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.invalidateCache(ctx)

	return category, nil
}

// Get получает категорию по ID
func (s *CategoryService) Get(ctx context.Context, id primitive.ObjectID) (*entity.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return category, nil
}

// GetAll получает все категории с кешированием в Redis
// Сначала проверяет кеш, если нет - загружает из БД и кеширует
func (s *CategoryService) GetAll(ctx context.Context) ([]entity.Category, error) {
	categories, err := s.cache.GetCategories(ctx)
	if err == nil && len(categories) > 0 {
		return categories, nil
	}

	categories, err = s.categoryRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}

	if err := s.cache.SetCategories(ctx, categories, categoriesCacheTTL); err != nil {
		// Данные получены из БД, проблемы с кешем не критичны
		logger.Warn().Err(err).Msg("failed to cache categories")
	}

	return categories, nil
}

// Update переименовывает категорию и инвалидирует кеш
func (s *CategoryService) Update(ctx context.Context, id primitive.ObjectID, req *entity.UpdateCategoryRequest) (*entity.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	category.Name = req.Name

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrCategoryExists
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	s.invalidateCache(ctx)

	return category, nil
}

// Delete удаляет категорию, если на неё не ссылается ни один товар.
// При наличии ссылающихся товаров возвращает CategoryNotEmptyError
// с именем категории и точным количеством блокирующих товаров,
// удаление не выполняется.
func (s *CategoryService) Delete(ctx context.Context, id primitive.ObjectID) error {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to get category: %w", err)
	}

	count, err := s.productRepo.CountByCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count products in category: %w", err)
	}

	if count >= 1 {
		return &CategoryNotEmptyError{Name: category.Name, Count: count}
	}

	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}

	s.invalidateCache(ctx)

	return nil
}

// invalidateCache сбрасывает кеш категорий после изменения.
// Запись в БД уже выполнена, проблемы с кешем не критичны - логируем и продолжаем.
func (s *CategoryService) invalidateCache(ctx context.Context) {
	if err := s.cache.DeleteCategories(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to invalidate categories cache")
	}
}
