package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"yantarmarket/internal/app/market/entity"
	"yantarmarket/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Фото исключается из всех выборок списков: бинарные данные
// отдаются только через отдельный endpoint по одному товару
var noPhotoProjection = bson.M{"photo": 0}

type productRepository struct {
	collection *mongo.Collection
	categories *mongo.Collection
}

// NewProductRepository создает новый репозиторий товаров
// Автоматически создает индекс по category для быстрых выборок и подсчётов
func NewProductRepository(db *mongo.Database) ProductRepository {
	collection := db.Collection("products")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "category", Value: 1}},
		Options: options.Index().SetName("category_idx"),
	}

	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		// Логируем ошибку, но не прерываем работу - индекс может уже существовать
		logger.Warn().Err(err).Msg("failed to create index on product category")
	}

	return &productRepository{
		collection: collection,
		categories: db.Collection("categories"),
	}
}

// Create создает новый товар в MongoDB
func (r *productRepository) Create(ctx context.Context, product *entity.Product) error {
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, product)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		product.ID = oid
	}

	return nil
}

// GetByID получает полный документ товара, включая фото
func (r *productRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*entity.Product, error) {
	var product entity.Product
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &product, nil
}

// GetWithCategory получает товар без фото с развёрнутой категорией
func (r *productRepository) GetWithCategory(ctx context.Context, id primitive.ObjectID) (*entity.ProductWithCategory, error) {
	var product entity.Product
	opts := options.FindOne().SetProjection(noPhotoProjection)
	err := r.collection.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	resolved, err := r.resolveCategories(ctx, []entity.Product{product})
	if err != nil {
		return nil, err
	}

	return &resolved[0], nil
}

// List получает товары с сортировкой и лимитом, фото исключается
func (r *productRepository) List(ctx context.Context, opts ListOptions) ([]entity.ProductWithCategory, error) {
	findOpts := options.Find().
		SetProjection(noPhotoProjection).
		SetSort(sortSpec(opts)).
		SetLimit(opts.Limit)

	cursor, err := r.collection.Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []entity.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	return r.resolveCategories(ctx, products)
}

// ListRelated получает товары той же категории, исключая сам товар
func (r *productRepository) ListRelated(ctx context.Context, categoryID, exclude primitive.ObjectID, limit int64) ([]entity.ProductWithCategory, error) {
	filter := bson.M{
		"_id":      bson.M{"$ne": exclude},
		"category": categoryID,
	}
	findOpts := options.Find().
		SetProjection(noPhotoProjection).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to find related products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []entity.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode related products: %w", err)
	}

	return r.resolveCategories(ctx, products)
}

// DistinctCategoryIDs возвращает множество категорий, используемых товарами
func (r *productRepository) DistinctCategoryIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	values, err := r.collection.Distinct(ctx, "category", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to get distinct categories: %w", err)
	}

	ids := make([]primitive.ObjectID, 0, len(values))
	for _, v := range values {
		if id, ok := v.(primitive.ObjectID); ok {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

// Find выполняет составной фильтр с сортировкой и пагинацией
func (r *productRepository) Find(ctx context.Context, query ProductQuery, opts ListOptions) ([]entity.Product, error) {
	filter := bson.M{}

	if query.Price != nil {
		filter["price"] = bson.M{
			"$gte": query.Price.Min,
			"$lte": query.Price.Max,
		}
	}

	for key, values := range query.Exact {
		filter[key] = bson.M{"$in": coerceFilterValues(key, values)}
	}

	findOpts := options.Find().
		SetProjection(noPhotoProjection).
		SetSort(sortSpec(opts)).
		SetSkip(opts.Skip).
		SetLimit(opts.Limit)

	cursor, err := r.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to filter products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []entity.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode filtered products: %w", err)
	}

	return products, nil
}

// Search ищет подстроку в имени товара без учёта регистра
func (r *productRepository) Search(ctx context.Context, term string, categoryID *primitive.ObjectID) ([]entity.Product, error) {
	filter := bson.M{
		"name": bson.M{"$regex": term, "$options": "i"},
	}
	if categoryID != nil {
		filter["category"] = *categoryID
	}

	findOpts := options.Find().SetProjection(noPhotoProjection)

	cursor, err := r.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []entity.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}

	return products, nil
}

// GetManyByIDs получает товары по списку ID без фото
func (r *productRepository) GetManyByIDs(ctx context.Context, ids []primitive.ObjectID) ([]entity.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	findOpts := options.Find().SetProjection(noPhotoProjection)

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to find products by ids: %w", err)
	}
	defer cursor.Close(ctx)

	var products []entity.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	return products, nil
}

// CountByCategory считает товары, ссылающиеся на категорию
func (r *productRepository) CountByCategory(ctx context.Context, categoryID primitive.ObjectID) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"category": categoryID})
	if err != nil {
		return 0, fmt.Errorf("failed to count products by category: %w", err)
	}

	return count, nil
}

// FindOversold возвращает товары с отрицательным остатком
func (r *productRepository) FindOversold(ctx context.Context) ([]entity.Product, error) {
	findOpts := options.Find().SetProjection(noPhotoProjection)

	cursor, err := r.collection.Find(ctx, bson.M{"quantity": bson.M{"$lt": 0}}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to find oversold products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []entity.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode oversold products: %w", err)
	}

	return products, nil
}

// Update перезаписывает изменяемые поля товара
func (r *productRepository) Update(ctx context.Context, product *entity.Product) error {
	product.UpdatedAt = time.Now()

	set := bson.M{
		"name":        product.Name,
		"description": product.Description,
		"price":       product.Price,
		"category":    product.CategoryID,
		"quantity":    product.Quantity,
		"shipping":    product.Shipping,
		"updated_at":  product.UpdatedAt,
	}
	if product.Photo != nil {
		set["photo"] = product.Photo
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": product.ID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Delete удаляет товар
func (r *productRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrProductNotFound
	}

	return nil
}

// ApplyInventoryDeltas применяет изменения остатков одним BulkWrite.
// Каждая позиция - атомарный $inc по своему документу; упорядоченная
// запись останавливается на первой ошибке, частичное применение
// фиксируется вызывающей стороной в логах.
func (r *productRepository) ApplyInventoryDeltas(ctx context.Context, deltas []InventoryDelta) error {
	if len(deltas) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(deltas))
	for _, d := range deltas {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": d.ProductID}).
			SetUpdate(bson.M{
				"$inc": bson.M{
					"quantity": -d.Count,
					"sold":     d.Count,
				},
			}))
	}

	if _, err := r.collection.BulkWrite(ctx, models); err != nil {
		return fmt.Errorf("failed to apply inventory deltas: %w", err)
	}

	return nil
}

// resolveCategories разворачивает ссылки на категории одним запросом $in
func (r *productRepository) resolveCategories(ctx context.Context, products []entity.Product) ([]entity.ProductWithCategory, error) {
	ids := make([]primitive.ObjectID, 0, len(products))
	seen := make(map[primitive.ObjectID]struct{}, len(products))
	for _, p := range products {
		if _, ok := seen[p.CategoryID]; !ok {
			seen[p.CategoryID] = struct{}{}
			ids = append(ids, p.CategoryID)
		}
	}

	byID := make(map[primitive.ObjectID]entity.Category, len(ids))
	if len(ids) > 0 {
		cursor, err := r.categories.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			return nil, fmt.Errorf("failed to resolve categories: %w", err)
		}
		defer cursor.Close(ctx)

		var categories []entity.Category
		if err := cursor.All(ctx, &categories); err != nil {
			return nil, fmt.Errorf("failed to decode categories: %w", err)
		}
		for _, c := range categories {
			byID[c.ID] = c
		}
	}

	resolved := make([]entity.ProductWithCategory, 0, len(products))
	for _, p := range products {
		resolved = append(resolved, entity.ProductWithCategory{
			Product:  p,
			Category: byID[p.CategoryID],
		})
	}

	return resolved, nil
}

// sortSpec переводит ListOptions в описание сортировки MongoDB
func sortSpec(opts ListOptions) bson.D {
	order := 1
	if opts.Descending {
		order = -1
	}
	return bson.D{{Key: sortField(opts.SortBy), Value: order}}
}

// sortField приводит API-имена полей сортировки к именам полей документа
func sortField(field string) string {
	switch field {
	case "createdAt":
		return "created_at"
	case "updatedAt":
		return "updated_at"
	default:
		return field
	}
}

// coerceFilterValues приводит значения фильтра к типам полей документа.
// Значения ключа category приходят из JSON строками, в документе это ObjectID.
func coerceFilterValues(key string, values []interface{}) []interface{} {
	if key != "category" {
		return values
	}

	coerced := make([]interface{}, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			if id, err := primitive.ObjectIDFromHex(s); err == nil {
				coerced = append(coerced, id)
				continue
			}
		}
		coerced = append(coerced, v)
	}

	return coerced
}
