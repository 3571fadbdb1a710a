package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"yantarmarket/internal/app/market/entity"
	"yantarmarket/internal/app/market/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CatalogHandler обрабатывает HTTP запросы каталога: категории и товары
type CatalogHandler struct {
	categorySvc service.CategoryServiceInterface
	productSvc  service.ProductServiceInterface
	validator   *validator.Validate
}

// NewCatalogHandler создает новый обработчик каталога
func NewCatalogHandler(categorySvc service.CategoryServiceInterface, productSvc service.ProductServiceInterface) *CatalogHandler {
	return &CatalogHandler{
		categorySvc: categorySvc,
		productSvc:  productSvc,
		validator:   validator.New(),
	}
}

// === CATEGORIES ===

// CreateCategory обрабатывает POST /categories
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req entity.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		respondError(c, http.StatusBadRequest, formatValidationError(err))
		return
	}

	category, err := h.categorySvc.Create(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrCategoryExists) {
			respondError(c, http.StatusConflict, err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusCreated, category)
}

// GetCategory обрабатывает GET /categories/:id
func (h *CatalogHandler) GetCategory(c *gin.Context) {
	id, ok := parseObjectID(c, "id")
	if !ok {
		return
	}

	category, err := h.categorySvc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			respondError(c, http.StatusNotFound, "category not found")
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, category)
}

// GetAllCategories обрабатывает GET /categories (с кешированием в Redis)
func (h *CatalogHandler) GetAllCategories(c *gin.Context) {
	categories, err := h.categorySvc.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, categories)
}

// UpdateCategory обрабатывает PUT /categories/:id
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	id, ok := parseObjectID(c, "id")
	if !ok {
		return
	}

	var req entity.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		respondError(c, http.StatusBadRequest, formatValidationError(err))
		return
	}

	category, err := h.categorySvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCategoryNotFound):
			respondError(c, http.StatusNotFound, "category not found")
		case errors.Is(err, service.ErrCategoryExists):
			respondError(c, http.StatusConflict, err.Error())
		default:
			respondError(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, category)
}

// DeleteCategory обрабатывает DELETE /categories/:id
// Непустая категория не удаляется: в ответе имя категории
// и количество блокирующих товаров
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	id, ok := parseObjectID(c, "id")
	if !ok {
		return
	}

	if err := h.categorySvc.Delete(c.Request.Context(), id); err != nil {
		var notEmpty *service.CategoryNotEmptyError
		switch {
		case errors.As(err, &notEmpty):
			c.JSON(http.StatusBadRequest, entity.MessageResponse{Message: notEmpty.Error()})
		case errors.Is(err, service.ErrCategoryNotFound):
			respondError(c, http.StatusNotFound, "category not found")
		default:
			respondError(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, entity.MessageResponse{Message: "category deleted successfully"})
}

// === PRODUCTS ===

// CreateProduct обрабатывает POST /products (multipart форма с фото)
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	req, photo, ok := h.parseCreateProductForm(c)
	if !ok {
		return
	}

	product, err := h.productSvc.Create(c.Request.Context(), req, photo)
	if err != nil {
		respondProductError(c, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

// GetProduct обрабатывает GET /products/:id
// Фото исключено из ответа и отдаётся отдельным endpoint
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, ok := parseObjectID(c, "id")
	if !ok {
		return
	}

	product, err := h.productSvc.Get(c.Request.Context(), id)
	if err != nil {
		respondProductError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// UpdateProduct обрабатывает PUT /products/:id (multipart форма)
// Отсутствующие в форме поля сохраняют прежние значения
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseObjectID(c, "id")
	if !ok {
		return
	}

	req, photo, ok := h.parseUpdateProductForm(c)
	if !ok {
		return
	}

	product, err := h.productSvc.Update(c.Request.Context(), id, req, photo)
	if err != nil {
		respondProductError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// DeleteProduct обрабатывает DELETE /products/:id
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseObjectID(c, "id")
	if !ok {
		return
	}

	if err := h.productSvc.Delete(c.Request.Context(), id); err != nil {
		respondProductError(c, err)
		return
	}

	c.JSON(http.StatusOK, entity.MessageResponse{Message: "product deleted successfully"})
}

// ListProducts обрабатывает GET /products?sortBy=&order=&limit=
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	limit, ok := parseIntQuery(c, "limit")
	if !ok {
		return
	}

	req := entity.ListProductsRequest{
		SortBy: c.Query("sortBy"),
		Order:  c.Query("order"),
		Limit:  limit,
	}

	products, err := h.productSvc.List(c.Request.Context(), &req)
	if err != nil {
		respondProductError(c, err)
		return
	}

	c.JSON(http.StatusOK, products)
}

// ListRelatedProducts обрабатывает GET /products/:id/related?limit=
func (h *CatalogHandler) ListRelatedProducts(c *gin.Context) {
	id, ok := parseObjectID(c, "id")
	if !ok {
		return
	}

	limit, ok := parseIntQuery(c, "limit")
	if !ok {
		return
	}

	products, err := h.productSvc.ListRelated(c.Request.Context(), id, limit)
	if err != nil {
		respondProductError(c, err)
		return
	}

	c.JSON(http.StatusOK, products)
}

// ListUsedCategories обрабатывает GET /products/categories
func (h *CatalogHandler) ListUsedCategories(c *gin.Context) {
	ids, err := h.productSvc.ListCategoriesInUse(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, ids)
}

// FilterProducts обрабатывает POST /products/filter
// Ответ в формате {size, data}
func (h *CatalogHandler) FilterProducts(c *gin.Context) {
	var req entity.FilterProductsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.productSvc.ListByFilter(c.Request.Context(), &req)
	if err != nil {
		respondProductError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SearchProducts обрабатывает GET /products/search?search=&category=
func (h *CatalogHandler) SearchProducts(c *gin.Context) {
	products, err := h.productSvc.Search(c.Request.Context(), c.Query("search"), c.Query("category"))
	if err != nil {
		respondProductError(c, err)
		return
	}

	c.JSON(http.StatusOK, products)
}

// ProductPhoto обрабатывает GET /products/:id/photo
// Отдаёт бинарные данные фото с исходным content type
func (h *CatalogHandler) ProductPhoto(c *gin.Context) {
	id, ok := parseObjectID(c, "id")
	if !ok {
		return
	}

	photo, err := h.productSvc.Photo(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNoPhoto) {
			respondError(c, http.StatusNotFound, "product has no photo")
			return
		}
		respondProductError(c, err)
		return
	}

	contentType := photo.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.Data(http.StatusOK, contentType, photo.Data)
}

// === FORM PARSING ===

// parseCreateProductForm разбирает multipart форму создания товара.
// Отсутствующие поля остаются nil - полноту проверяет service layer,
// чтобы перечислить все пропуски разом.
func (h *CatalogHandler) parseCreateProductForm(c *gin.Context) (*entity.CreateProductRequest, *entity.Photo, bool) {
	if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil {
		respondError(c, http.StatusBadRequest, "invalid multipart form")
		return nil, nil, false
	}

	req := &entity.CreateProductRequest{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		CategoryID:  c.PostForm("category"),
	}

	if v, present := formValue(c, "price"); present {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil || price < 0 {
			respondError(c, http.StatusBadRequest, "price must be a non-negative number")
			return nil, nil, false
		}
		req.Price = &price
	}
	if v, present := formValue(c, "quantity"); present {
		quantity, err := strconv.Atoi(v)
		if err != nil {
			respondError(c, http.StatusBadRequest, "quantity must be an integer")
			return nil, nil, false
		}
		req.Quantity = &quantity
	}
	if v, present := formValue(c, "shipping"); present {
		shipping, err := strconv.ParseBool(v)
		if err != nil {
			respondError(c, http.StatusBadRequest, "shipping must be a boolean")
			return nil, nil, false
		}
		req.Shipping = &shipping
	}

	photo, ok := parsePhoto(c)
	if !ok {
		return nil, nil, false
	}

	return req, photo, true
}

// parseUpdateProductForm разбирает multipart форму частичного обновления
func (h *CatalogHandler) parseUpdateProductForm(c *gin.Context) (*entity.UpdateProductRequest, *entity.Photo, bool) {
	if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil {
		respondError(c, http.StatusBadRequest, "invalid multipart form")
		return nil, nil, false
	}

	req := &entity.UpdateProductRequest{}

	if v, present := formValue(c, "name"); present {
		req.Name = &v
	}
	if v, present := formValue(c, "description"); present {
		req.Description = &v
	}
	if v, present := formValue(c, "category"); present {
		req.CategoryID = &v
	}
	if v, present := formValue(c, "price"); present {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil || price < 0 {
			respondError(c, http.StatusBadRequest, "price must be a non-negative number")
			return nil, nil, false
		}
		req.Price = &price
	}
	if v, present := formValue(c, "quantity"); present {
		quantity, err := strconv.Atoi(v)
		if err != nil {
			respondError(c, http.StatusBadRequest, "quantity must be an integer")
			return nil, nil, false
		}
		req.Quantity = &quantity
	}
	if v, present := formValue(c, "shipping"); present {
		shipping, err := strconv.ParseBool(v)
		if err != nil {
			respondError(c, http.StatusBadRequest, "shipping must be a boolean")
			return nil, nil, false
		}
		req.Shipping = &shipping
	}

	photo, ok := parsePhoto(c)
	if !ok {
		return nil, nil, false
	}

	return req, photo, true
}

// maxFormMemory - буфер разбора multipart формы в памяти
const maxFormMemory = 8 << 20

// formValue возвращает значение поля формы и признак его присутствия
func formValue(c *gin.Context, key string) (string, bool) {
	form := c.Request.MultipartForm
	if form == nil {
		return "", false
	}
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// parsePhoto читает файл photo из формы, если он передан
func parsePhoto(c *gin.Context) (*entity.Photo, bool) {
	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, true
		}
		respondError(c, http.StatusBadRequest, "failed to read photo")
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to read photo")
		return nil, false
	}

	return &entity.Photo{
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
	}, true
}

// === HELPERS ===

// respondProductError переводит ошибки сервиса товаров в HTTP статусы
func respondProductError(c *gin.Context, err error) {
	var validation *service.ValidationError
	var tooLarge *service.PhotoTooLargeError

	switch {
	case errors.As(err, &validation):
		respondError(c, http.StatusBadRequest, validation.Error())
	case errors.As(err, &tooLarge):
		respondError(c, http.StatusRequestEntityTooLarge, tooLarge.Error())
	case errors.Is(err, service.ErrInvalidSortOrder),
		errors.Is(err, service.ErrInvalidPriceFilter):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrProductNotFound):
		respondError(c, http.StatusNotFound, "product not found")
	case errors.Is(err, service.ErrCategoryNotFound):
		respondError(c, http.StatusNotFound, "category not found")
	default:
		respondError(c, http.StatusInternalServerError, err.Error())
	}
}

// respondError отправляет ответ об ошибке в формате {error: ...}
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, entity.ErrorResponse{Error: message})
}

// parseObjectID разбирает hex ID из параметра пути
func parseObjectID(c *gin.Context, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid id")
		return primitive.NilObjectID, false
	}
	return id, true
}

// parseIntQuery разбирает необязательный числовой query-параметр
func parseIntQuery(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid "+key)
		return 0, false
	}
	return value, true
}

// formatValidationError форматирует ошибки валидации DTO
func formatValidationError(err error) string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrors) > 0 {
			return validationErrors[0].Field() + " validation failed"
		}
	}
	return "validation failed"
}
