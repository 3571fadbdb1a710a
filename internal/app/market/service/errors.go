package service

import (
	"errors"
	"fmt"
	"strings"
)

// MaxPhotoSize - предельный размер фото товара в байтах
const MaxPhotoSize = 1_000_000

var (
	// Ошибки бизнес-логики для обработки в handlers
	ErrCategoryNotFound   = errors.New("category not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrNoPhoto            = errors.New("product has no photo")
	ErrInvalidSortOrder   = errors.New("order must be asc or desc")
	ErrCategoryExists     = errors.New("category with this name already exists")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ValidationError перечисляет отсутствующие обязательные поля
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// PhotoTooLargeError - фото превышает предельный размер
type PhotoTooLargeError struct {
	Size int
}

func (e *PhotoTooLargeError) Error() string {
	return fmt.Sprintf("photo size %d exceeds limit of %d bytes", e.Size, MaxPhotoSize)
}

// CategoryNotEmptyError - категорию нельзя удалить, пока на неё ссылаются товары
type CategoryNotEmptyError struct {
	Name  string
	Count int64
}

func (e *CategoryNotEmptyError) Error() string {
	return fmt.Sprintf("cannot delete category %q: %d product(s) still reference it", e.Name, e.Count)
}
