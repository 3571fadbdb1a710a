package handler

import (
	"errors"
	"net/http"

	"yantarmarket/internal/app/market/entity"
	"yantarmarket/internal/app/market/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserHandler обрабатывает регистрацию, вход, профиль
// и историю покупок пользователя
type UserHandler struct {
	authSvc    service.AuthServiceInterface
	historySvc service.HistoryServiceInterface
	validator  *validator.Validate
}

// NewUserHandler создает новый обработчик пользователей
func NewUserHandler(authSvc service.AuthServiceInterface, historySvc service.HistoryServiceInterface) *UserHandler {
	return &UserHandler{
		authSvc:    authSvc,
		historySvc: historySvc,
		validator:  validator.New(),
	}
}

// Register обрабатывает POST /auth/register
func (h *UserHandler) Register(c *gin.Context) {
	var req entity.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		respondError(c, http.StatusBadRequest, formatValidationError(err))
		return
	}

	user, err := h.authSvc.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			respondError(c, http.StatusConflict, err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Login обрабатывает POST /auth/login
func (h *UserHandler) Login(c *gin.Context) {
	var req entity.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		respondError(c, http.StatusBadRequest, formatValidationError(err))
		return
	}

	resp, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondError(c, http.StatusUnauthorized, err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Profile обрабатывает GET /users/me
func (h *UserHandler) Profile(c *gin.Context) {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return
	}

	user, err := h.authSvc.GetProfile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "user not found")
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, user)
}

// PurchaseHistory обрабатывает GET /users/me/history
// Заказы отсортированы по убыванию времени создания, товары развёрнуты
// без фото, пользователь спроецирован в {id, name}
func (h *UserHandler) PurchaseHistory(c *gin.Context) {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return
	}

	history, err := h.historySvc.PurchaseHistory(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "user not found")
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, history)
}

// authenticatedUserID достает ID пользователя, положенный middleware Authenticate
func authenticatedUserID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.GetString(ctxUserID))
	if err != nil {
		respondError(c, http.StatusUnauthorized, "invalid token subject")
		return primitive.NilObjectID, false
	}
	return id, true
}
