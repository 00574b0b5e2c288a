package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pms/internal/auth"
	"pms/internal/middleware"
	"pms/internal/model"
	"pms/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

const jwtSecret = "test-secret-key"

// Фейковое хранилище пользователей
type stubUsers map[uuid.UUID]*model.User

func (s stubUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func setupRouter(users stubUsers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.Default()

	tokens := auth.NewTokenManager(jwtSecret, time.Hour)

	// Защищенный маршрут
	protected := r.Group("/protected")

	// Добавляем middleware аутентификации
	protected.Use(middleware.JWTAuthMiddleware(tokens, users))

	// Обработчик для проверки middleware
	protected.GET("/resource", func(c *gin.Context) {
		userID, exists := c.Get(middleware.UserIDKey)
		if !exists {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "User ID not found in context"})
			return
		}
		actor, ok := middleware.ActorFromContext(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Actor not found in context"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Access granted",
			"user_id": userID,
			"role":    actor.Role().String(),
		})
	})

	return r
}

func generateTestToken(userID string) string {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     jwt.NewNumericDate(time.Now().Add(time.Hour * 24)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(jwtSecret))

	return tokenString
}

func perform(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", "/protected/resource", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	// Arrange
	userID := uuid.New()
	router := setupRouter(stubUsers{userID: {ID: userID, IsActive: true, IsStaff: true}})

	// Act
	resp := perform(router, "Bearer "+generateTestToken(userID.String()))

	// Assert
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "Access granted")
	assert.Contains(t, resp.Body.String(), userID.String())
	assert.Contains(t, resp.Body.String(), `"role":"manager"`)
}

func TestJWTAuthMiddleware_NoAuthHeader(t *testing.T) {
	router := setupRouter(stubUsers{})

	resp := perform(router, "")

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "Authorization header is required")
}

func TestJWTAuthMiddleware_InvalidAuthFormat(t *testing.T) {
	router := setupRouter(stubUsers{})

	resp := perform(router, "InvalidFormat token123")

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "Authorization header format must be Bearer {token}")
}

func TestJWTAuthMiddleware_InvalidToken(t *testing.T) {
	router := setupRouter(stubUsers{})

	resp := perform(router, "Bearer invalid-token")

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "Invalid or expired token")
}

func TestJWTAuthMiddleware_TokenWithInvalidUserID(t *testing.T) {
	router := setupRouter(stubUsers{})

	// Токен с недействительным форматом ID пользователя
	resp := perform(router, "Bearer "+generateTestToken("not-a-valid-uuid"))

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "Invalid user ID in token")
}

func TestJWTAuthMiddleware_UnknownUser(t *testing.T) {
	router := setupRouter(stubUsers{})

	resp := perform(router, "Bearer "+generateTestToken(uuid.NewString()))

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "User not found or inactive")
}

func TestJWTAuthMiddleware_InactiveUser(t *testing.T) {
	userID := uuid.New()
	router := setupRouter(stubUsers{userID: {ID: userID, IsActive: false}})

	resp := perform(router, "Bearer "+generateTestToken(userID.String()))

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
