package middleware

import (
	"context"
	"net/http"
	"strings"

	"pms/internal/auth"
	"pms/internal/model"
	"pms/internal/policy"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// UserIDKey хранит uuid.UUID аутентифицированного пользователя
	UserIDKey = "userID"
	// ActorKey хранит policy.Actor, вычисленный один раз на запрос
	ActorKey = "actor"
)

// UserLookup загружает пользователя, от имени которого выполняется запрос
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// JWTAuthMiddleware проверяет Bearer-токен и кладет в контекст пользователя и его роль
func JWTAuthMiddleware(tokens *auth.TokenManager, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		subject, err := tokens.ParseToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		userID, err := uuid.Parse(subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID in token"})
			return
		}

		user, err := users.GetByID(c.Request.Context(), userID)
		if err != nil || user == nil || !user.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found or inactive"})
			return
		}

		c.Set(UserIDKey, user.ID)
		c.Set(ActorKey, policy.Actor{
			ID:          user.ID,
			IsStaff:     user.IsStaff,
			IsSuperuser: user.IsSuperuser,
		})
		c.Next()
	}
}

// ActorFromContext возвращает пользователя, установленного JWTAuthMiddleware
func ActorFromContext(c *gin.Context) (policy.Actor, bool) {
	v, exists := c.Get(ActorKey)
	if !exists {
		return policy.Actor{}, false
	}
	actor, ok := v.(policy.Actor)
	return actor, ok
}
