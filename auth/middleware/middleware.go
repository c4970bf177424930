package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/basit/nua-backend/auth"
)

// UserIDKey is where the authenticated account id lives in the gin
// context.
const UserIDKey = "userID"

// AuthRequired rejects requests without a valid bearer token. Every
// disclosure endpoint sits behind this gate; the access rules
// downstream rely on it to rule out anonymous callers.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := bearerUserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized"})
			return
		}
		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// CurrentUserID reads the authenticated account id set by AuthRequired.
func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func bearerUserID(c *gin.Context) (uuid.UUID, bool) {
	authHeader := c.GetHeader("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return uuid.Nil, false
	}
	sub, err := auth.ValidateToken(parts[1])
	if err != nil {
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}
