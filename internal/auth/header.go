package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HeaderAuth trusts the X-User-Id header as the caller's user id.
// Use this ONLY for development/testing.
func HeaderAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if _, err := primitive.ObjectIDFromHex(uid); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid X-User-Id"})
			return
		}

		c.Set(CtxUserID, uid)
		c.Next()
	}
}
