package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"

	"github.com/tacticboard/projects-api/internal/auth"
	"github.com/tacticboard/projects-api/internal/projects/domain"
)

// TokenVerifier verifies Firebase ID tokens. *fbauth.Client implements it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// UserResolver maps a Firebase UID to the user document.
type UserResolver interface {
	FindByFirebaseUID(ctx context.Context, uid string) (*domain.User, error)
}

// FirebaseAuthMiddleware validates Firebase ID tokens and resolves the caller's user document
func FirebaseAuthMiddleware(verifier TokenVerifier, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
			return
		}

		decodedToken, err := verifier.VerifyIDToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		user, err := users.FindByFirebaseUID(c.Request.Context(), decodedToken.UID)
		if err != nil {
			if !errors.Is(err, domain.ErrUserNotFound) {
				log.Printf("[auth] resolve user %s: %v", decodedToken.UID, err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}

		c.Set(auth.CtxFirebaseUID, decodedToken.UID)
		c.Set(auth.CtxUserID, user.ID.Hex())

		// Extract email from claims if available
		if email, ok := decodedToken.Claims["email"].(string); ok {
			c.Set("email", email)
		}

		c.Next()
	}
}

// extractToken extracts the Bearer token from the Authorization header
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return bearerToken[7:]
	}
	return ""
}
