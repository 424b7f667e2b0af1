package middlewares

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"farm-marketplace/auth"
)

const userIDKey = "userID"

// AuthMiddleware validates the bearer token and stores the authenticated
// user id in the request context.
func AuthMiddleware(secret string, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authorization header is missing"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token format"})
			return
		}

		userID, err := auth.ValidateJWT(secret, tokenString)
		if err != nil {
			logger.Debugw("invalid token", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token"})
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// OptionalAuthMiddleware resolves the user id when a valid token is sent
// but lets anonymous requests through. Used on public routes whose
// behavior narrows for authenticated callers (owner=me listings).
func OptionalAuthMiddleware(secret string, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString != authHeader {
				if userID, err := auth.ValidateJWT(secret, tokenString); err == nil {
					c.Set(userIDKey, userID)
				} else {
					logger.Debugw("ignoring invalid token on public route", "error", err)
				}
			}
		}
		c.Next()
	}
}

// CurrentUserID returns the authenticated user id set by AuthMiddleware.
func CurrentUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get(userIDKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// RequireProducer gates producer-only routes on the profile flag.
func RequireProducer(db *sql.DB, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := CurrentUserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "User not authenticated"})
			return
		}

		var isProducer bool
		err := db.QueryRow(`SELECT is_producer FROM profiles WHERE user_id = ?`, userID).Scan(&isProducer)
		if err != nil && err != sql.ErrNoRows {
			logger.Errorw("failed to load profile", "user_id", userID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
			return
		}
		if !isProducer {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "Producer account required"})
			return
		}

		c.Next()
	}
}
