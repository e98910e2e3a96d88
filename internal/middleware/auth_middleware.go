package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"clockwise-api/internal/config"
)

type AuthMiddleware struct {
	secretKey   []byte
	requireAuth bool
	adminRole   string
}

type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

func NewAuthMiddleware(cfg config.AuthConfig) *AuthMiddleware {
	return &AuthMiddleware{
		secretKey:   []byte(cfg.JWTSecret),
		requireAuth: cfg.RequireAuth,
		adminRole:   cfg.AdminRole,
	}
}

// ValidateToken authenticates the Bearer token and stashes the claims in
// the request context. When auth is disabled (local development) every
// request passes with an admin identity.
func (a *AuthMiddleware) ValidateToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.requireAuth {
			c.Set("user_email", "dev@localhost")
			c.Set("user_role", a.adminRole)
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "missing authorization header",
				"code":  "AUTH_MISSING",
			})
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "invalid authorization format",
				"code":  "AUTH_INVALID_FORMAT",
			})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := a.parseToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "invalid token",
				"code":  "AUTH_INVALID_TOKEN",
			})
			c.Abort()
			return
		}

		c.Set("user_email", claims.Email)
		c.Set("user_role", claims.Role)
		c.Next()
	}
}

// RequireAdmin gates the admin route group on the configured role claim.
func (a *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("user_role")
		if role != a.adminRole {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "insufficient permissions",
				"code":  "AUTH_INSUFFICIENT_PERMISSIONS",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (a *AuthMiddleware) parseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
