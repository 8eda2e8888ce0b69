package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/time/rate"

	"github.com/paxoscn/avalon-sub003/pkg/observability"
)

// AuthConfig holds the credentials the API accepts
type AuthConfig struct {
	JWTSecret string
	APIKeys   []string
}

// AuthMiddleware authenticates requests and resolves the tenant scope.
// Two schemes are accepted: a bearer JWT carrying tenant_id/user_id
// claims, or a static API key paired with an X-Tenant-ID header.
func AuthMiddleware(cfg AuthConfig, logger observability.Logger) gin.HandlerFunc {
	keySet := make(map[string]bool, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		if k != "" {
			keySet[k] = true
		}
	}

	return func(c *gin.Context) {
		if apiKey := c.GetHeader("X-API-Key"); apiKey != "" {
			if !keySet[apiKey] {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
				return
			}
			tenantID := c.GetHeader("X-Tenant-ID")
			if tenantID == "" {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "tenant_id required"})
				return
			}
			c.Set("tenant_id", tenantID)
			c.Set("user_id", c.GetHeader("X-User-ID"))
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(authHeader[7:], claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(cfg.JWTSecret), nil
			})
			if err != nil || !token.Valid {
				logger.Warn("JWT validation failed", map[string]interface{}{
					"error": errString(err),
				})
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}

			tenantID, _ := claims["tenant_id"].(string)
			if tenantID == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token missing tenant_id"})
				return
			}
			userID, _ := claims["sub"].(string)
			c.Set("tenant_id", tenantID)
			c.Set("user_id", userID)
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	}
}

// RequestLogger logs each request with latency and status
func RequestLogger(logger observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("Request completed", map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"tenant_id":  c.GetString("tenant_id"),
		})
	}
}

// RateLimitMiddleware applies a process-wide token bucket
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// CORSMiddleware sets permissive CORS headers for the admin UI
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key, X-Tenant-ID, X-User-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
