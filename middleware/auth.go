package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const CartKeyContextKey = "cartKey"

// CartKeyMiddleware resolves the cart identity for the request. A Bearer JWT
// (when a secret is configured) or the gateway-injected X-User-ID header
// identifies an authenticated customer; X-Session-Token carries an anonymous
// session. Whatever identity wins becomes the cart key.
func CartKeyMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtSecret != "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				sub, err := subjectFromToken(strings.TrimPrefix(auth, "Bearer "), jwtSecret)
				if err != nil {
					c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
					return
				}
				c.Set(CartKeyContextKey, "user:"+sub)
				c.Next()
				return
			}
		}

		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set(CartKeyContextKey, "user:"+userID)
			c.Next()
			return
		}

		if token := c.GetHeader("X-Session-Token"); token != "" {
			c.Set(CartKeyContextKey, "anon:"+token)
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
}

// GetCartKey returns the cart key resolved by CartKeyMiddleware.
func GetCartKey(c *gin.Context) (string, error) {
	if val, ok := c.Get(CartKeyContextKey); ok {
		if key, ok := val.(string); ok && key != "" {
			return key, nil
		}
	}
	return "", errors.New("cart key not found in context")
}

func subjectFromToken(tokenString, secret string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", errors.New("missing subject claim")
	}
	return sub, nil
}
