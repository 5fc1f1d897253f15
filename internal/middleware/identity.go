package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/avaloyal/backend/pkg/response"
)

// ContextIdentity is the gin context key for the resolved caller identity.
const ContextIdentity = "identity"

var errInvalidToken = errors.New("invalid token")

// Identity is the normalized caller identity, resolved once at the boundary.
// Downstream code never inspects raw claims.
type Identity struct {
	UserID string
	Email  string
}

// Auth returns a middleware that validates the bearer token and stores a
// normalized Identity in the context. The user id claim may arrive as either
// "username" or "cognito:username" depending on the token issuer; both are
// accepted here and nowhere else.
func Auth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		ident, err := resolveIdentity(parts[1], key)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextIdentity, ident)
		c.Next()
	}
}

func resolveIdentity(tokenString string, key []byte) (Identity, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return key, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, errInvalidToken
	}
	userID, _ := claims["username"].(string)
	if userID == "" {
		userID, _ = claims["cognito:username"].(string)
	}
	if userID == "" {
		return Identity{}, errInvalidToken
	}
	email, _ := claims["email"].(string)
	return Identity{UserID: userID, Email: email}, nil
}

// CurrentIdentity returns the Identity set by Auth.
func CurrentIdentity(c *gin.Context) Identity {
	return c.MustGet(ContextIdentity).(Identity)
}

// RequireStreamSecret guards infrastructure hooks with a shared secret header.
// An empty configured secret disables the check (local development).
func RequireStreamSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret != "" && c.GetHeader("X-Stream-Secret") != secret {
			response.Unauthorized(c, "invalid stream secret")
			c.Abort()
			return
		}
		c.Next()
	}
}
