package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"comms-service/internal/models"
)

const accountContextKey = "account"

// Claims is the token payload issued by the platform auth service.
type Claims struct {
	Role     string `json:"role"`
	SchoolID int64  `json:"school_id"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}

// Auth validates the Authorization bearer token and stores the resolved
// account in the request context. Invalid or expired tokens are rejected
// immediately and never retried here.
func Auth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		account, err := ResolveToken(parts[1], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(accountContextKey, account)
		c.Next()
	}
}

// ResolveToken parses and verifies a bearer token and maps its claims to
// an account. Shared by the HTTP middleware and the websocket upgrade.
func ResolveToken(token string, secret []byte) (models.Account, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return models.Account{}, errors.New("invalid token")
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return models.Account{}, errors.New("invalid subject claim")
	}

	role := models.Role(claims.Role)
	if !role.Valid() {
		return models.Account{}, errors.New("unknown role claim")
	}

	return models.Account{
		ID:       id,
		FullName: claims.FullName,
		Role:     role,
		SchoolID: claims.SchoolID,
	}, nil
}

// CallerAccount returns the account resolved by the Auth middleware.
func CallerAccount(c *gin.Context) (models.Account, bool) {
	val, ok := c.Get(accountContextKey)
	if !ok {
		return models.Account{}, false
	}
	account, ok := val.(models.Account)
	return account, ok
}

// SetCallerAccount injects an account into the context. Used by tests.
func SetCallerAccount(c *gin.Context, account models.Account) {
	c.Set(accountContextKey, account)
}
