package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/menta2k/trackmate/internal/api/response"
)

// UnauthenticatedMessage is returned for every request without a valid session
const UnauthenticatedMessage = "User not authenticated"

const userIDKey = "userID"

// Claims is the session token payload
type Claims struct {
	UserID uint64 `json:"user_id"`
	jwt.RegisteredClaims
}

// AuthConfig holds the token secret and where to look for it
type AuthConfig struct {
	Secret     string
	CookieName string
}

// IssueToken signs an HS256 session token for userID
func IssueToken(secret string, userID uint64, ttl time.Duration, now time.Time) (string, error) {
	if userID == 0 {
		return "", errors.New("user id is required")
	}
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  strconv.FormatUint(userID, 10),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies a session token and returns its user id
func ParseToken(secret, tokenString string) (uint64, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return 0, err
	}
	if !token.Valid || claims.UserID == 0 {
		return 0, errors.New("invalid token claims")
	}
	return claims.UserID, nil
}

// JWTAuth rejects requests without a valid session before any handler runs.
// The token is read from "Authorization: Bearer <token>" or the session cookie.
func JWTAuth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" && cfg.CookieName != "" {
			tokenString, _ = c.Cookie(cfg.CookieName)
		}
		if tokenString == "" {
			response.Abort(c, http.StatusUnauthorized, UnauthenticatedMessage)
			return
		}

		userID, err := ParseToken(cfg.Secret, tokenString)
		if err != nil {
			_ = c.Error(err)
			response.Abort(c, http.StatusUnauthorized, UnauthenticatedMessage)
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated user set by JWTAuth
func UserID(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok && id != 0
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
