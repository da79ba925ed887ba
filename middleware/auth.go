package middleware

import (
	"errors"
	"strings"
	"time"

	"quickbite-api/apperr"
	"quickbite-api/authz"
	"quickbite-api/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const callerKey = "caller"

type Claims struct {
	UserID string      `json:"id"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 tokens
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// GenerateToken creates a signed JWT for a given user
func (m *TokenManager) GenerateToken(user *models.User) (string, error) {
	now := m.now()
	claims := Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *TokenManager) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.New(apperr.KindUnauthenticated, "token expired")
		}
		return nil, apperr.New(apperr.KindUnauthenticated, "invalid token")
	}
	if claims.UserID == "" || !claims.Role.Valid() {
		return nil, apperr.New(apperr.KindUnauthenticated, "invalid token claims")
	}
	return claims, nil
}

// AuthRequired validates the JWT and injects the caller into context
func AuthRequired(tm *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			abort(c, apperr.New(apperr.KindUnauthenticated, "authorization header required (Bearer <token>)"))
			return
		}
		claims, err := tm.Parse(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			abort(c, err)
			return
		}
		c.Set(callerKey, &authz.Caller{ID: claims.UserID, Role: claims.Role})
		c.Next()
	}
}

// RoleRequired enforces that caller has one of the allowed roles
func RoleRequired(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authz.Authorize(CallerFrom(c), roles, ""); err != nil {
			abort(c, err)
			return
		}
		c.Next()
	}
}

// CallerFrom returns the authenticated caller, or nil on public routes.
func CallerFrom(c *gin.Context) *authz.Caller {
	v, ok := c.Get(callerKey)
	if !ok {
		return nil
	}
	caller, _ := v.(*authz.Caller)
	return caller
}

func abort(c *gin.Context, err error) {
	status, body := apperr.Response(err)
	c.AbortWithStatusJSON(status, body)
}
