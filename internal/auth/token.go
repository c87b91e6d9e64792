package auth

import (
	"errors"
	"fmt"
	"github.com/golang-jwt/jwt/v4"
	"github.com/rookgm/connexmart/internal/models"
	"time"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// userIDClaim is claim that carries account id
const userIDClaim = "id"

// AuthToken verifies HS256 tokens issued by account service
type AuthToken struct {
	key []byte
}

// NewAuthToken creates new AuthToken instance
func NewAuthToken(key []byte) *AuthToken {
	return &AuthToken{key: key}
}

// CreateToken creates token for user, used by tools and tests
func (at *AuthToken) CreateToken(userID uint64, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		userIDClaim: userID,
		"iat":       time.Now().Unix(),
	}
	if ttl > 0 {
		claims["exp"] = time.Now().Add(ttl).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(at.key)
}

// VerifyToken checks signature and extracts payload
func (at *AuthToken) VerifyToken(tokenString string) (*models.TokenPayload, error) {
	claims := jwt.MapClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return at.key, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	// numbers are decoded as float64
	raw, ok := claims[userIDClaim].(float64)
	if !ok || raw <= 0 || raw != float64(uint64(raw)) {
		return nil, ErrInvalidToken
	}

	return &models.TokenPayload{UserID: uint64(raw)}, nil
}
