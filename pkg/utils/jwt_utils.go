package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	jwtSecretKey    = []byte("fitpass-dev-secret-change-me")
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 30 * 24 * time.Hour
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	jwtIssuer = "fitpass-backend"
)

// ErrWrongTokenType is returned when a refresh token is used as an access token or vice versa.
var ErrWrongTokenType = errors.New("wrong token type")

// InitJWT configures signing key and token lifetimes. Zero values keep the defaults.
func InitJWT(secret string, accessTTL, refreshTTL time.Duration) {
	if secret != "" {
		jwtSecretKey = []byte(secret)
	}
	if accessTTL > 0 {
		accessTokenTTL = accessTTL
	}
	if refreshTTL > 0 {
		refreshTokenTTL = refreshTTL
	}
}

// AccessTokenTTL reports the configured access token lifetime.
func AccessTokenTTL() time.Duration { return accessTokenTTL }

// Claims defines the JWT claims structure
type Claims struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

func signClaims(claims *Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    jwtIssuer,
		Subject:   Int64ToStr(claims.UserID),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecretKey)
}

// GenerateAccessToken creates a new JWT access token for a given user.
func GenerateAccessToken(userID int64, email string, role string) (string, error) {
	signed, err := signClaims(&Claims{UserID: userID, Email: email, Role: role, TokenType: TokenTypeAccess}, accessTokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// GenerateRefreshToken creates a new JWT refresh token for a given user ID.
func GenerateRefreshToken(userID int64) (string, error) {
	signed, err := signClaims(&Claims{UserID: userID, TokenType: TokenTypeRefresh}, refreshTokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT token string.
func ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecretKey, nil
	}, jwt.WithIssuer(jwtIssuer))
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// ValidateAccessToken validates the token and requires it to be an access token.
func ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// ValidateRefreshToken validates the token and requires it to be a refresh token.
func ValidateRefreshToken(tokenString string) (*Claims, error) {
	claims, err := ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}
