package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"quote-service/internal/model"
)

const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 30 * 24 * time.Hour

	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var ErrWrongTokenType = errors.New("unexpected token type")

func GenerateTokens(secret []byte, user *model.User) (accessToken string, refreshToken string, err error) {
	now := time.Now()

	accessClaims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"tier":  user.SubscriptionTier,
		"typ":   TokenTypeAccess,
		"exp":   now.Add(AccessTokenTTL).Unix(),
		"iat":   now.Unix(),
	}
	accessToken, err = jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString(secret)
	if err != nil {
		return "", "", err
	}

	// jti keeps two refresh tokens minted in the same second distinct; their hashes are unique in storage.
	refreshClaims := jwt.MapClaims{
		"sub": user.ID.String(),
		"typ": TokenTypeRefresh,
		"jti": uuid.NewString(),
		"exp": now.Add(RefreshTokenTTL).Unix(),
	}
	refreshToken, err = jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(secret)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func ValidateToken(secret []byte, tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrInvalidKey
}

// ValidateTokenType validates the token and requires its "typ" claim to equal want.
func ValidateTokenType(secret []byte, tokenString, want string) (jwt.MapClaims, error) {
	claims, err := ValidateToken(secret, tokenString)
	if err != nil {
		return nil, err
	}
	if typ, _ := claims["typ"].(string); typ != want {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

func SubjectID(claims jwt.MapClaims) (uuid.UUID, error) {
	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, jwt.ErrTokenInvalidSubject
	}
	return uuid.Parse(sub)
}
