package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/user"
)

// ValidateAuthorToken validates an HS256 author token and returns the author it names.
func ValidateAuthorToken(tokenString, jwtSecret string) (*user.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return AuthorFromClaims(claims)
}

// AuthorFromClaims extracts the author from token claims
func AuthorFromClaims(claims jwt.MapClaims) (*user.User, error) {
	id, _ := claims["sub"].(string)
	if id == "" {
		return nil, errors.New("token has no subject")
	}
	name, _ := claims["name"].(string)

	author := &user.User{ID: id, Name: name}
	if roles, ok := claims["roles"].([]any); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok {
				author.Roles = append(author.Roles, s)
			}
		}
	}
	return author, nil
}

// GenerateAuthorToken creates a signed token for author valid for ttl
func GenerateAuthorToken(author *user.User, jwtSecret string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":   author.ID,
		"name":  author.Name,
		"roles": author.Roles,
		"jti":   GenerateULID(),
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}
