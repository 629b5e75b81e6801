package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/survey-api/internal/models"
	appErrors "github.com/noah-isme/survey-api/pkg/errors"
	"github.com/noah-isme/survey-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// TokenValidator parses access tokens into claims.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// Claims returns the token claims attached by JWT or OptionalJWT.
func Claims(c *gin.Context) (*models.JWTClaims, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*models.JWTClaims)
	return claims, ok && claims != nil
}

var errMalformedAuthHeader = appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

// authenticate resolves the Authorization header. A missing header yields
// nil claims and nil error.
func authenticate(c *gin.Context, validator TokenValidator) (*models.JWTClaims, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, nil
	}
	token, ok := bearerToken(header)
	if !ok {
		return nil, errMalformedAuthHeader
	}
	return validator.ValidateToken(token)
}

// JWT requires a valid access token.
func JWT(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := authenticate(c, validator)
		if err == nil && claims == nil {
			err = appErrors.ErrUnauthorized
		}
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// OptionalJWT attaches claims when a valid token is sent and otherwise treats
// the caller as anonymous, so respondents can answer anonymous forms with a
// stale session.
func OptionalJWT(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := authenticate(c, validator); err == nil && claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	}
}
