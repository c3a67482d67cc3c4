// Package jwtauth verifies access tokens issued by the account service and
// extracts the caller identity the gateway operates on. Token issuance is an
// external collaborator; only validation lives here.
package jwtauth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "burogate/pkg/domain"
	dErrors "burogate/pkg/domain-errors"
	"burogate/pkg/requestcontext"
)

// Claims are the access-token claims the gateway consumes. The plan limit
// travels in the token so quota checks never re-derive it per request.
type Claims struct {
	UserID            int64  `json:"user_id"`
	UserActive        bool   `json:"user_active"`
	EntityID          int64  `json:"entity_id"`
	EntityName        string `json:"entity_name"`
	EntityTaxID       string `json:"entity_tax_id"`
	EntityActive      bool   `json:"entity_active"`
	MaxMonthlyQueries int    `json:"max_monthly_queries"`
	jwt.RegisteredClaims
}

// Service validates (and, for tests, mints) HS256 access tokens.
type Service struct {
	signingKey []byte
	issuer     string
}

func NewService(signingKey, issuer string) *Service {
	return &Service{signingKey: []byte(signingKey), issuer: issuer}
}

// GenerateAccessToken mints a token carrying the caller identity. Used by
// tests and local tooling; production tokens come from the account service.
func (s *Service) GenerateAccessToken(ident requestcontext.CallerIdentity, expiresIn time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:            int64(ident.UserID),
		UserActive:        true,
		EntityID:          int64(ident.EntityID),
		EntityName:        ident.EntityName,
		EntityTaxID:       string(ident.EntityTaxID),
		EntityActive:      true,
		MaxMonthlyQueries: ident.MaxMonthlyQueries,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidateToken verifies the signature and liveness flags, returning the
// caller identity embedded in the claims.
func (s *Service) ValidateToken(tokenString string) (*requestcontext.CallerIdentity, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if claims.UserID == 0 || claims.EntityID == 0 {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !claims.UserActive || !claims.EntityActive {
		return nil, dErrors.New(dErrors.CodeForbidden, "account is inactive")
	}

	return &requestcontext.CallerIdentity{
		UserID:            id.UserID(claims.UserID),
		EntityID:          id.EntityID(claims.EntityID),
		EntityName:        claims.EntityName,
		EntityTaxID:       id.TaxID(claims.EntityTaxID),
		MaxMonthlyQueries: claims.MaxMonthlyQueries,
	}, nil
}
