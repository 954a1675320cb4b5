package jwttoken

import (
	"certledger/pkg/platform/middleware/auth"
)

// JWTValidatorAdapter exposes JWTService to the auth middleware.
type JWTValidatorAdapter struct {
	service *JWTService
}

func NewJWTValidatorAdapter(service *JWTService) *JWTValidatorAdapter {
	return &JWTValidatorAdapter{service: service}
}

func (a *JWTValidatorAdapter) ValidateToken(tokenString string) (*auth.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &auth.JWTClaims{
		Wallet: claims.Subject,
		JTI:    claims.ID,
	}, nil
}
