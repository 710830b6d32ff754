package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/immunopass-go/internal/config"
	"github.com/immunopass-go/internal/domain"
)

// Claims holds the JWT payload fields.
type Claims struct {
	AccountID      string             `json:"account_id"`
	AccountType    domain.AccountType `json:"account_type"`
	OrganizationID string             `json:"organization_id,omitempty"`
	PathologyLabID string             `json:"pathology_lab_id,omitempty"`
	jwt.RegisteredClaims
}

// AccountContext returns the caller identity carried by the token.
func (c *Claims) AccountContext() domain.AccountContext {
	return domain.AccountContext{AccountID: c.AccountID, OrganizationID: c.OrganizationID}
}

// Provider signs and verifies RS256 JWTs.
type Provider struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	expiry     time.Duration
	now        func() time.Time
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	privBytes, err := os.ReadFile(cfg.JWTPrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pubBytes, err := os.ReadFile(cfg.JWTPublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return NewProviderFromKeys(privKey, pubKey, cfg.JWTExpiry), nil
}

func NewProviderFromKeys(priv *rsa.PrivateKey, pub *rsa.PublicKey, expiry time.Duration) *Provider {
	return &Provider{privateKey: priv, publicKey: pub, expiry: expiry, now: time.Now}
}

// Sign mints an access token for a verified account.
func (p *Provider) Sign(a *domain.Account) (string, error) {
	now := p.now()
	claims := Claims{
		AccountID:   a.AccountID,
		AccountType: a.AccountType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.AccountID,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if a.OrganizationID != nil {
		claims.OrganizationID = *a.OrganizationID
	}
	if a.PathologyLabID != nil {
		claims.PathologyLabID = *a.PathologyLabID
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(p.privateKey)
}

func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.publicKey, nil
	}, jwt.WithTimeFunc(p.now))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
