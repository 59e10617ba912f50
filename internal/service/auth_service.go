package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiForms/internal/apperr"
	"github.com/parisxmas/OxiDB/OxiForms/internal/auth"
	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
	"github.com/parisxmas/OxiDB/OxiForms/internal/validation"
)

type AuthService struct {
	verifier  auth.CredentialVerifier
	jwtSecret string
	ttl       time.Duration
	log       *zap.Logger
}

func NewAuthService(verifier auth.CredentialVerifier, jwtSecret string, ttl time.Duration, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{verifier: verifier, jwtSecret: jwtSecret, ttl: ttl, log: log.Named("auth")}
}

type AuthResult struct {
	Token string              `json:"token"`
	User  models.UserResponse `json:"user"`
}

type VerifyResult struct {
	Valid bool                `json:"valid"`
	User  models.UserResponse `json:"user"`
}

func (s *AuthService) Login(ctx context.Context, body []byte) (*AuthResult, error) {
	creds, err := validation.ParseCredentials(body)
	if err != nil {
		return nil, err
	}
	user, err := s.verifier.Verify(ctx, creds.Username, creds.Password)
	if err != nil {
		s.log.Warn("login failed", zap.String("username", creds.Username))
		return nil, err
	}
	tok, err := auth.GenerateToken(s.jwtSecret, user, s.ttl)
	if err != nil {
		return nil, err
	}
	s.log.Info("login", zap.String("user_id", user.ID))
	return &AuthResult{Token: tok, User: user.ToResponse()}, nil
}

func (s *AuthService) Verify(tokenStr string) (*VerifyResult, error) {
	if tokenStr == "" {
		return nil, &apperr.AuthError{Msg: "no token provided"}
	}
	claims, err := auth.ValidateToken(s.jwtSecret, tokenStr)
	if err != nil {
		return nil, &apperr.AuthError{Msg: "invalid token"}
	}
	return &VerifyResult{Valid: true, User: claims.User().ToResponse()}, nil
}
