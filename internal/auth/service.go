package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/atelier-markets/atelier/internal/identity"
	"github.com/atelier-markets/atelier/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	tokens *identity.TokenService
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *identity.TokenService) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Authenticate validates email/password credentials and issues a session
// token on success.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, string, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, "", shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", shared.ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(ctx, user.ID, user.Email, user.Role, user.WalletAddress)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Logout revokes the presented session token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}
