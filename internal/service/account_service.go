package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/entitlement-service/internal/auth"
	"github.com/spec-kit/entitlement-service/internal/config"
	"github.com/spec-kit/entitlement-service/internal/domain"
	"github.com/spec-kit/entitlement-service/internal/repository"
)

// AccountService coordinates registration and login flows and turns a
// successful login into signed session claims.
type AccountService struct {
	accounts   repository.AccountRepository
	issuer     *auth.SessionClaimsIssuer
	bcryptCost int
	apiVersion string
}

// NewAccountService builds the service.
func NewAccountService(cfg config.Config, accounts repository.AccountRepository, issuer *auth.SessionClaimsIssuer) *AccountService {
	return &AccountService{
		accounts:   accounts,
		issuer:     issuer,
		bcryptCost: cfg.Auth.BcryptCost,
		apiVersion: cfg.App.Version,
	}
}

// Register creates a new account and issues its first session token.
func (s *AccountService) Register(ctx context.Context, name, email, password string) (*domain.Account, string, time.Time, error) {
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, errors.New("email already registered")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	account := &domain.Account{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.issuer.Issue(ctx, account, nil)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return account, token, exp, nil
}

// Login authenticates an account and issues session-bound claims.
func (s *AccountService) Login(ctx context.Context, email, password, deviceInfo string) (*domain.Account, string, time.Time, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, errors.New("invalid credentials")
	}

	now := time.Now()
	session := &domain.Session{
		ID:         uuid.NewString(),
		AccountID:  account.ID,
		APIVersion: s.apiVersion,
		DeviceInfo: deviceInfo,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	token, exp, err := s.issuer.Issue(ctx, account, session)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return account, token, exp, nil
}
