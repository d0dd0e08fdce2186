package auth

import (
	"context"
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/entitlement-service/internal/domain"
	"github.com/spec-kit/entitlement-service/internal/repository"
)

// ErrSigningSecretMissing means the issuer was built without a secret.
// It fails the request needing a token, not the whole process.
var ErrSigningSecretMissing = errors.New("signing secret not configured")

// ProjectedUser is the identity slice carried in claims.
type ProjectedUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// ProjectedPermission is the permission slice carried in claims.
type ProjectedPermission struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProjectedRole carries its permissions inline so relying services need
// no further lookup.
type ProjectedRole struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Permissions []ProjectedPermission `json:"permissions"`
}

// ProjectedSession is the optional session descriptor slice.
type ProjectedSession struct {
	ID         string    `json:"id"`
	APIVersion string    `json:"api_version"`
	DeviceInfo string    `json:"device_info,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SessionClaims is the signed payload asserting identity, roles and
// permissions for a bounded window. It is built per request and never
// persisted; only the signed string travels.
type SessionClaims struct {
	User    ProjectedUser     `json:"user"`
	Roles   []ProjectedRole   `json:"roles"`
	Session *ProjectedSession `json:"session,omitempty"`
	jwt.RegisteredClaims
}

// SessionClaimsIssuer signs session claims with a symmetric secret.
// Revocation is not checked here: the caller validates that the
// underlying session is live before asking for a token.
type SessionClaimsIssuer struct {
	accounts repository.AccountRepository
	roles    repository.RoleRepository
	secret   []byte
	ttl      time.Duration
}

// NewSessionClaimsIssuer builds the issuer.
func NewSessionClaimsIssuer(secret string, ttl time.Duration, accounts repository.AccountRepository, roles repository.RoleRepository) *SessionClaimsIssuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionClaimsIssuer{
		accounts: accounts,
		roles:    roles,
		secret:   []byte(secret),
		ttl:      ttl,
	}
}

// Issue loads the account's roles and their permissions, projects them
// into a claims payload and signs it.
func (i *SessionClaimsIssuer) Issue(ctx context.Context, account *domain.Account, session *domain.Session) (string, time.Time, error) {
	if len(i.secret) == 0 {
		return "", time.Time{}, ErrSigningSecretMissing
	}

	memberships, err := i.accounts.LoadRoles(ctx, account.ID)
	if err != nil {
		return "", time.Time{}, err
	}

	names := make([]string, 0, len(memberships))
	for _, role := range memberships {
		names = append(names, role.Name)
	}

	var roles []domain.Role
	if len(names) > 0 {
		roles, err = i.roles.FindAllByNames(ctx, names)
		if err != nil {
			return "", time.Time{}, err
		}
	}

	now := time.Now()
	expiresAt := now.Add(i.ttl)

	claims := &SessionClaims{
		User:  ProjectedUser{ID: account.ID, Email: account.Email},
		Roles: projectRoles(roles),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if session != nil {
		claims.Session = &ProjectedSession{
			ID:         session.ID,
			APIVersion: session.APIVersion,
			DeviceInfo: session.DeviceInfo,
			CreatedAt:  session.CreatedAt,
			UpdatedAt:  session.UpdatedAt,
		}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse validates a signed token and returns its claims.
func (i *SessionClaimsIssuer) Parse(tokenStr string) (*SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func projectRoles(roles []domain.Role) []ProjectedRole {
	projected := make([]ProjectedRole, 0, len(roles))
	for _, role := range roles {
		permissions := make([]ProjectedPermission, 0, len(role.Permissions))
		for _, perm := range role.Permissions {
			permissions = append(permissions, ProjectedPermission{ID: perm.ID, Name: perm.Name})
		}
		projected = append(projected, ProjectedRole{
			ID:          role.ID,
			Name:        role.Name,
			Permissions: permissions,
		})
	}
	return projected
}
