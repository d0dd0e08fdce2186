package auth

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/entitlement-service/internal/domain"
)

type fakeAccountRepo struct {
	rolesByAccount map[string][]domain.Role
}

func (f *fakeAccountRepo) Create(_ context.Context, _ *domain.Account) error { return nil }
func (f *fakeAccountRepo) Save(_ context.Context, _ *domain.Account) error   { return nil }

func (f *fakeAccountRepo) GetByID(_ context.Context, _ string) (*domain.Account, error) {
	return nil, pgx.ErrNoRows
}

func (f *fakeAccountRepo) GetByEmail(_ context.Context, _ string) (*domain.Account, error) {
	return nil, pgx.ErrNoRows
}

func (f *fakeAccountRepo) LoadRoles(_ context.Context, accountID string) ([]domain.Role, error) {
	return f.rolesByAccount[accountID], nil
}

type fakeRoleRepo struct {
	roles map[string]domain.Role
}

func (f *fakeRoleRepo) GetByName(_ context.Context, name string) (*domain.Role, error) {
	if role, ok := f.roles[name]; ok {
		return &role, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeRoleRepo) FindAllByNames(_ context.Context, names []string) ([]domain.Role, error) {
	var out []domain.Role
	for _, name := range names {
		if role, ok := f.roles[name]; ok {
			out = append(out, role)
		}
	}
	return out, nil
}

func newIssuerFixture(secret string) *SessionClaimsIssuer {
	accounts := &fakeAccountRepo{rolesByAccount: map[string][]domain.Role{
		"a1": {{ID: "r-pro", Name: "pro-user"}},
	}}
	roles := &fakeRoleRepo{roles: map[string]domain.Role{
		"pro-user": {ID: "r-pro", Name: "pro-user", Permissions: []domain.Permission{
			{ID: "p1", Name: "cloud-link"},
			{ID: "p2", Name: "priority-support"},
		}},
	}}
	return NewSessionClaimsIssuer(secret, time.Hour, accounts, roles)
}

func TestIssueAndParse_EmbedsRolesAndPermissions(t *testing.T) {
	issuer := newIssuerFixture("test-secret")
	account := &domain.Account{ID: "a1", Email: "a@b.com"}

	signed, expiresAt, err := issuer.Issue(context.Background(), account, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, signed)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := issuer.Parse(signed)
	require.NoError(t, err)

	assert.Equal(t, "a1", claims.User.ID)
	assert.Equal(t, "a@b.com", claims.User.Email)
	assert.Equal(t, "a1", claims.Subject)
	assert.Nil(t, claims.Session)

	require.Len(t, claims.Roles, 1)
	assert.Equal(t, "pro-user", claims.Roles[0].Name)
	require.Len(t, claims.Roles[0].Permissions, 2)
	assert.Equal(t, "cloud-link", claims.Roles[0].Permissions[0].Name)
}

func TestIssue_ProjectsSessionDescriptor(t *testing.T) {
	issuer := newIssuerFixture("test-secret")
	account := &domain.Account{ID: "a1", Email: "a@b.com"}
	now := time.Now().Truncate(time.Second)
	session := &domain.Session{
		ID:         "sess-1",
		AccountID:  "a1",
		APIVersion: "v2",
		DeviceInfo: "cli/1.4",
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	signed, _, err := issuer.Issue(context.Background(), account, session)
	require.NoError(t, err)

	claims, err := issuer.Parse(signed)
	require.NoError(t, err)

	require.NotNil(t, claims.Session)
	assert.Equal(t, "sess-1", claims.Session.ID)
	assert.Equal(t, "v2", claims.Session.APIVersion)
	assert.Equal(t, "cli/1.4", claims.Session.DeviceInfo)
}

func TestIssue_MissingSecretFailsRequest(t *testing.T) {
	issuer := newIssuerFixture("")
	account := &domain.Account{ID: "a1", Email: "a@b.com"}

	_, _, err := issuer.Issue(context.Background(), account, nil)
	assert.ErrorIs(t, err, ErrSigningSecretMissing)
}

func TestParse_WrongSecretFails(t *testing.T) {
	issuer := newIssuerFixture("right-secret")
	account := &domain.Account{ID: "a1", Email: "a@b.com"}

	signed, _, err := issuer.Issue(context.Background(), account, nil)
	require.NoError(t, err)

	other := newIssuerFixture("wrong-secret")
	_, err = other.Parse(signed)
	assert.Error(t, err)
}

func TestIssue_NoRolesYieldsEmptyRoleList(t *testing.T) {
	issuer := newIssuerFixture("test-secret")
	account := &domain.Account{ID: "a2", Email: "new@b.com"}

	signed, _, err := issuer.Issue(context.Background(), account, nil)
	require.NoError(t, err)

	claims, err := issuer.Parse(signed)
	require.NoError(t, err)
	assert.Empty(t, claims.Roles)
}
