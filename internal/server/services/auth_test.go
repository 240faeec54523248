package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vterekhov/recordsync/internal/dbx"
	"github.com/vterekhov/recordsync/internal/server/auth"
	"github.com/vterekhov/recordsync/internal/server/config"
	"github.com/vterekhov/recordsync/internal/server/models"
	"github.com/vterekhov/recordsync/internal/server/repositories/users"
	"golang.org/x/crypto/bcrypt"
)

type fakeUsersRepo struct {
	users.Repository
	byName map[string]*models.User
}

func (f *fakeUsersRepo) Create(ctx context.Context, name string, secret []byte) (*models.User, error) {
	if _, ok := f.byName[name]; ok {
		return nil, users.ErrDuplicate
	}
	user := &models.User{ID: "actor-" + name, Name: name, Secret: secret}
	if f.byName == nil {
		f.byName = map[string]*models.User{}
	}
	f.byName[name] = user
	return user, nil
}

func (f *fakeUsersRepo) GetByName(ctx context.Context, name string) (*models.User, error) {
	user, ok := f.byName[name]
	if !ok {
		return nil, users.ErrNotFound
	}
	return user, nil
}

type authRepoManager struct {
	*fakeRepoManager
	users *fakeUsersRepo
}

func (m *authRepoManager) Users(db dbx.DBTX) users.Repository { return m.users }

func newAuthService(t *testing.T, repo *fakeUsersRepo) *AuthService {
	t.Helper()
	db, _ := newSQLMockDB(t)
	cfg := &config.Config{SecretKey: "test-secret", TokenValidityDuration: time.Hour}
	repos := &authRepoManager{fakeRepoManager: &fakeRepoManager{}, users: repo}
	return NewAuthService(db, repos, cfg)
}

func TestRegisterAndLogin(t *testing.T) {
	repo := &fakeUsersRepo{}
	svc := newAuthService(t, repo)

	actorID, err := svc.Register(context.Background(), "alice", "seekrit")
	require.NoError(t, err)
	require.NotEmpty(t, actorID)

	// The stored secret is a bcrypt hash, not the plaintext.
	require.NoError(t, bcrypt.CompareHashAndPassword(repo.byName["alice"].Secret, []byte("seekrit")))

	loginID, token, err := svc.Login(context.Background(), "alice", "seekrit")
	require.NoError(t, err)
	require.Equal(t, actorID, loginID)

	fromToken, err := auth.GetActorIDFromToken(token, []byte("test-secret"))
	require.NoError(t, err)
	require.Equal(t, actorID, fromToken)
}

func TestRegister_EmptyCredentials(t *testing.T) {
	svc := newAuthService(t, &fakeUsersRepo{})

	_, err := svc.Register(context.Background(), "", "seekrit")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Register(context.Background(), "alice", "")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRegister_DuplicateName(t *testing.T) {
	svc := newAuthService(t, &fakeUsersRepo{byName: map[string]*models.User{
		"alice": {ID: "actor-alice", Name: "alice"},
	}})

	_, err := svc.Register(context.Background(), "alice", "seekrit")
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestLogin_WrongSecret(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("seekrit"), bcrypt.MinCost)
	require.NoError(t, err)
	svc := newAuthService(t, &fakeUsersRepo{byName: map[string]*models.User{
		"alice": {ID: "actor-alice", Name: "alice", Secret: hash},
	}})

	_, _, err = svc.Login(context.Background(), "alice", "nope")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestLogin_UnknownUser(t *testing.T) {
	svc := newAuthService(t, &fakeUsersRepo{})

	_, _, err := svc.Login(context.Background(), "ghost", "seekrit")
	require.ErrorIs(t, err, ErrUnauthorized)
}
