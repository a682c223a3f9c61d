package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"printstore_backend/internal/auth/password"
	"printstore_backend/internal/auth/repository"
	"printstore_backend/platform/apperr"
	"printstore_backend/platform/logger"
)

type fakeConfig struct{}

func (fakeConfig) GetJWTAccessSecret() string        { return "test-secret" }
func (fakeConfig) GetAccessTokenTTL() time.Duration  { return 15 * time.Minute }
func (fakeConfig) GetRefreshTokenTTL() time.Duration { return 24 * time.Hour }

type refreshRow struct {
	userID    uuid.UUID
	expiresAt time.Time
	revoked   bool
}

type fakeStore struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*repository.User
	roles  map[uuid.UUID][]string
	tokens map[string]*refreshRow
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  make(map[uuid.UUID]*repository.User),
		roles:  make(map[uuid.UUID][]string),
		tokens: make(map[string]*refreshRow),
	}
}

func (f *fakeStore) addUser(email, plainPassword string, roles ...string) uuid.UUID {
	hash, err := password.Hash(plainPassword)
	if err != nil {
		panic(err)
	}
	id := uuid.New()
	f.users[id] = &repository.User{ID: id, Email: email, Name: "Test Admin", PasswordHash: hash}
	f.roles[id] = roles
	return id
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id uuid.UUID) (*repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) GetUserRoles(_ context.Context, userID uuid.UUID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.roles[userID]...), nil
}

func (f *fakeStore) CreateRefreshToken(_ context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[tokenHash] = &refreshRow{userID: userID, expiresAt: expiresAt}
	return nil
}

func (f *fakeStore) GetRefreshToken(_ context.Context, tokenHash string) (uuid.UUID, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.tokens[tokenHash]
	if !ok || row.revoked {
		return uuid.Nil, time.Time{}, apperr.Unauthorized("invalid refresh token")
	}
	return row.userID, row.expiresAt, nil
}

func (f *fakeStore) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.tokens[tokenHash]; ok {
		row.revoked = true
	}
	return nil
}

func (f *fakeStore) RevokeAllRefreshTokens(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.tokens {
		if row.userID == userID {
			row.revoked = true
		}
	}
	return nil
}

func newTestService(store *fakeStore) *Service {
	return New(store, fakeConfig{}, logger.New("test"))
}

func TestSignInIssuesValidAccessToken(t *testing.T) {
	store := newFakeStore()
	userID := store.addUser("ops@example.com", "s3cret", "admin")
	svc := newTestService(store)

	pair, err := svc.SignIn(context.Background(), "ops@example.com", "s3cret")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("incomplete token pair %+v", pair)
	}

	parsed, err := jwt.Parse(pair.AccessToken, func(*jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("access token does not verify: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != userID.String() {
		t.Fatalf("sub = %v, want %s", claims["sub"], userID)
	}
	if claims["type"] != "access" {
		t.Fatalf("type = %v, want access", claims["type"])
	}
}

func TestSignInWrongPassword(t *testing.T) {
	store := newFakeStore()
	store.addUser("ops@example.com", "s3cret")
	svc := newTestService(store)

	_, err := svc.SignIn(context.Background(), "ops@example.com", "wrong")
	if apperr.GetKind(err) != apperr.KindUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestSignInUnknownAccountSameError(t *testing.T) {
	store := newFakeStore()
	store.addUser("ops@example.com", "s3cret")
	svc := newTestService(store)

	_, errUnknown := svc.SignIn(context.Background(), "nobody@example.com", "s3cret")
	_, errWrongPw := svc.SignIn(context.Background(), "ops@example.com", "wrong")
	if errUnknown == nil || errWrongPw == nil {
		t.Fatal("expected both sign-ins to fail")
	}
	if errUnknown.Error() != errWrongPw.Error() {
		t.Fatalf("error messages differ: %q vs %q", errUnknown, errWrongPw)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	store := newFakeStore()
	store.addUser("ops@example.com", "s3cret", "admin")
	svc := newTestService(store)

	pair, err := svc.SignIn(context.Background(), "ops@example.com", "s3cret")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	next, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	// The old token must be dead after rotation.
	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); err == nil {
		t.Fatal("rotated refresh token still accepted")
	}
}

func TestSignOutRevokesToken(t *testing.T) {
	store := newFakeStore()
	store.addUser("ops@example.com", "s3cret")
	svc := newTestService(store)

	pair, err := svc.SignIn(context.Background(), "ops@example.com", "s3cret")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if err := svc.SignOut(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); err == nil {
		t.Fatal("signed-out refresh token still accepted")
	}
}

func TestMeReturnsRoles(t *testing.T) {
	store := newFakeStore()
	userID := store.addUser("ops@example.com", "s3cret", "admin", "operator")
	svc := newTestService(store)

	profile, err := svc.Me(context.Background(), userID)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if profile.Email != "ops@example.com" || len(profile.Roles) != 2 {
		t.Fatalf("unexpected profile %+v", profile)
	}
}
