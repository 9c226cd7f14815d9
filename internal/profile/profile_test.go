package profile

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rickgao/huddle/internal/auth"
	"github.com/rickgao/huddle/internal/database"
	"github.com/rickgao/huddle/internal/identity"
	"github.com/rickgao/huddle/internal/store"
)

const cookieName = "__session"

// stubUsers implements UserSource for testing.
type stubUsers struct {
	users map[string]*identity.User
	err   error
	calls atomic.Int32
}

func (s *stubUsers) GetUser(ctx context.Context, userID string) (*identity.User, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[userID]
	if !ok {
		return nil, &identity.APIError{StatusCode: http.StatusNotFound, Message: "Not Found"}
	}
	return u, nil
}

type fixture struct {
	resolver *Resolver
	store    store.Store
	users    *stubUsers
	signer   *auth.Signer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	db, err := database.OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	st := store.NewSQLite(db, nil)
	t.Cleanup(st.Close)

	users := &stubUsers{users: map[string]*identity.User{
		"user_ada": {
			ID:                    "user_ada",
			FirstName:             "Ada",
			LastName:              "Lovelace",
			ImageURL:              "https://img.example.test/ada.png",
			PrimaryEmailAddressID: "e1",
			EmailAddresses:        []identity.EmailAddress{{ID: "e1", EmailAddress: "ada@example.test"}},
		},
	}}

	return &fixture{
		resolver: NewResolver(auth.NewVerifier(&key.PublicKey), users, st, cookieName, nil),
		store:    st,
		users:    users,
		signer:   auth.NewSigner(key),
	}
}

func (f *fixture) request(t *testing.T, userID string) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if userID == "" {
		return r
	}
	token, err := f.signer.Sign(auth.Claims{SessionID: "sess", UserID: userID, ExpiresAt: time.Now().Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	r.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	return r
}

func TestInitial_CreatesProfileOnce(t *testing.T) {
	f := newFixture(t)

	p, err := f.resolver.Initial(f.request(t, "user_ada"))
	if err != nil {
		t.Fatalf("Initial failed: %v", err)
	}
	if p.Name != "Ada Lovelace" {
		t.Errorf("Name = %q, want %q", p.Name, "Ada Lovelace")
	}
	if p.Email != "ada@example.test" {
		t.Errorf("Email = %q, want %q", p.Email, "ada@example.test")
	}
	if p.UserID != "user_ada" {
		t.Errorf("UserID = %q, want %q", p.UserID, "user_ada")
	}

	again, err := f.resolver.Initial(f.request(t, "user_ada"))
	if err != nil {
		t.Fatalf("second Initial failed: %v", err)
	}
	if again.ID != p.ID {
		t.Errorf("second visit created a new profile: %v != %v", again.ID, p.ID)
	}
	if f.users.calls.Load() != 1 {
		t.Errorf("identity provider called %d times, want 1", f.users.calls.Load())
	}
}

func TestInitial_NoSession(t *testing.T) {
	f := newFixture(t)

	if _, err := f.resolver.Initial(f.request(t, "")); !errors.Is(err, ErrNoSession) {
		t.Errorf("Initial error = %v, want ErrNoSession", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: cookieName, Value: "garbage.token"})
	if _, err := f.resolver.Initial(r); !errors.Is(err, ErrNoSession) {
		t.Errorf("Initial(bad token) error = %v, want ErrNoSession", err)
	}
}

func TestInitial_UnknownUser(t *testing.T) {
	f := newFixture(t)
	if _, err := f.resolver.Initial(f.request(t, "user_ghost")); !errors.Is(err, ErrNoSession) {
		t.Errorf("Initial error = %v, want ErrNoSession", err)
	}
}

func TestInitial_ProviderDown(t *testing.T) {
	f := newFixture(t)
	f.users.err = &identity.APIError{StatusCode: http.StatusBadGateway, Message: "Bad Gateway"}

	_, err := f.resolver.Initial(f.request(t, "user_ada"))
	if err == nil || errors.Is(err, ErrNoSession) {
		t.Errorf("Initial error = %v, want provider failure", err)
	}
}

func TestCurrent(t *testing.T) {
	f := newFixture(t)

	t.Run("no session", func(t *testing.T) {
		p, err := f.resolver.Current(f.request(t, ""))
		if err != nil || p != nil {
			t.Errorf("Current = %v, %v; want nil, nil", p, err)
		}
	})

	t.Run("session without profile", func(t *testing.T) {
		p, err := f.resolver.Current(f.request(t, "user_ada"))
		if err != nil || p != nil {
			t.Errorf("Current = %v, %v; want nil, nil", p, err)
		}
		if f.users.calls.Load() != 0 {
			t.Error("Current must not create profiles")
		}
	})

	t.Run("existing profile", func(t *testing.T) {
		created, err := f.resolver.Initial(f.request(t, "user_ada"))
		if err != nil {
			t.Fatalf("Initial failed: %v", err)
		}
		p, err := f.resolver.Current(f.request(t, "user_ada"))
		if err != nil {
			t.Fatalf("Current failed: %v", err)
		}
		if p == nil || p.ID != created.ID {
			t.Errorf("Current = %v, want profile %v", p, created.ID)
		}
	})
}
