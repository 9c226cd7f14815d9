// Package profile maps identity-provider sessions onto huddle profiles.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/huddle/internal/auth"
	"github.com/rickgao/huddle/internal/identity"
	"github.com/rickgao/huddle/internal/model"
	"github.com/rickgao/huddle/internal/store"
)

// ErrNoSession is returned when the request carries no valid session.
var ErrNoSession = errors.New("no valid session")

// SessionVerifier extracts and verifies the session on a request.
type SessionVerifier interface {
	VerifyRequest(r *http.Request, cookieName string) (*auth.Claims, error)
}

// UserSource fetches identity-provider users.
type UserSource interface {
	GetUser(ctx context.Context, userID string) (*identity.User, error)
}

// Resolver resolves the profile behind a request.
type Resolver struct {
	sessions   SessionVerifier
	users      UserSource
	store      store.Store
	cookieName string
	logger     *slog.Logger
	now        func() time.Time
}

// NewResolver creates a Resolver.
func NewResolver(sessions SessionVerifier, users UserSource, st store.Store, cookieName string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		sessions:   sessions,
		users:      users,
		store:      st,
		cookieName: cookieName,
		logger:     logger,
		now:        time.Now,
	}
}

// Current returns the profile for the request's session, or nil when there is
// no valid session or no profile has been created yet.
func (r *Resolver) Current(req *http.Request) (*model.Profile, error) {
	claims, err := r.sessions.VerifyRequest(req, r.cookieName)
	if err != nil {
		r.logger.Debug("no session", "error", err)
		return nil, nil
	}

	p, err := r.store.ProfileByUserID(req.Context(), claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup profile: %w", err)
	}
	return p, nil
}

// Initial returns the session's profile, creating it from the identity
// provider's user record on first visit. Returns ErrNoSession when the
// request is unauthenticated.
func (r *Resolver) Initial(req *http.Request) (*model.Profile, error) {
	claims, err := r.sessions.VerifyRequest(req, r.cookieName)
	if err != nil {
		r.logger.Debug("no session", "error", err)
		return nil, ErrNoSession
	}

	ctx := req.Context()

	p, err := r.store.ProfileByUserID(ctx, claims.UserID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup profile: %w", err)
	}

	user, err := r.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("fetch user: %w", err)
	}

	now := r.now().UTC()
	created := model.Profile{
		ID:        uuid.New(),
		UserID:    claims.UserID,
		Name:      model.DisplayName(user.FirstName, user.LastName),
		ImageURL:  user.ImageURL,
		Email:     user.PrimaryEmail(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := r.store.CreateProfile(ctx, created); err != nil {
		if errors.Is(err, store.ErrDuplicateUser) {
			// A concurrent first visit created it.
			return r.store.ProfileByUserID(ctx, claims.UserID)
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}

	r.logger.Info("profile created", "profile_id", created.ID, "user_id", created.UserID)
	return &created, nil
}
