package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/rickgao/huddle/internal/model"
)

// Errors
var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateUser   = errors.New("profile already exists for user")
	ErrDuplicateMember = errors.New("profile is already a member")
)

// Store is the query interface the web layer consumes.
type Store interface {
	// Ping verifies the backing database is reachable.
	Ping(ctx context.Context) error

	// ProfileByUserID returns the profile for an identity-provider user id.
	ProfileByUserID(ctx context.Context, userID string) (*model.Profile, error)

	// CreateProfile inserts a new profile. Returns ErrDuplicateUser if the user already has one.
	CreateProfile(ctx context.Context, p model.Profile) error

	// FirstServerForProfile returns the oldest server the profile is a member of.
	FirstServerForProfile(ctx context.Context, profileID uuid.UUID) (*model.Server, error)

	// ServerForMember returns the server only if the profile is a member of it.
	ServerForMember(ctx context.Context, serverID, profileID uuid.UUID) (*model.Server, error)

	// ServersForProfile lists every server the profile is a member of, oldest first.
	ServersForProfile(ctx context.Context, profileID uuid.UUID) ([]model.Server, error)

	// DefaultChannel returns the server's "general" channel.
	DefaultChannel(ctx context.Context, serverID uuid.UUID) (*model.Channel, error)

	// ChannelInServer returns a channel only if it belongs to the server.
	ChannelInServer(ctx context.Context, serverID, channelID uuid.UUID) (*model.Channel, error)

	// Channels lists a server's channels, oldest first.
	Channels(ctx context.Context, serverID uuid.UUID) ([]model.Channel, error)

	// Members lists a server's members ordered by role then join time.
	Members(ctx context.Context, serverID uuid.UUID) ([]model.Member, error)

	// MemberForProfile returns the profile's membership in a server.
	MemberForProfile(ctx context.Context, serverID, profileID uuid.UUID) (*model.Member, error)

	// ServerByInviteCode looks up a server by its invite code, regardless of membership.
	ServerByInviteCode(ctx context.Context, code string) (*model.Server, error)

	// AddMember inserts a membership. Returns ErrDuplicateMember if the profile already joined.
	AddMember(ctx context.Context, m model.Member) error

	// CreateServer inserts the server, an ADMIN membership for its owner and the
	// default channel in one transaction.
	CreateServer(ctx context.Context, s model.Server) (*model.Channel, error)

	// Close releases the underlying connections.
	Close()
}

// roleOrder sorts ADMIN before MODERATOR before GUEST in member listings.
const roleOrder = `CASE role WHEN 'ADMIN' THEN 0 WHEN 'MODERATOR' THEN 1 ELSE 2 END`
