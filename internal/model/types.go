package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultChannelName is the channel every server is created with.
const DefaultChannelName = "general"

// MemberRole is a member's role within a server.
type MemberRole string

const (
	RoleAdmin     MemberRole = "ADMIN"
	RoleModerator MemberRole = "MODERATOR"
	RoleGuest     MemberRole = "GUEST"
)

// Valid reports whether r is a known role.
func (r MemberRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleGuest:
		return true
	}
	return false
}

// ChannelType is the kind of conversation a channel hosts.
type ChannelType string

const (
	ChannelText  ChannelType = "TEXT"
	ChannelAudio ChannelType = "AUDIO"
	ChannelVideo ChannelType = "VIDEO"
)

// Valid reports whether t is a known channel type.
func (t ChannelType) Valid() bool {
	switch t {
	case ChannelText, ChannelAudio, ChannelVideo:
		return true
	}
	return false
}

// Profile is the application-level user record derived from an identity-provider session.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"userId"` // Identity-provider user id (unique)
	Name      string    `json:"name"`
	ImageURL  string    `json:"imageUrl"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Server is a community a profile can be a member of.
type Server struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	ImageURL   string    `json:"imageUrl"`
	InviteCode string    `json:"inviteCode"`
	ProfileID  uuid.UUID `json:"profileId"` // Owner
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Member links a profile to a server.
type Member struct {
	ID        uuid.UUID  `json:"id"`
	Role      MemberRole `json:"role"`
	ProfileID uuid.UUID  `json:"profileId"`
	ServerID  uuid.UUID  `json:"serverId"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Channel is a named sub-context within a server where messages are exchanged.
type Channel struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Type      ChannelType `json:"type"`
	ProfileID uuid.UUID   `json:"profileId"` // Creator
	ServerID  uuid.UUID   `json:"serverId"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// NewServer builds a server owned by owner with fresh IDs and invite code.
func NewServer(name, imageURL string, owner uuid.UUID, now time.Time) Server {
	return Server{
		ID:         uuid.New(),
		Name:       strings.TrimSpace(name),
		ImageURL:   imageURL,
		InviteCode: uuid.NewString(),
		ProfileID:  owner,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// NewMember builds a membership record.
func NewMember(serverID, profileID uuid.UUID, role MemberRole, now time.Time) Member {
	return Member{
		ID:        uuid.New(),
		Role:      role,
		ProfileID: profileID,
		ServerID:  serverID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewDefaultChannel builds the general text channel created alongside a server.
func NewDefaultChannel(serverID, creator uuid.UUID, now time.Time) Channel {
	return Channel{
		ID:        uuid.New(),
		Name:      DefaultChannelName,
		Type:      ChannelText,
		ProfileID: creator,
		ServerID:  serverID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DisplayName joins first and last name the way profiles are named on creation.
func DisplayName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}
