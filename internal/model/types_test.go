package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewServer(t *testing.T) {
	owner := uuid.New()
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	s := NewServer("  Gophers  ", "https://utfs.io/f/logo.png", owner, now)

	if s.ID == uuid.Nil {
		t.Error("ID should be set")
	}
	if s.Name != "Gophers" {
		t.Errorf("Name = %q, want %q", s.Name, "Gophers")
	}
	if s.ProfileID != owner {
		t.Errorf("ProfileID = %v, want %v", s.ProfileID, owner)
	}
	if _, err := uuid.Parse(s.InviteCode); err != nil {
		t.Errorf("InviteCode %q is not a uuid: %v", s.InviteCode, err)
	}
	if !s.CreatedAt.Equal(now) || !s.UpdatedAt.Equal(now) {
		t.Errorf("timestamps = %v/%v, want %v", s.CreatedAt, s.UpdatedAt, now)
	}

	other := NewServer("Gophers", "", owner, now)
	if other.ID == s.ID || other.InviteCode == s.InviteCode {
		t.Error("servers should get distinct IDs and invite codes")
	}
}

func TestNewDefaultChannel(t *testing.T) {
	serverID, creator := uuid.New(), uuid.New()
	c := NewDefaultChannel(serverID, creator, time.Now())

	if c.Name != DefaultChannelName {
		t.Errorf("Name = %q, want %q", c.Name, DefaultChannelName)
	}
	if c.Type != ChannelText {
		t.Errorf("Type = %q, want %q", c.Type, ChannelText)
	}
	if c.ServerID != serverID || c.ProfileID != creator {
		t.Error("channel not linked to server and creator")
	}
}

func TestEnums(t *testing.T) {
	for _, r := range []MemberRole{RoleAdmin, RoleModerator, RoleGuest} {
		if !r.Valid() {
			t.Errorf("%q should be valid", r)
		}
	}
	if MemberRole("OWNER").Valid() {
		t.Error("OWNER should not be a valid role")
	}
	for _, ct := range []ChannelType{ChannelText, ChannelAudio, ChannelVideo} {
		if !ct.Valid() {
			t.Errorf("%q should be valid", ct)
		}
	}
	if ChannelType("FORUM").Valid() {
		t.Error("FORUM should not be a valid channel type")
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		first, last, want string
	}{
		{"Ada", "Lovelace", "Ada Lovelace"},
		{"Ada", "", "Ada"},
		{"", "Lovelace", "Lovelace"},
		{" Ada ", " Lovelace ", "Ada Lovelace"},
		{"", "", ""},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.first, tt.last); got != tt.want {
			t.Errorf("DisplayName(%q, %q) = %q, want %q", tt.first, tt.last, got, tt.want)
		}
	}
}
