package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/rickgao/huddle/internal/model"
)

// SQLite implements Store on a database/sql handle opened with go-sqlite3.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Store = (*SQLite)(nil)

// NewSQLite wraps an open database. The database is closed by Close.
func NewSQLite(db *sql.DB, logger *slog.Logger) *SQLite {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLite{db: db, logger: logger}
}

// Ping verifies the database is reachable.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLite) Close() {
	if err := s.db.Close(); err != nil {
		s.logger.Warn("close sqlite", "error", err)
	}
}

// ProfileByUserID returns the profile for an identity-provider user id.
func (s *SQLite) ProfileByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, image_url, email, created_at, updated_at
		FROM profiles WHERE user_id = ?`, userID)

	var p model.Profile
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.ImageURL, &p.Email, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, sqlNotFound(err, "query profile")
	}
	return &p, nil
}

// CreateProfile inserts a new profile.
func (s *SQLite) CreateProfile(ctx context.Context, p model.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, user_id, name, image_url, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Name, p.ImageURL, p.Email, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err != nil {
		if isSQLiteUnique(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// FirstServerForProfile returns the oldest server the profile is a member of.
func (s *SQLite) FirstServerForProfile(ctx context.Context, profileID uuid.UUID) (*model.Server, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.name, s.image_url, s.invite_code, s.profile_id, s.created_at, s.updated_at
		FROM servers s
		JOIN members m ON m.server_id = s.id
		WHERE m.profile_id = ?
		ORDER BY s.created_at, s.id
		LIMIT 1`, profileID)
	return scanSQLServer(row)
}

// ServerForMember returns the server only if the profile is a member of it.
func (s *SQLite) ServerForMember(ctx context.Context, serverID, profileID uuid.UUID) (*model.Server, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.name, s.image_url, s.invite_code, s.profile_id, s.created_at, s.updated_at
		FROM servers s
		WHERE s.id = ?
		  AND EXISTS (SELECT 1 FROM members m WHERE m.server_id = s.id AND m.profile_id = ?)`,
		serverID, profileID)
	return scanSQLServer(row)
}

// ServersForProfile lists every server the profile is a member of.
func (s *SQLite) ServersForProfile(ctx context.Context, profileID uuid.UUID) ([]model.Server, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.image_url, s.invite_code, s.profile_id, s.created_at, s.updated_at
		FROM servers s
		JOIN members m ON m.server_id = s.id
		WHERE m.profile_id = ?
		ORDER BY s.created_at, s.id`, profileID)
	if err != nil {
		return nil, fmt.Errorf("query servers: %w", err)
	}
	defer rows.Close()

	var servers []model.Server
	for rows.Next() {
		var sv model.Server
		if err := rows.Scan(&sv.ID, &sv.Name, &sv.ImageURL, &sv.InviteCode, &sv.ProfileID, &sv.CreatedAt, &sv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan server: %w", err)
		}
		servers = append(servers, sv)
	}
	return servers, rows.Err()
}

// DefaultChannel returns the server's "general" channel.
func (s *SQLite) DefaultChannel(ctx context.Context, serverID uuid.UUID) (*model.Channel, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, type, profile_id, server_id, created_at, updated_at
		FROM channels
		WHERE server_id = ? AND name = ?
		ORDER BY created_at ASC
		LIMIT 1`, serverID, model.DefaultChannelName)
	return scanSQLChannel(row)
}

// ChannelInServer returns a channel only if it belongs to the server.
func (s *SQLite) ChannelInServer(ctx context.Context, serverID, channelID uuid.UUID) (*model.Channel, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, type, profile_id, server_id, created_at, updated_at
		FROM channels
		WHERE id = ? AND server_id = ?`, channelID, serverID)
	return scanSQLChannel(row)
}

// Channels lists a server's channels.
func (s *SQLite) Channels(ctx context.Context, serverID uuid.UUID) ([]model.Channel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, profile_id, server_id, created_at, updated_at
		FROM channels
		WHERE server_id = ?
		ORDER BY created_at, id`, serverID)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer rows.Close()

	var channels []model.Channel
	for rows.Next() {
		var c model.Channel
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.ProfileID, &c.ServerID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

// Members lists a server's members.
func (s *SQLite) Members(ctx context.Context, serverID uuid.UUID) ([]model.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, profile_id, server_id, created_at, updated_at
		FROM members
		WHERE server_id = ?
		ORDER BY `+roleOrder+`, created_at, id`, serverID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.ID, &m.Role, &m.ProfileID, &m.ServerID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// MemberForProfile returns the profile's membership in a server.
func (s *SQLite) MemberForProfile(ctx context.Context, serverID, profileID uuid.UUID) (*model.Member, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, role, profile_id, server_id, created_at, updated_at
		FROM members
		WHERE server_id = ? AND profile_id = ?`, serverID, profileID)

	var m model.Member
	if err := row.Scan(&m.ID, &m.Role, &m.ProfileID, &m.ServerID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, sqlNotFound(err, "query member")
	}
	return &m, nil
}

// ServerByInviteCode looks up a server by its invite code.
func (s *SQLite) ServerByInviteCode(ctx context.Context, code string) (*model.Server, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, image_url, invite_code, profile_id, created_at, updated_at
		FROM servers WHERE invite_code = ?`, code)
	return scanSQLServer(row)
}

// AddMember inserts a membership.
func (s *SQLite) AddMember(ctx context.Context, m model.Member) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO members (id, role, profile_id, server_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.Role, m.ProfileID, m.ServerID, m.CreatedAt.UTC(), m.UpdatedAt.UTC())
	if err != nil {
		if isSQLiteUnique(err) {
			return ErrDuplicateMember
		}
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// CreateServer inserts the server, its owner's ADMIN membership and the default channel.
func (s *SQLite) CreateServer(ctx context.Context, sv model.Server) (*model.Channel, error) {
	member := model.NewMember(sv.ID, sv.ProfileID, model.RoleAdmin, sv.CreatedAt)
	channel := model.NewDefaultChannel(sv.ID, sv.ProfileID, sv.CreatedAt)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO servers (id, name, image_url, invite_code, profile_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sv.ID, sv.Name, sv.ImageURL, sv.InviteCode, sv.ProfileID, sv.CreatedAt.UTC(), sv.UpdatedAt.UTC()); err != nil {
		return nil, fmt.Errorf("insert server: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO members (id, role, profile_id, server_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		member.ID, member.Role, member.ProfileID, member.ServerID, member.CreatedAt.UTC(), member.UpdatedAt.UTC()); err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO channels (id, name, type, profile_id, server_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		channel.ID, channel.Name, channel.Type, channel.ProfileID, channel.ServerID, channel.CreatedAt.UTC(), channel.UpdatedAt.UTC()); err != nil {
		return nil, fmt.Errorf("insert channel: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.logger.Debug("server created", "server_id", sv.ID, "owner", sv.ProfileID)
	return &channel, nil
}

func scanSQLServer(row *sql.Row) (*model.Server, error) {
	var sv model.Server
	if err := row.Scan(&sv.ID, &sv.Name, &sv.ImageURL, &sv.InviteCode, &sv.ProfileID, &sv.CreatedAt, &sv.UpdatedAt); err != nil {
		return nil, sqlNotFound(err, "query server")
	}
	return &sv, nil
}

func scanSQLChannel(row *sql.Row) (*model.Channel, error) {
	var c model.Channel
	if err := row.Scan(&c.ID, &c.Name, &c.Type, &c.ProfileID, &c.ServerID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, sqlNotFound(err, "query channel")
	}
	return &c, nil
}

func sqlNotFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isSQLiteUnique(err error) bool {
	var sqlErr sqlite3.Error
	return errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
