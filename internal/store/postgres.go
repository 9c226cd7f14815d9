package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/huddle/internal/model"
)

const pgUniqueViolation = "23505"

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ Store = (*Postgres)(nil)

// NewPostgres wraps an open pool. The pool is closed by Close.
func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{pool: pool, logger: logger}
}

// Ping verifies the pool can reach the database.
func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *Postgres) Close() {
	s.pool.Close()
}

// ProfileByUserID returns the profile for an identity-provider user id.
func (s *Postgres) ProfileByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, name, image_url, email, created_at, updated_at
		FROM profiles WHERE user_id = $1`, userID)

	var p model.Profile
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.ImageURL, &p.Email, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, pgNotFound(err, "query profile")
	}
	return &p, nil
}

// CreateProfile inserts a new profile.
func (s *Postgres) CreateProfile(ctx context.Context, p model.Profile) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO profiles (id, user_id, name, image_url, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.UserID, p.Name, p.ImageURL, p.Email, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isPgUnique(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// FirstServerForProfile returns the oldest server the profile is a member of.
func (s *Postgres) FirstServerForProfile(ctx context.Context, profileID uuid.UUID) (*model.Server, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT s.id, s.name, s.image_url, s.invite_code, s.profile_id, s.created_at, s.updated_at
		FROM servers s
		JOIN members m ON m.server_id = s.id
		WHERE m.profile_id = $1
		ORDER BY s.created_at, s.id
		LIMIT 1`, profileID)
	return scanPgServer(row)
}

// ServerForMember returns the server only if the profile is a member of it.
func (s *Postgres) ServerForMember(ctx context.Context, serverID, profileID uuid.UUID) (*model.Server, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT s.id, s.name, s.image_url, s.invite_code, s.profile_id, s.created_at, s.updated_at
		FROM servers s
		WHERE s.id = $1
		  AND EXISTS (SELECT 1 FROM members m WHERE m.server_id = s.id AND m.profile_id = $2)`,
		serverID, profileID)
	return scanPgServer(row)
}

// ServersForProfile lists every server the profile is a member of.
func (s *Postgres) ServersForProfile(ctx context.Context, profileID uuid.UUID) ([]model.Server, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.name, s.image_url, s.invite_code, s.profile_id, s.created_at, s.updated_at
		FROM servers s
		JOIN members m ON m.server_id = s.id
		WHERE m.profile_id = $1
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
func (s *Postgres) DefaultChannel(ctx context.Context, serverID uuid.UUID) (*model.Channel, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, type, profile_id, server_id, created_at, updated_at
		FROM channels
		WHERE server_id = $1 AND name = $2
		ORDER BY created_at ASC
		LIMIT 1`, serverID, model.DefaultChannelName)
	return scanPgChannel(row)
}

// ChannelInServer returns a channel only if it belongs to the server.
func (s *Postgres) ChannelInServer(ctx context.Context, serverID, channelID uuid.UUID) (*model.Channel, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, type, profile_id, server_id, created_at, updated_at
		FROM channels
		WHERE id = $1 AND server_id = $2`, channelID, serverID)
	return scanPgChannel(row)
}

// Channels lists a server's channels.
func (s *Postgres) Channels(ctx context.Context, serverID uuid.UUID) ([]model.Channel, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, type, profile_id, server_id, created_at, updated_at
		FROM channels
		WHERE server_id = $1
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
func (s *Postgres) Members(ctx context.Context, serverID uuid.UUID) ([]model.Member, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, role, profile_id, server_id, created_at, updated_at
		FROM members
		WHERE server_id = $1
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
func (s *Postgres) MemberForProfile(ctx context.Context, serverID, profileID uuid.UUID) (*model.Member, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, role, profile_id, server_id, created_at, updated_at
		FROM members
		WHERE server_id = $1 AND profile_id = $2`, serverID, profileID)

	var m model.Member
	if err := row.Scan(&m.ID, &m.Role, &m.ProfileID, &m.ServerID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, pgNotFound(err, "query member")
	}
	return &m, nil
}

// ServerByInviteCode looks up a server by its invite code.
func (s *Postgres) ServerByInviteCode(ctx context.Context, code string) (*model.Server, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, image_url, invite_code, profile_id, created_at, updated_at
		FROM servers WHERE invite_code = $1`, code)
	return scanPgServer(row)
}

// AddMember inserts a membership.
func (s *Postgres) AddMember(ctx context.Context, m model.Member) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO members (id, role, profile_id, server_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.Role, m.ProfileID, m.ServerID, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		if isPgUnique(err) {
			return ErrDuplicateMember
		}
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// CreateServer inserts the server, its owner's ADMIN membership and the default channel.
func (s *Postgres) CreateServer(ctx context.Context, sv model.Server) (*model.Channel, error) {
	member := model.NewMember(sv.ID, sv.ProfileID, model.RoleAdmin, sv.CreatedAt)
	channel := model.NewDefaultChannel(sv.ID, sv.ProfileID, sv.CreatedAt)

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO servers (id, name, image_url, invite_code, profile_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			sv.ID, sv.Name, sv.ImageURL, sv.InviteCode, sv.ProfileID, sv.CreatedAt, sv.UpdatedAt); err != nil {
			return fmt.Errorf("insert server: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO members (id, role, profile_id, server_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			member.ID, member.Role, member.ProfileID, member.ServerID, member.CreatedAt, member.UpdatedAt); err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO channels (id, name, type, profile_id, server_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			channel.ID, channel.Name, channel.Type, channel.ProfileID, channel.ServerID, channel.CreatedAt, channel.UpdatedAt); err != nil {
			return fmt.Errorf("insert channel: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("server created", "server_id", sv.ID, "owner", sv.ProfileID)
	return &channel, nil
}

func scanPgServer(row pgx.Row) (*model.Server, error) {
	var sv model.Server
	if err := row.Scan(&sv.ID, &sv.Name, &sv.ImageURL, &sv.InviteCode, &sv.ProfileID, &sv.CreatedAt, &sv.UpdatedAt); err != nil {
		return nil, pgNotFound(err, "query server")
	}
	return &sv, nil
}

func scanPgChannel(row pgx.Row) (*model.Channel, error) {
	var c model.Channel
	if err := row.Scan(&c.ID, &c.Name, &c.Type, &c.ProfileID, &c.ServerID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, pgNotFound(err, "query channel")
	}
	return &c, nil
}

func pgNotFound(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isPgUnique(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
