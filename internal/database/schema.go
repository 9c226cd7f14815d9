package database

// PostgresSchema creates the relational tables if they do not exist.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS profiles (
	id         UUID PRIMARY KEY,
	user_id    TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	image_url  TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS servers (
	id          UUID PRIMARY KEY,
	name        TEXT NOT NULL,
	image_url   TEXT NOT NULL DEFAULT '',
	invite_code TEXT NOT NULL UNIQUE,
	profile_id  UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS servers_profile_id_idx ON servers(profile_id);

CREATE TABLE IF NOT EXISTS members (
	id         UUID PRIMARY KEY,
	role       TEXT NOT NULL DEFAULT 'GUEST',
	profile_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	server_id  UUID NOT NULL REFERENCES servers(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (profile_id, server_id)
);
CREATE INDEX IF NOT EXISTS members_server_id_idx ON members(server_id);

CREATE TABLE IF NOT EXISTS channels (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	type       TEXT NOT NULL DEFAULT 'TEXT',
	profile_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	server_id  UUID NOT NULL REFERENCES servers(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS channels_server_id_idx ON channels(server_id);
`

// SQLiteSchema is PostgresSchema in SQLite's dialect. UUIDs are TEXT; TIMESTAMP
// columns let go-sqlite3 hand back time.Time values.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS profiles (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	image_url  TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS servers (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	image_url   TEXT NOT NULL DEFAULT '',
	invite_code TEXT NOT NULL UNIQUE,
	profile_id  TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS servers_profile_id_idx ON servers(profile_id);

CREATE TABLE IF NOT EXISTS members (
	id         TEXT PRIMARY KEY,
	role       TEXT NOT NULL DEFAULT 'GUEST',
	profile_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	server_id  TEXT NOT NULL REFERENCES servers(id) ON DELETE CASCADE,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE (profile_id, server_id)
);
CREATE INDEX IF NOT EXISTS members_server_id_idx ON members(server_id);

CREATE TABLE IF NOT EXISTS channels (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	type       TEXT NOT NULL DEFAULT 'TEXT',
	profile_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	server_id  TEXT NOT NULL REFERENCES servers(id) ON DELETE CASCADE,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS channels_server_id_idx ON channels(server_id);
`
