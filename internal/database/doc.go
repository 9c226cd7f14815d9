// Package database opens the relational stores huddle runs on.
//
//   - PostgreSQL (pgxpool): production storage for profiles, servers, members, channels
//   - SQLite (go-sqlite3): single-file storage for local development and tests
//
// Both are bootstrapped with the same idempotent schema.
package database
