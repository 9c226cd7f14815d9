// Package store is the data-access layer for profiles, servers, members and channels.
//
// Every lookup that can come back empty returns ErrNotFound; membership
// predicates ("servers this profile belongs to") are enforced in SQL so callers
// never see rows for servers a profile has not joined.
package store
