// Package model defines the relational types shared across huddle.
//
// Conventions:
//   - IDs: uuid.UUID for every entity; Profile.UserID is the identity-provider user id
//   - Timestamps: time.Time in UTC
//   - Enums: upper-case strings as stored in the database (ADMIN, TEXT, ...)
package model
