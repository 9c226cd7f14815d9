// Package identity provides the identity-provider REST client.
//
// huddle never stores credentials. It verifies session tokens locally (see
// package auth) and asks the provider for user details only when a profile has
// to be created for a first-time user.
//
// Endpoints used:
//   - GET /users/{user_id}
package identity
