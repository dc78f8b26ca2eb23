// Package model defines the data structures used throughout the application.
package model

import "time"

// User is the local record mirroring one Instagram identity.
//
// IGUserID is the provider's stable user ID and is UNIQUE in storage, so
// logging in again with the same Instagram account updates this row instead
// of creating a second one. The internal ID is an xid string we generate
// ourselves, so our primary keys never depend on the provider's numbering.
//
// Pointer fields are nullable columns. The provider only guarantees id and
// username; everything else may be absent depending on the account type.
type User struct {
	ID                string  `json:"id"`
	IGUserID          string  `json:"igUserId"`
	IGScopedUserID    *string `json:"igScopedUserId,omitempty"`
	Username          string  `json:"username"`
	Name              *string `json:"name,omitempty"`
	AccountType       *string `json:"accountType,omitempty"`
	ProfilePictureURL *string `json:"profilePictureUrl,omitempty"`
	FollowersCount    *int64  `json:"followersCount,omitempty"`
	MediaCount        *int64  `json:"mediaCount,omitempty"`

	// Profile customisation, edited outside the OAuth flow. The login
	// upsert never writes these columns.
	Bio             *string `json:"bio,omitempty"`
	Location        *string `json:"location,omitempty"`
	Specialisations *string `json:"specialisations,omitempty"`
	Email           *string `json:"email,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Identity is what the Session Resolver hands to protected pages: the user
// behind a valid session, plus metadata from their Instagram token row (if
// one still exists).
type Identity struct {
	User           User       `json:"user"`
	TokenExpiresAt *time.Time `json:"tokenExpiresAt,omitempty"`
}
