package models

import "time"

// User is a locally registered account. Registration happens on first login.
type User struct {
	DID       string
	Handle    string
	CustomCSS string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile mirrors the app.bsky.actor.profile/self record of a registered user.
type Profile struct {
	DID         string
	DisplayName string
	AvatarCID   string
	Description string
	UpdatedAt   time.Time
}
