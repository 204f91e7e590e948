package models

import "time"

// OAuthState is the short-lived data of one in-flight login.
type OAuthState struct {
	Key       string
	State     string
	ExpiresAt time.Time
}

// OAuthSession is the sealed token material of one account.
type OAuthSession struct {
	DID       string
	Session   string
	UpdatedAt time.Time
}
