package common

import "time"

// SessionCookieName is the name of the signed cookie carrying the account DID.
const SessionCookieName = "tumbsky_session"

// SessionCookieMaxAge bounds how long a browser keeps the session cookie.
// Tokens carry no expiry of their own.
const SessionCookieMaxAge = 30 * 24 * time.Hour

// InvalidHandle is shown for accounts whose handle is not known locally.
const InvalidHandle = "handle.invalid"
