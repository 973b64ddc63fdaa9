package common

// DefaultCookieName is the cookie that carries the signed session envelope
// when no other name is configured.
const DefaultCookieName = "sid"

// SessionIDSize is the number of random bytes behind a session id. The id
// itself is hex encoded, so it is twice as long.
const SessionIDSize = 32
