package service

import "errors"

// Error kinds exposed to the HTTP layer. NotFound deliberately covers both
// absent and deactivated records; Expired is distinct so clients can tell
// "never existed" from "no longer valid".
var (
	ErrInvalidTarget       = errors.New("invalid target url")
	ErrTargetTooLong       = errors.New("target url exceeds maximum length")
	ErrInvalidAlias        = errors.New("invalid custom alias")
	ErrNotFound            = errors.New("short link not found")
	ErrExpired             = errors.New("short link expired")
	ErrGenerationExhausted = errors.New("could not allocate a unique short code")
)
