package service

import "github.com/google/uuid"

// TokenSource mints opaque access tokens for public reports.
type TokenSource interface {
	NewToken() string
}

// UUIDTokens mints random version 4 UUIDs.
type UUIDTokens struct{}

func (UUIDTokens) NewToken() string { return uuid.NewString() }
