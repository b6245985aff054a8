package pasetotoken

import "fmt"

// ErrConfig reports a misconfigured key or mode.
type ErrConfig struct{ Msg string }

func (e ErrConfig) Error() string { return "paseto config error: " + e.Msg }

// ErrInvalidToken wraps any parse or claim validation failure.
type ErrInvalidToken struct{ Err error }

func (e ErrInvalidToken) Error() string { return fmt.Sprintf("invalid token: %v", e.Err) }
func (e ErrInvalidToken) Unwrap() error { return e.Err }
