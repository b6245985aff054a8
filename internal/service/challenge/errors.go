package challenge

import "errors"

var (
	// ErrNoChallenge is returned by stores when no challenge exists for the pair.
	ErrNoChallenge = errors.New("no challenge for phone and purpose")

	// ErrInvalidOrExpired covers every rejection the user cannot tell apart:
	// missing challenge, expired window, or a superseded code.
	ErrInvalidOrExpired = errors.New("code is incorrect or expired")

	// ErrAttemptsExhausted means the challenge is permanently unverifiable
	// until a new one is issued.
	ErrAttemptsExhausted = errors.New("too many incorrect attempts, request a new code")

	// ErrDeliveryFailed means the notification sink rejected the send.
	ErrDeliveryFailed = errors.New("could not deliver verification code")

	ErrInvalidPhone   = errors.New("invalid phone number format")
	ErrUnknownPurpose = errors.New("unknown challenge purpose")
)
