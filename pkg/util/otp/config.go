package otp

import "github.com/ataa-platform/ataa_backend/config"

// Config holds OTP generation settings
type Config struct {
	// CodeLength is the generated code length (typically 6)
	CodeLength int

	// TTLSeconds is the absolute challenge lifetime
	TTLSeconds int

	// MaxAttempts is the number of failed entries before a challenge
	// becomes permanently unverifiable
	MaxAttempts int
}

// DefaultConfig returns sensible defaults for OTP challenges
func DefaultConfig() Config {
	return Config{
		CodeLength:  6,
		TTLSeconds:  600,
		MaxAttempts: 3,
	}
}

// Validate checks if the config values are valid
func (c Config) Validate() error {
	if c.CodeLength < MinLength || c.CodeLength > MaxLength {
		return ErrInvalidLength
	}
	return nil
}

// FromCentralConfig converts central config.OTPConfig to package Config,
// filling zero values from defaults.
func FromCentralConfig(c config.OTPConfig) Config {
	cfg := DefaultConfig()
	if c.CodeLength > 0 {
		cfg.CodeLength = c.CodeLength
	}
	if c.TTLSeconds > 0 {
		cfg.TTLSeconds = c.TTLSeconds
	}
	if c.MaxAttempts > 0 {
		cfg.MaxAttempts = c.MaxAttempts
	}
	return cfg
}
