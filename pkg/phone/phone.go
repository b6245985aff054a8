// Package phone normalizes beneficiary phone numbers to the canonical local
// form used as the challenge-store key (e.g. "0591234567").
package phone

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is applied to numbers given without a country prefix.
const DefaultRegion = "PS"

var ErrInvalid = errors.New("invalid phone number")

// Normalize parses raw in the default region and returns the national
// 0-prefixed digit form. The same helper runs on every service entry point so
// the (phone, purpose) store key is stable no matter how the caller spelled
// the number ("+970591234567", "059 123 4567", "0591234567" all map to
// "0591234567").
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalid
	}

	num, err := phonenumbers.Parse(raw, DefaultRegion)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	// Possible-length check rather than full metadata validity: operators
	// open new ranges faster than metadata updates ship.
	if !phonenumbers.IsPossibleNumber(num) {
		return "", ErrInvalid
	}

	return fmt.Sprintf("0%d", num.GetNationalNumber()), nil
}

// E164 returns the international form for handing to SMS carriers.
func E164(raw string) (string, error) {
	num, err := phonenumbers.Parse(strings.TrimSpace(raw), DefaultRegion)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !phonenumbers.IsPossibleNumber(num) {
		return "", ErrInvalid
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
