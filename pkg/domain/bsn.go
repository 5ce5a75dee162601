package domain

import (
	dErrors "wmoned/pkg/domain-errors"
)

// BSN is a validated Dutch citizen service number (burgerservicenummer).
// It is the only identifier the registry accepts for a person lookup.
//
// Invariants:
//   - exactly 9 ASCII digits (8-digit numbers are left-padded with a zero)
//   - passes the 11-check
type BSN string

// ParseBSN validates s and returns it as a BSN.
func ParseBSN(s string) (BSN, error) {
	if len(s) == 8 {
		s = "0" + s
	}
	if len(s) != 9 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "bsn must be 8 or 9 digits")
	}
	sum := 0
	for i := 0; i < 9; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return "", dErrors.New(dErrors.CodeInvalidInput, "bsn must be numeric")
		}
		weight := 9 - i
		if i == 8 {
			weight = -1
		}
		sum += int(c-'0') * weight
	}
	if sum == 0 || sum%11 != 0 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "bsn fails the 11-check")
	}
	return BSN(s), nil
}

// String returns the BSN digits.
func (b BSN) String() string {
	return string(b)
}

// IsZero reports whether b is unset.
func (b BSN) IsZero() bool {
	return b == ""
}

// Masked returns the BSN with all but the last three digits hidden, for logs.
func (b BSN) Masked() string {
	if len(b) < 3 {
		return "***"
	}
	return "******" + string(b[len(b)-3:])
}
