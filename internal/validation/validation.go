// Package validation checks names that end up in file paths and index keys.
package validation

import (
	"fmt"
	"unicode"

	"github.com/xtxerr/firstline/internal/errors"
)

// NameRules defines what a name may look like.
type NameRules struct {
	MinLength    int
	MaxLength    int
	AllowHyphens bool
}

// SatelliteRules returns the rules for satellite names. A satellite name is
// a directory and the prefix of every granule file name, separated from the
// start time by an underscore, so underscores are not allowed.
func SatelliteRules() NameRules {
	return NameRules{
		MinLength:    1,
		MaxLength:    64,
		AllowHyphens: true,
	}
}

// ValidateName validates name according to rules.
func ValidateName(field, name string, rules NameRules) error {
	if name == "" && rules.MinLength > 0 {
		return errors.NewMissingField(field)
	}
	if len(name) < rules.MinLength {
		return errors.NewInvalidValue(field, name,
			fmt.Sprintf("too short: minimum %d characters required", rules.MinLength))
	}
	if len(name) > rules.MaxLength {
		return errors.NewInvalidValue(field, name,
			fmt.Sprintf("too long: maximum %d characters allowed", rules.MaxLength))
	}
	if name == "." || name == ".." || name[0] == '.' {
		return errors.NewInvalidValue(field, name, "cannot start with '.'")
	}

	for i, r := range name {
		if r < 32 || r == 127 {
			return errors.NewInvalidValue(field, name,
				fmt.Sprintf("control character at position %d", i))
		}
		if r == '/' || r == '\\' {
			return errors.NewInvalidValue(field, name,
				fmt.Sprintf("path separator at position %d", i))
		}
		if !isAllowedNameChar(r, rules) {
			return errors.NewInvalidValue(field, name,
				fmt.Sprintf("invalid character %q at position %d", r, i))
		}
	}
	return nil
}

func isAllowedNameChar(r rune, rules NameRules) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	return r == '-' && rules.AllowHyphens
}

// ValidateSatellite validates a satellite name.
func ValidateSatellite(name string) error {
	return ValidateName("satellite", name, SatelliteRules())
}

// maxLabelLength bounds index keys.
const maxLabelLength = 1024

// ValidateLabel validates an index label. Labels are opaque, only empty
// ones, overly long ones and ones with control characters are rejected.
func ValidateLabel(label string) error {
	if label == "" {
		return errors.NewMissingField("label")
	}
	if len(label) > maxLabelLength {
		return errors.NewInvalidValue("label", label,
			fmt.Sprintf("too long: maximum %d characters allowed", maxLabelLength))
	}
	for i, r := range label {
		if r < 32 || r == 127 {
			return errors.NewInvalidValue("label", label,
				fmt.Sprintf("control character at position %d", i))
		}
	}
	return nil
}
