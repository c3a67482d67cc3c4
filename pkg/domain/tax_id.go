package domain

import (
	"strings"
	"unicode/utf8"

	dErrors "burogate/pkg/domain-errors"
)

// TaxID is the fiscal identifier (RFC) of an entity: 12 characters for
// organizations, 13 for natural persons. It is the lookup key the bureau
// data source understands.
type TaxID string

// ParseTaxID validates and normalizes an RFC at trust boundaries.
// Errors: CodeValidation when the length or alphabet is wrong.
func ParseTaxID(s string) (TaxID, error) {
	rfc := strings.ToUpper(strings.TrimSpace(s))
	// Rune count, not byte length: Ñ is a legal RFC character and is two
	// bytes in UTF-8.
	if n := utf8.RuneCountInString(rfc); n != 12 && n != 13 {
		return "", dErrors.New(dErrors.CodeValidation, "tax id must be 12 or 13 characters")
	}
	for _, r := range rfc {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '&' && r != 'Ñ' {
			return "", dErrors.New(dErrors.CodeValidation, "tax id contains invalid characters")
		}
	}
	return TaxID(rfc), nil
}

// IsOrganization reports whether the RFC belongs to an organization
// (12 characters) rather than a natural person (13).
func (t TaxID) IsOrganization() bool { return utf8.RuneCountInString(string(t)) == 12 }

func (t TaxID) String() string { return string(t) }
