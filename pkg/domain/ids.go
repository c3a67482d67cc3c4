// Package domain holds identifier and value types shared across modules.
// Typed IDs prevent cross-type assignment: a consultant entity ID can never be
// passed where a consent ID is expected.
package domain

import (
	"strconv"

	dErrors "burogate/pkg/domain-errors"
)

// EntityID identifies a titular or consultant organization/person.
type EntityID int64

// UserID identifies the operator user acting on behalf of an entity.
type UserID int64

// ConsentID identifies an EntityConsent or QueryConsent row.
// The zero value is the synthetic ID attributed to self-queries.
type ConsentID int64

func (id EntityID) IsZero() bool  { return id == 0 }
func (id UserID) IsZero() bool    { return id == 0 }
func (id ConsentID) IsZero() bool { return id == 0 }

func (id EntityID) String() string  { return strconv.FormatInt(int64(id), 10) }
func (id UserID) String() string    { return strconv.FormatInt(int64(id), 10) }
func (id ConsentID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseEntityID constructs an EntityID from external input.
// Errors: CodeValidation when the value is not a positive integer.
func ParseEntityID(s string) (EntityID, error) {
	n, err := parsePositiveInt(s)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeValidation, "invalid entity id")
	}
	return EntityID(n), nil
}

// ParseConsentID constructs a ConsentID from external input.
func ParseConsentID(s string) (ConsentID, error) {
	n, err := parsePositiveInt(s)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeValidation, "invalid consent id")
	}
	return ConsentID(n), nil
}

func parsePositiveInt(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
