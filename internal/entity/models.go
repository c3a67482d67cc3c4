// Package entity provides read-side access to onboarded organizations and
// persons. Entity CRUD belongs to the onboarding service; the gateway only
// resolves titulars and enforces the active flag.
package entity

import (
	"time"

	id "burogate/pkg/domain"
)

// Entity is a titular or consultant organization/person.
type Entity struct {
	ID                id.EntityID
	LegalName         string
	TaxID             id.TaxID
	Kind              Kind
	Active            bool
	Plan              string
	MaxMonthlyQueries int
	CreatedAt         time.Time
}

// Kind distinguishes organizations from natural persons. The tax id length
// must agree with the kind.
type Kind string

const (
	KindOrganization Kind = "MORAL"
	KindPerson       Kind = "FISICA"
)
