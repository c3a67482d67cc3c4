package bureau

import (
	"context"

	id "burogate/pkg/domain"
)

// Client fetches subject data from the bureau. Summary and PaymentStats
// return (nil, nil) when the bureau has no record of the subject; list
// fetches return an empty slice in that case. Any other failure is an error.
type Client interface {
	Summary(ctx context.Context, taxID id.TaxID) (*Summary, error)
	PaymentStats(ctx context.Context, taxID id.TaxID) (*PaymentStats, error)
	ObligationDetails(ctx context.Context, taxID id.TaxID) ([]Obligation, error)
	Payments(ctx context.Context, taxID id.TaxID) ([]Payment, error)
	PendingPayments(ctx context.Context, taxID id.TaxID) ([]PendingPayment, error)
}
