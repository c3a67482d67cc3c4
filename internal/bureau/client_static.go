package bureau

import (
	"context"

	id "burogate/pkg/domain"
)

// StaticClient serves canned bureau data. It backs unit tests and local
// development without a bureau connection.
type StaticClient struct {
	Summaries      map[id.TaxID]*Summary
	Stats          map[id.TaxID]*PaymentStats
	Obligations    map[id.TaxID][]Obligation
	PaymentHistory map[id.TaxID][]Payment
	Pending        map[id.TaxID][]PendingPayment
	// Err, when set, is returned by every call to simulate an outage.
	Err error
}

func NewStaticClient() *StaticClient {
	return &StaticClient{
		Summaries:      make(map[id.TaxID]*Summary),
		Stats:          make(map[id.TaxID]*PaymentStats),
		Obligations:    make(map[id.TaxID][]Obligation),
		PaymentHistory: make(map[id.TaxID][]Payment),
		Pending:        make(map[id.TaxID][]PendingPayment),
	}
}

func (c *StaticClient) Summary(_ context.Context, taxID id.TaxID) (*Summary, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Summaries[taxID], nil
}

func (c *StaticClient) PaymentStats(_ context.Context, taxID id.TaxID) (*PaymentStats, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Stats[taxID], nil
}

func (c *StaticClient) ObligationDetails(_ context.Context, taxID id.TaxID) ([]Obligation, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return append([]Obligation{}, c.Obligations[taxID]...), nil
}

func (c *StaticClient) Payments(_ context.Context, taxID id.TaxID) ([]Payment, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return append([]Payment{}, c.PaymentHistory[taxID]...), nil
}

func (c *StaticClient) PendingPayments(_ context.Context, taxID id.TaxID) ([]PendingPayment, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return append([]PendingPayment{}, c.Pending[taxID]...), nil
}
