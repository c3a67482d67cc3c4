package querylog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"burogate/internal/consent"
	id "burogate/pkg/domain"
	dErrors "burogate/pkg/domain-errors"
	"burogate/pkg/requestcontext"
)

type capturedEvents struct {
	events []Event
	err    error
}

func (c *capturedEvents) Emit(_ context.Context, event Event) error {
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, event)
	return nil
}

type QueryLogServiceSuite struct {
	suite.Suite

	now      time.Time
	store    *InMemoryStore
	consents *consent.InMemoryStore
	events   *capturedEvents
	service  *Service
}

func TestQueryLogServiceSuite(t *testing.T) {
	suite.Run(t, new(QueryLogServiceSuite))
}

func (s *QueryLogServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s.store = NewInMemoryStore()
	s.consents = consent.NewInMemoryStore()
	s.events = &capturedEvents{}
	s.service = New(s.store,
		WithUsageRecorder(s.consents),
		WithPublisher(s.events))
}

func (s *QueryLogServiceSuite) ctx() context.Context {
	ctx := requestcontext.WithTime(context.Background(), s.now)
	ctx = requestcontext.WithClientIP(ctx, "198.51.100.4")
	return requestcontext.WithRequestID(ctx, "req-123")
}

func (s *QueryLogServiceSuite) grant() consent.QueryConsent {
	created, err := s.consents.CreateQueryConsent(s.ctx(), consent.QueryConsent{
		TitularID:    id.EntityID(1),
		ConsultantID: id.EntityID(2),
		Start:        s.now.AddDate(0, -1, 0),
		Expiry:       s.now.AddDate(0, 6, 0),
	})
	s.Require().NoError(err)
	return created
}

func (s *QueryLogServiceSuite) TestRecord() {
	s.Run("fills timestamp and origin from context", func() {
		saved, err := s.service.Record(s.ctx(), QueryLog{
			TitularID:      id.EntityID(1),
			ConsultantID:   id.EntityID(2),
			OperatorUserID: id.UserID(30),
			QueryType:      QueryTypeSummary,
			Outcome:        OutcomeDeniedNoConsent,
			Reason:         consent.ReasonNoConsentBetween,
		})
		s.Require().NoError(err)
		s.NotZero(saved.ID)
		s.Equal(s.now, saved.CreatedAt)
		s.Equal("198.51.100.4", saved.OriginIP)
	})

	s.Run("rejects unknown query types and outcomes", func() {
		_, err := s.service.Record(s.ctx(), QueryLog{QueryType: "OTRA_COSA", Outcome: OutcomeSuccess})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.service.Record(s.ctx(), QueryLog{QueryType: QueryTypeSummary, Outcome: "MAYBE"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *QueryLogServiceSuite) TestConsentUsageBump() {
	grant := s.grant()

	s.Run("success bumps the attributed consent", func() {
		_, err := s.service.Record(s.ctx(), QueryLog{
			ConsentID:    grant.ID,
			TitularID:    grant.TitularID,
			ConsultantID: grant.ConsultantID,
			QueryType:    QueryTypeFullHistory,
			Outcome:      OutcomeSuccess,
		})
		s.Require().NoError(err)

		stored, err := s.consents.GetQueryConsent(s.ctx(), grant.ID)
		s.Require().NoError(err)
		s.Equal(1, stored.QueriesPerformed)
		s.Require().NotNil(stored.LastUsedAt)
		s.Equal(s.now, *stored.LastUsedAt)
	})

	s.Run("self queries carry no attribution and bump nothing", func() {
		_, err := s.service.Record(s.ctx(), QueryLog{
			TitularID:    grant.TitularID,
			ConsultantID: grant.TitularID,
			QueryType:    QueryTypeFullHistory,
			Outcome:      OutcomeSuccess,
		})
		s.Require().NoError(err)

		stored, err := s.consents.GetQueryConsent(s.ctx(), grant.ID)
		s.Require().NoError(err)
		s.Equal(1, stored.QueriesPerformed)
	})

	s.Run("denials bump nothing", func() {
		_, err := s.service.Record(s.ctx(), QueryLog{
			ConsentID:    grant.ID,
			TitularID:    grant.TitularID,
			ConsultantID: grant.ConsultantID,
			QueryType:    QueryTypeFullHistory,
			Outcome:      OutcomeDeniedQuota,
		})
		s.Require().NoError(err)

		stored, err := s.consents.GetQueryConsent(s.ctx(), grant.ID)
		s.Require().NoError(err)
		s.Equal(1, stored.QueriesPerformed)
	})

	s.Run("a failing bump does not fail the record", func() {
		_, err := s.service.Record(s.ctx(), QueryLog{
			ConsentID:    id.ConsentID(777),
			TitularID:    grant.TitularID,
			ConsultantID: grant.ConsultantID,
			QueryType:    QueryTypeFullHistory,
			Outcome:      OutcomeSuccess,
		})
		s.NoError(err)
	})
}

func (s *QueryLogServiceSuite) TestPublishing() {
	s.Run("events carry the request id", func() {
		_, err := s.service.Record(s.ctx(), QueryLog{
			TitularID:    id.EntityID(1),
			ConsultantID: id.EntityID(2),
			QueryType:    QueryTypeScoring,
			Outcome:      OutcomeUpstreamError,
			Reason:       "bureau unreachable",
		})
		s.Require().NoError(err)

		s.Require().Len(s.events.events, 1)
		event := s.events.events[0]
		s.NotEmpty(event.EventID)
		s.Equal("req-123", event.RequestID)
		s.Equal(OutcomeUpstreamError, event.Outcome)
	})

	s.Run("a failing publisher does not fail the record", func() {
		s.events.err = errors.New("broker down")
		_, err := s.service.Record(s.ctx(), QueryLog{
			TitularID:    id.EntityID(1),
			ConsultantID: id.EntityID(2),
			QueryType:    QueryTypeScoring,
			Outcome:      OutcomeSuccess,
		})
		s.NoError(err)
	})
}

func (s *QueryLogServiceSuite) TestListing() {
	for i := 0; i < 3; i++ {
		_, err := s.service.Record(s.ctx(), QueryLog{
			TitularID:    id.EntityID(1),
			ConsultantID: id.EntityID(2),
			QueryType:    QueryTypeSummary,
			Outcome:      OutcomeSuccess,
		})
		s.Require().NoError(err)
	}
	_, err := s.service.Record(s.ctx(), QueryLog{
		TitularID:    id.EntityID(3),
		ConsultantID: id.EntityID(2),
		QueryType:    QueryTypeSummary,
		Outcome:      OutcomeSuccess,
	})
	s.Require().NoError(err)

	performed, err := s.service.ListByConsultant(s.ctx(), id.EntityID(2), 0)
	s.Require().NoError(err)
	s.Len(performed, 4)

	received, err := s.service.ListByTitular(s.ctx(), id.EntityID(1), 2)
	s.Require().NoError(err)
	s.Len(received, 2)
}
