package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	id "burogate/pkg/domain"
	"burogate/pkg/requestcontext"
)

func TestPeriodBounds(t *testing.T) {
	loc := time.FixedZone("CST", -6*3600)
	now := time.Date(2026, 3, 31, 23, 59, 59, 0, loc)

	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, loc), PeriodStart(now))
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, loc), PeriodEnd(now))

	// December rolls into the next year.
	dec := time.Date(2026, 12, 15, 10, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, loc), PeriodEnd(dec))
}

type QuotaServiceSuite struct {
	suite.Suite

	now     time.Time
	store   *InMemoryStore
	service *Service
	entity  id.EntityID
}

func TestQuotaServiceSuite(t *testing.T) {
	suite.Run(t, new(QuotaServiceSuite))
}

func (s *QuotaServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s.store = NewInMemoryStore()
	s.service = New(s.store)
	s.entity = id.EntityID(7)
}

func (s *QuotaServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *QuotaServiceSuite) TestCheckLimit() {
	s.Run("fresh period is allowed", func() {
		status, err := s.service.CheckLimit(s.ctx(), s.entity, 3)
		s.Require().NoError(err)
		s.True(status.Allowed)
		s.Equal(0, status.Used)
		s.Equal(3, status.Remaining)
		s.Equal(PeriodStart(s.now), status.PeriodStart)
	})

	s.Run("last unit is still allowed", func() {
		for i := 0; i < 2; i++ {
			_, err := s.service.RecordQuery(s.ctx(), s.entity)
			s.Require().NoError(err)
		}
		status, err := s.service.CheckLimit(s.ctx(), s.entity, 3)
		s.Require().NoError(err)
		s.True(status.Allowed)
		s.Equal(1, status.Remaining)
	})

	s.Run("exhausted period is denied", func() {
		_, err := s.service.RecordQuery(s.ctx(), s.entity)
		s.Require().NoError(err)

		status, err := s.service.CheckLimit(s.ctx(), s.entity, 3)
		s.Require().NoError(err)
		s.False(status.Allowed)
		s.Equal(3, status.Used)
		s.Equal(0, status.Remaining)
	})

	s.Run("unmetered plan is never denied", func() {
		status, err := s.service.CheckLimit(s.ctx(), s.entity, 0)
		s.Require().NoError(err)
		s.True(status.Allowed)
	})

	s.Run("counter resets with the calendar month", func() {
		nextMonth := requestcontext.WithTime(context.Background(), s.now.AddDate(0, 1, 0))
		status, err := s.service.CheckLimit(nextMonth, s.entity, 3)
		s.Require().NoError(err)
		s.True(status.Allowed)
		s.Equal(0, status.Used)
	})
}

func (s *QuotaServiceSuite) TestUsageIsPerEntity() {
	_, err := s.service.RecordQuery(s.ctx(), s.entity)
	s.Require().NoError(err)

	other := id.EntityID(8)
	status, err := s.service.CheckLimit(s.ctx(), other, 1)
	s.Require().NoError(err)
	s.True(status.Allowed)
	s.Equal(0, status.Used)
}

func TestIncrementUsageConcurrent(t *testing.T) {
	store := NewInMemoryStore()
	service := New(store)
	ctx := requestcontext.WithTime(context.Background(), time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	entityID := id.EntityID(1)

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := service.RecordQuery(ctx, entityID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	status, err := service.CheckLimit(ctx, entityID, workers)
	require.NoError(t, err)
	assert.Equal(t, workers, status.Used)
	assert.False(t, status.Allowed)
}
