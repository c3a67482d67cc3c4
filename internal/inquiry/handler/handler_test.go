package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"burogate/internal/bureau"
	"burogate/internal/consent"
	"burogate/internal/entity"
	"burogate/internal/inquiry"
	"burogate/internal/querylog"
	"burogate/internal/quota"
	"burogate/internal/scoring"
	"burogate/pkg/testutil"
)

type InquiryHandlerSuite struct {
	suite.Suite

	router       chi.Router
	entities     *entity.InMemoryStore
	consentStore *consent.InMemoryStore
	bureauClient *bureau.StaticClient

	titular    *entity.Entity
	consultant *entity.Entity
	now        time.Time
}

func TestInquiryHandlerSuite(t *testing.T) {
	suite.Run(t, new(InquiryHandlerSuite))
}

func (s *InquiryHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.now = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

	s.entities = entity.NewInMemoryStore()
	s.titular = s.entities.Seed(&entity.Entity{
		LegalName: "Comercializadora Norte SA",
		TaxID:     "CNO010101AB1",
		Kind:      entity.KindOrganization,
		Active:    true,
	})
	s.consultant = s.entities.Seed(&entity.Entity{
		LegalName:         "Financiera Prueba SA",
		TaxID:             "FPR120304AB1",
		Kind:              entity.KindOrganization,
		Active:            true,
		MaxMonthlyQueries: 10,
	})

	s.consentStore = consent.NewInMemoryStore()
	s.bureauClient = bureau.NewStaticClient()
	s.bureauClient.Summaries[s.titular.TaxID] = &bureau.Summary{MesesHistorialCrediticio: 72}
	s.bureauClient.Stats[s.titular.TaxID] = &bureau.PaymentStats{TotalPagos: 24, PagosATiempo: 22, PagosAtrasados: 2}

	service := inquiry.New(
		s.entities,
		consent.NewAuthorizer(s.consentStore, consent.WithAuthorizerLogger(logger)),
		quota.New(quota.NewInMemoryStore(), quota.WithLogger(logger)),
		querylog.New(querylog.NewInMemoryStore(),
			querylog.WithLogger(logger),
			querylog.WithUsageRecorder(s.consentStore)),
		s.bureauClient,
		scoring.New(s.bureauClient, scoring.NewInMemoryStore(), scoring.WithLogger(logger)),
		inquiry.WithLogger(logger),
	)

	s.router = chi.NewRouter()
	New(service, logger).Register(s.router)
}

func (s *InquiryHandlerSuite) authorize() {
	_, err := s.consentStore.CreateEntityConsent(context.Background(), consent.EntityConsent{
		EntityID: s.titular.ID,
		Start:    s.now.AddDate(0, -1, 0),
		Expiry:   s.now.AddDate(0, 6, 0),
	}, s.now)
	s.Require().NoError(err)
	_, err = s.consentStore.CreateQueryConsent(context.Background(), consent.QueryConsent{
		TitularID:    s.titular.ID,
		ConsultantID: s.consultant.ID,
		Start:        s.now.AddDate(0, -1, 0),
		Expiry:       s.now.AddDate(0, 3, 0),
	})
	s.Require().NoError(err)
}

func (s *InquiryHandlerSuite) get(path string) *http.Request {
	req := testutil.NewRequest(s.T(), http.MethodGet, path)
	ctx := testutil.AuthedContext(testutil.Consultant(s.consultant.ID, 10), s.now)
	return req.WithContext(ctx)
}

func (s *InquiryHandlerSuite) post(path string) *http.Request {
	req := testutil.NewRequest(s.T(), http.MethodPost, path)
	ctx := testutil.AuthedContext(testutil.Consultant(s.consultant.ID, 10), s.now)
	return req.WithContext(ctx)
}

func (s *InquiryHandlerSuite) TestFullHistory() {
	s.authorize()

	rr := testutil.DoRequest(s.router, s.get("/credit-history/CNO010101AB1/full"))
	s.Require().Equal(http.StatusOK, rr.Code)

	report := testutil.DecodeJSON[inquiry.FullHistory](s.T(), rr)
	s.Equal(s.titular.TaxID, report.Titular.TaxID)
	s.Require().NotNil(report.Stats)
	s.Equal(24, report.Stats.TotalPagos)
	s.Equal(9, report.QueriesRemaining)
}

func (s *InquiryHandlerSuite) TestSummary() {
	s.authorize()

	rr := testutil.DoRequest(s.router, s.get("/credit-history/CNO010101AB1"))
	s.Require().Equal(http.StatusOK, rr.Code)

	report := testutil.DecodeJSON[inquiry.SummaryReport](s.T(), rr)
	s.Require().NotNil(report.Stats)
}

func (s *InquiryHandlerSuite) TestDeniedWithoutConsent() {
	rr := testutil.DoRequest(s.router, s.get("/credit-history/CNO010101AB1"))
	s.Require().Equal(http.StatusForbidden, rr.Code)

	body := testutil.DecodeJSON[map[string]string](s.T(), rr)
	s.Equal("forbidden", body["error"])
	s.Equal(consent.ReasonTitularNotSharing, body["error_description"])
}

func (s *InquiryHandlerSuite) TestUnknownTitular() {
	rr := testutil.DoRequest(s.router, s.get("/credit-history/ZZZ990101XX1"))
	s.Require().Equal(http.StatusNotFound, rr.Code)
}

func (s *InquiryHandlerSuite) TestMalformedTaxID() {
	rr := testutil.DoRequest(s.router, s.get("/credit-history/abc"))
	s.Require().Equal(http.StatusBadRequest, rr.Code)
}

func (s *InquiryHandlerSuite) TestQuotaExceeded() {
	s.authorize()

	req := testutil.NewRequest(s.T(), http.MethodGet, "/credit-history/CNO010101AB1")
	ctx := testutil.AuthedContext(testutil.Consultant(s.consultant.ID, 1), s.now)

	rr := testutil.DoRequest(s.router, req.WithContext(ctx))
	s.Require().Equal(http.StatusOK, rr.Code)

	req = testutil.NewRequest(s.T(), http.MethodGet, "/credit-history/CNO010101AB1")
	rr = testutil.DoRequest(s.router, req.WithContext(ctx))
	s.Require().Equal(http.StatusTooManyRequests, rr.Code)

	body := testutil.DecodeJSON[map[string]string](s.T(), rr)
	s.Contains(body["error_description"], "1 of 1 queries used")
}

func (s *InquiryHandlerSuite) TestCalculateScore() {
	s.authorize()

	rr := testutil.DoRequest(s.router, s.post("/scoring/calculate/CNO010101AB1"))
	s.Require().Equal(http.StatusOK, rr.Code)

	report := testutil.DecodeJSON[inquiry.ScoreReport](s.T(), rr)
	s.Equal(900, report.Score.TotalScore)
	s.Equal(scoring.TierExcellent, report.Score.Tier.Level)
}

func (s *InquiryHandlerSuite) TestScoreHistoryAndLatest() {
	s.authorize()

	rr := testutil.DoRequest(s.router, s.post("/scoring/calculate/CNO010101AB1"))
	s.Require().Equal(http.StatusOK, rr.Code)

	rr = testutil.DoRequest(s.router, s.get("/scoring/history/CNO010101AB1?limit=5"))
	s.Require().Equal(http.StatusOK, rr.Code)
	history := testutil.DecodeJSON[inquiry.ScoreHistory](s.T(), rr)
	s.Equal(1, history.Total)

	rr = testutil.DoRequest(s.router, s.get("/scoring/latest/CNO010101AB1"))
	s.Require().Equal(http.StatusOK, rr.Code)
	latest := testutil.DecodeJSON[inquiry.LatestScore](s.T(), rr)
	s.Equal(900, latest.Snapshot.Score)
}

func (s *InquiryHandlerSuite) TestScoreHistoryRejectsBadLimit() {
	s.authorize()

	rr := testutil.DoRequest(s.router, s.get("/scoring/history/CNO010101AB1?limit=abc"))
	s.Require().Equal(http.StatusBadRequest, rr.Code)
}

func (s *InquiryHandlerSuite) TestLatestScoreNotFound() {
	s.authorize()

	rr := testutil.DoRequest(s.router, s.get("/scoring/latest/CNO010101AB1"))
	s.Require().Equal(http.StatusNotFound, rr.Code)
}
