package inquiry

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"burogate/internal/bureau"
	"burogate/internal/consent"
	"burogate/internal/entity"
	"burogate/internal/querylog"
	"burogate/internal/quota"
	"burogate/internal/scoring"
	id "burogate/pkg/domain"
	dErrors "burogate/pkg/domain-errors"
	"burogate/pkg/testutil"
)

// The suite wires real services over in-memory stores so the whole gating
// pipeline runs end to end: consent verification, quota checks, bureau
// fetches, scoring, and audit logging.
type InquiryServiceSuite struct {
	suite.Suite

	entities     *entity.InMemoryStore
	consentStore *consent.InMemoryStore
	quotaService *quota.Service
	auditService *querylog.Service
	bureauClient *bureau.StaticClient
	service      *Service

	titular    *entity.Entity
	consultant *entity.Entity
	now        time.Time
}

func TestInquiryServiceSuite(t *testing.T) {
	suite.Run(t, new(InquiryServiceSuite))
}

const defaultMonthlyLimit = 10

func (s *InquiryServiceSuite) SetupTest() {
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
		MaxMonthlyQueries: defaultMonthlyLimit,
	})

	s.consentStore = consent.NewInMemoryStore()
	s.quotaService = quota.New(quota.NewInMemoryStore(), quota.WithLogger(logger))
	s.auditService = querylog.New(querylog.NewInMemoryStore(),
		querylog.WithLogger(logger),
		querylog.WithUsageRecorder(s.consentStore))
	s.bureauClient = bureau.NewStaticClient()
	s.bureauClient.Summaries[s.titular.TaxID] = &bureau.Summary{MesesHistorialCrediticio: 72}
	s.bureauClient.Stats[s.titular.TaxID] = &bureau.PaymentStats{TotalPagos: 24, PagosATiempo: 22, PagosAtrasados: 2}

	scores := scoring.New(s.bureauClient, scoring.NewInMemoryStore(), scoring.WithLogger(logger))
	s.service = New(
		s.entities,
		consent.NewAuthorizer(s.consentStore, consent.WithAuthorizerLogger(logger)),
		s.quotaService,
		s.auditService,
		s.bureauClient,
		scores,
		WithLogger(logger),
	)
}

func (s *InquiryServiceSuite) consultantCtx() context.Context {
	ident := testutil.Consultant(s.consultant.ID, defaultMonthlyLimit)
	return testutil.AuthedContext(ident, s.now)
}

func (s *InquiryServiceSuite) titularCtx() context.Context {
	ident := testutil.Consultant(s.titular.ID, defaultMonthlyLimit)
	return testutil.AuthedContext(ident, s.now)
}

func (s *InquiryServiceSuite) grantSelfConsent(entityID id.EntityID) consent.EntityConsent {
	created, err := s.consentStore.CreateEntityConsent(context.Background(), consent.EntityConsent{
		EntityID: entityID,
		Start:    s.now.AddDate(0, -1, 0),
		Expiry:   s.now.AddDate(0, 6, 0),
	}, s.now)
	s.Require().NoError(err)
	return created
}

func (s *InquiryServiceSuite) grantQueryConsent() consent.QueryConsent {
	created, err := s.consentStore.CreateQueryConsent(context.Background(), consent.QueryConsent{
		TitularID:    s.titular.ID,
		ConsultantID: s.consultant.ID,
		Start:        s.now.AddDate(0, -1, 0),
		Expiry:       s.now.AddDate(0, 3, 0),
	})
	s.Require().NoError(err)
	return created
}

func (s *InquiryServiceSuite) authorizeThirdParty() consent.QueryConsent {
	s.grantSelfConsent(s.titular.ID)
	return s.grantQueryConsent()
}

func (s *InquiryServiceSuite) auditEntries() []querylog.QueryLog {
	entries, err := s.auditService.ListByConsultant(s.consultantCtx(), s.consultant.ID, 0)
	s.Require().NoError(err)
	return entries
}

// ==============================
// Authorization outcomes
// ==============================

func (s *InquiryServiceSuite) TestFullHistoryAuthorized() {
	grant := s.authorizeThirdParty()
	s.bureauClient.Obligations[s.titular.TaxID] = []bureau.Obligation{
		{TipoCredito: "TARJETA", Estado: bureau.ObligationStateCurrent},
	}

	report, err := s.service.FullHistory(s.consultantCtx(), string(s.titular.TaxID))
	s.Require().NoError(err)
	s.Equal(s.titular.ID, report.Titular.ID)
	s.Equal(s.titular.TaxID, report.Titular.TaxID)
	s.Require().NotNil(report.Stats)
	s.Equal(24, report.Stats.TotalPagos)
	s.Len(report.Obligations, 1)
	s.Equal(defaultMonthlyLimit-1, report.QueriesRemaining)

	entries := s.auditEntries()
	s.Require().Len(entries, 1)
	s.Equal(querylog.QueryTypeFullHistory, entries[0].QueryType)
	s.Equal(querylog.OutcomeSuccess, entries[0].Outcome)
	s.Equal(grant.ID, entries[0].ConsentID)

	used, err := s.consentStore.GetQueryConsent(context.Background(), grant.ID)
	s.Require().NoError(err)
	s.Equal(1, used.QueriesPerformed)

	status, err := s.quotaService.CheckLimit(s.consultantCtx(), s.consultant.ID, defaultMonthlyLimit)
	s.Require().NoError(err)
	s.Equal(1, status.Used)
}

func (s *InquiryServiceSuite) TestSelfQueryNeedsNoQueryConsent() {
	s.grantSelfConsent(s.titular.ID)

	report, err := s.service.Summary(s.titularCtx(), string(s.titular.TaxID))
	s.Require().NoError(err)
	s.Require().NotNil(report.Stats)

	entries, err := s.auditService.ListByConsultant(s.titularCtx(), s.titular.ID, 0)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(querylog.OutcomeSuccess, entries[0].Outcome)
	s.True(entries[0].ConsentID.IsZero(), "self-queries carry the synthetic consent id")
}

func (s *InquiryServiceSuite) TestDeniedWithoutQueryConsent() {
	s.grantSelfConsent(s.titular.ID)

	_, err := s.service.FullHistory(s.consultantCtx(), string(s.titular.TaxID))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	s.Contains(err.Error(), consent.ReasonNoConsentBetween)

	entries := s.auditEntries()
	s.Require().Len(entries, 1)
	s.Equal(querylog.OutcomeDeniedNoConsent, entries[0].Outcome)
	s.Equal(consent.ReasonNoConsentBetween, entries[0].Reason)

	status, err := s.quotaService.CheckLimit(s.consultantCtx(), s.consultant.ID, defaultMonthlyLimit)
	s.Require().NoError(err)
	s.Equal(0, status.Used, "denied attempts must not consume quota")
}

func (s *InquiryServiceSuite) TestDeniedWhenTitularNotSharing() {
	// A query consent exists, but the titular never granted self-consent.
	s.grantQueryConsent()

	_, err := s.service.Summary(s.consultantCtx(), string(s.titular.TaxID))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	s.Contains(err.Error(), consent.ReasonTitularNotSharing)

	entries := s.auditEntries()
	s.Require().Len(entries, 1)
	s.Equal(querylog.OutcomeDeniedNoConsent, entries[0].Outcome)
}

func (s *InquiryServiceSuite) TestDeniedWhenTitularDeactivated() {
	s.authorizeThirdParty()
	s.titular.Active = false
	s.entities.Seed(s.titular)

	_, err := s.service.Summary(s.consultantCtx(), string(s.titular.TaxID))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	entries := s.auditEntries()
	s.Require().Len(entries, 1)
	s.Equal(querylog.OutcomeDeniedNoConsent, entries[0].Outcome)
}

func (s *InquiryServiceSuite) TestUnknownTitularLeavesNoAuditEntry() {
	_, err := s.service.Summary(s.consultantCtx(), "ZZZ990101XX1")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Empty(s.auditEntries())
}

func (s *InquiryServiceSuite) TestMalformedTaxIDLeavesNoAuditEntry() {
	_, err := s.service.Summary(s.consultantCtx(), "not-an-rfc")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Empty(s.auditEntries())
}

// ==============================
// Quota enforcement
// ==============================

func (s *InquiryServiceSuite) TestQuotaExhaustionDeniesAndLogs() {
	s.authorizeThirdParty()
	ident := testutil.Consultant(s.consultant.ID, 1)
	ctx := testutil.AuthedContext(ident, s.now)

	_, err := s.service.Summary(ctx, string(s.titular.TaxID))
	s.Require().NoError(err)

	_, err = s.service.Summary(ctx, string(s.titular.TaxID))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeQuotaExceeded))
	s.Contains(err.Error(), "1 of 1 queries used")

	entries := s.auditEntries()
	s.Require().Len(entries, 2)
	s.Equal(querylog.OutcomeDeniedQuota, entries[0].Outcome)
	s.Equal(querylog.OutcomeSuccess, entries[1].Outcome)

	status, err := s.quotaService.CheckLimit(ctx, s.consultant.ID, 1)
	s.Require().NoError(err)
	s.Equal(1, status.Used, "a denied attempt must not increment the counter")
}

func (s *InquiryServiceSuite) TestRemainingCountsDown() {
	s.authorizeThirdParty()

	first, err := s.service.Summary(s.consultantCtx(), string(s.titular.TaxID))
	s.Require().NoError(err)
	s.Equal(defaultMonthlyLimit-1, first.QueriesRemaining)

	second, err := s.service.Summary(s.consultantCtx(), string(s.titular.TaxID))
	s.Require().NoError(err)
	s.Equal(defaultMonthlyLimit-2, second.QueriesRemaining)
}

func (s *InquiryServiceSuite) TestUnmeteredPlanReportsNoRemaining() {
	s.authorizeThirdParty()
	ident := testutil.Consultant(s.consultant.ID, 0)
	ctx := testutil.AuthedContext(ident, s.now)

	report, err := s.service.Summary(ctx, string(s.titular.TaxID))
	s.Require().NoError(err)
	s.Equal(-1, report.QueriesRemaining)
}

// ==============================
// Bureau failure handling
// ==============================

func (s *InquiryServiceSuite) TestUpstreamOutageIsLoggedAsSourceError() {
	s.authorizeThirdParty()
	s.bureauClient.Err = dErrors.New(dErrors.CodeUnavailable, "bureau unreachable")

	_, err := s.service.FullHistory(s.consultantCtx(), string(s.titular.TaxID))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	entries := s.auditEntries()
	s.Require().Len(entries, 1)
	s.Equal(querylog.OutcomeUpstreamError, entries[0].Outcome)

	status, err := s.quotaService.CheckLimit(s.consultantCtx(), s.consultant.ID, defaultMonthlyLimit)
	s.Require().NoError(err)
	s.Equal(0, status.Used, "a failed query must not consume quota")
}

func (s *InquiryServiceSuite) TestSummaryUnknownToBureauIsNotAnError() {
	s.authorizeThirdParty()
	delete(s.bureauClient.Stats, s.titular.TaxID)

	report, err := s.service.Summary(s.consultantCtx(), string(s.titular.TaxID))
	s.Require().NoError(err)
	s.Nil(report.Stats)

	entries := s.auditEntries()
	s.Require().Len(entries, 1)
	s.Equal(querylog.OutcomeSuccess, entries[0].Outcome)
}

func (s *InquiryServiceSuite) TestFullHistoryCapsPayments() {
	s.authorizeThirdParty()
	payments := make([]bureau.Payment, 60)
	for i := range payments {
		payments[i] = bureau.Payment{ID: int64(i + 1), Monto: 100}
	}
	s.bureauClient.PaymentHistory[s.titular.TaxID] = payments

	report, err := s.service.FullHistory(s.consultantCtx(), string(s.titular.TaxID))
	s.Require().NoError(err)
	s.Len(report.Payments, 50)

	full, err := s.service.Payments(s.consultantCtx(), string(s.titular.TaxID))
	s.Require().NoError(err)
	s.Len(full.Payments, 60, "the dedicated payments endpoint is uncapped")
	s.Equal(60, full.Total)
}

// ==============================
// Scoring endpoints
// ==============================

func (s *InquiryServiceSuite) TestCalculateScorePersistsAndMeters() {
	s.authorizeThirdParty()

	report, err := s.service.CalculateScore(s.consultantCtx(), string(s.titular.TaxID))
	s.Require().NoError(err)
	s.Equal(900, report.Score.TotalScore)
	s.Equal(scoring.TierExcellent, report.Score.Tier.Level)
	s.Equal(defaultMonthlyLimit-1, report.QueriesRemaining)

	entries := s.auditEntries()
	s.Require().Len(entries, 1)
	s.Equal(querylog.QueryTypeScoring, entries[0].QueryType)

	latest, err := s.service.LatestScore(s.consultantCtx(), string(s.titular.TaxID))
	s.Require().NoError(err)
	s.Equal(900, latest.Snapshot.Score)
}

func (s *InquiryServiceSuite) TestSnapshotReadsAreUnmetered() {
	s.authorizeThirdParty()

	_, err := s.service.CalculateScore(s.consultantCtx(), string(s.titular.TaxID))
	s.Require().NoError(err)

	_, err = s.service.ScoreHistory(s.consultantCtx(), string(s.titular.TaxID), 0)
	s.Require().NoError(err)
	_, err = s.service.LatestScore(s.consultantCtx(), string(s.titular.TaxID))
	s.Require().NoError(err)
	_, err = s.service.CompareScores(s.consultantCtx(), string(s.titular.TaxID))
	s.Require().NoError(err)

	status, err := s.quotaService.CheckLimit(s.consultantCtx(), s.consultant.ID, defaultMonthlyLimit)
	s.Require().NoError(err)
	s.Equal(1, status.Used, "only the calculation itself is metered")

	entries := s.auditEntries()
	s.Len(entries, 1, "permitted snapshot reads stay out of the audit trail")
}

func (s *InquiryServiceSuite) TestSnapshotReadDenialIsLogged() {
	s.grantSelfConsent(s.titular.ID)

	_, err := s.service.ScoreHistory(s.consultantCtx(), string(s.titular.TaxID), 0)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	entries := s.auditEntries()
	s.Require().Len(entries, 1)
	s.Equal(querylog.OutcomeDeniedNoConsent, entries[0].Outcome)
}

func (s *InquiryServiceSuite) TestCompareScoresAcrossComputations() {
	s.authorizeThirdParty()

	_, err := s.service.CalculateScore(s.consultantCtx(), string(s.titular.TaxID))
	s.Require().NoError(err)

	s.bureauClient.Summaries[s.titular.TaxID].MaxDiasAtraso = 90
	_, err = s.service.CalculateScore(s.consultantCtx(), string(s.titular.TaxID))
	s.Require().NoError(err)

	comparison, err := s.service.CompareScores(s.consultantCtx(), string(s.titular.TaxID))
	s.Require().NoError(err)
	s.Equal(750, comparison.CurrentScore)
	s.Require().NotNil(comparison.PreviousScore)
	s.Equal(900, *comparison.PreviousScore)
	s.Require().NotNil(comparison.Difference)
	s.Equal(-150, *comparison.Difference)
	s.Require().NotNil(comparison.Improved)
	s.False(*comparison.Improved)
}

func (s *InquiryServiceSuite) TestLatestScoreWithoutComputations() {
	s.authorizeThirdParty()

	_, err := s.service.LatestScore(s.consultantCtx(), string(s.titular.TaxID))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
