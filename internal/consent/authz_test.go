package consent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	id "burogate/pkg/domain"
	"burogate/pkg/requestcontext"
)

type AuthorizerSuite struct {
	suite.Suite

	now        time.Time
	store      *InMemoryStore
	authorizer *Authorizer
	titular    id.EntityID
	consultant id.EntityID
}

func TestAuthorizerSuite(t *testing.T) {
	suite.Run(t, new(AuthorizerSuite))
}

func (s *AuthorizerSuite) SetupTest() {
	s.now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s.store = NewInMemoryStore()
	s.authorizer = NewAuthorizer(s.store)
	s.titular = id.EntityID(1)
	s.consultant = id.EntityID(2)
}

func (s *AuthorizerSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *AuthorizerSuite) grantSelfConsent(entityID id.EntityID) EntityConsent {
	created, err := s.store.CreateEntityConsent(s.ctx(), EntityConsent{
		EntityID: entityID,
		Start:    s.now.AddDate(0, -1, 0),
		Expiry:   s.now.AddDate(1, 0, 0),
	}, s.now)
	require.NoError(s.T(), err)
	return created
}

func (s *AuthorizerSuite) grantQueryConsent(start, expiry time.Time) QueryConsent {
	created, err := s.store.CreateQueryConsent(s.ctx(), QueryConsent{
		TitularID:    s.titular,
		ConsultantID: s.consultant,
		Start:        start,
		Expiry:       expiry,
	})
	require.NoError(s.T(), err)
	return created
}

func (s *AuthorizerSuite) TestSelfQuery() {
	s.Run("denied without self consent", func() {
		perm, err := s.authorizer.VerifyQueryPermission(s.ctx(), s.titular, s.titular)
		s.Require().NoError(err)
		s.False(perm.Permitted)
		s.True(perm.SelfQuery)
		s.Equal(ReasonNoSelfConsent, perm.Reason)
	})

	s.Run("permitted with active self consent", func() {
		s.grantSelfConsent(s.titular)

		perm, err := s.authorizer.VerifyQueryPermission(s.ctx(), s.titular, s.titular)
		s.Require().NoError(err)
		s.True(perm.Permitted)
		s.True(perm.SelfQuery)
		s.True(perm.ConsentID.IsZero(), "self queries carry the synthetic zero consent id")
	})

	s.Run("query consents never authorize self queries", func() {
		other := NewInMemoryStore()
		_, err := other.CreateQueryConsent(s.ctx(), QueryConsent{
			TitularID:    s.consultant,
			ConsultantID: s.consultant,
			Start:        s.now.AddDate(0, -1, 0),
			Expiry:       s.now.AddDate(1, 0, 0),
		})
		s.Require().NoError(err)

		perm, err := NewAuthorizer(other).VerifyQueryPermission(s.ctx(), s.consultant, s.consultant)
		s.Require().NoError(err)
		s.False(perm.Permitted)
		s.Equal(ReasonNoSelfConsent, perm.Reason)
	})
}

func (s *AuthorizerSuite) TestThirdPartyQuery() {
	s.Run("denied when titular is not sharing", func() {
		perm, err := s.authorizer.VerifyQueryPermission(s.ctx(), s.consultant, s.titular)
		s.Require().NoError(err)
		s.False(perm.Permitted)
		s.False(perm.SelfQuery)
		s.Equal(ReasonTitularNotSharing, perm.Reason)
	})

	s.Run("denied without a grant between the parties", func() {
		s.grantSelfConsent(s.titular)

		perm, err := s.authorizer.VerifyQueryPermission(s.ctx(), s.consultant, s.titular)
		s.Require().NoError(err)
		s.False(perm.Permitted)
		s.Equal(ReasonNoConsentBetween, perm.Reason)
	})

	s.Run("permitted with attribution to the grant", func() {
		grant := s.grantQueryConsent(s.now.AddDate(0, -1, 0), s.now.AddDate(0, 6, 0))

		perm, err := s.authorizer.VerifyQueryPermission(s.ctx(), s.consultant, s.titular)
		s.Require().NoError(err)
		s.True(perm.Permitted)
		s.False(perm.SelfQuery)
		s.Equal(grant.ID, perm.ConsentID)
	})
}

func (s *AuthorizerSuite) TestGrantBoundaries() {
	s.grantSelfConsent(s.titular)

	s.Run("expired grant does not authorize", func() {
		s.grantQueryConsent(s.now.AddDate(0, -2, 0), s.now.Add(-time.Second))

		perm, err := s.authorizer.VerifyQueryPermission(s.ctx(), s.consultant, s.titular)
		s.Require().NoError(err)
		s.False(perm.Permitted)
		s.Equal(ReasonNoConsentBetween, perm.Reason)
	})

	s.Run("grant expiring this instant still authorizes", func() {
		edge := s.grantQueryConsent(s.now.AddDate(0, -1, 0), s.now)

		perm, err := s.authorizer.VerifyQueryPermission(s.ctx(), s.consultant, s.titular)
		s.Require().NoError(err)
		s.True(perm.Permitted)
		s.Equal(edge.ID, perm.ConsentID)
	})

	s.Run("revoked grant does not authorize", func() {
		active, err := s.store.FindActiveQueryConsent(s.ctx(), s.titular, s.consultant, s.now)
		s.Require().NoError(err)
		s.Require().NotNil(active)
		s.Require().NoError(s.store.RevokeQueryConsent(s.ctx(), active.ID, s.now))

		perm, err := s.authorizer.VerifyQueryPermission(s.ctx(), s.consultant, s.titular)
		s.Require().NoError(err)
		s.False(perm.Permitted)
	})

	s.Run("expired titular self consent blocks sharing", func() {
		s.grantQueryConsent(s.now.AddDate(0, -1, 0), s.now.AddDate(0, 6, 0))

		later := requestcontext.WithTime(context.Background(), s.now.AddDate(2, 0, 0))
		perm, err := s.authorizer.VerifyQueryPermission(later, s.consultant, s.titular)
		s.Require().NoError(err)
		s.False(perm.Permitted)
		s.Equal(ReasonTitularNotSharing, perm.Reason)
	})
}
