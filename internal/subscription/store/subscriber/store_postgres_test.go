//go:build integration

package subscriber

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"bulletin/internal/subscription/models"
	"bulletin/pkg/platform/sentinel"
	"bulletin/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	ctx       context.Context
	container *containers.PostgresContainer
	store     *PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.container = containers.NewPostgresContainer(s.T())
	s.store = NewPostgres(s.container.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.container.TruncateTables(s.ctx, "subscriptions"))
}

func (s *PostgresStoreSuite) newSubscriber(name, email string, at time.Time) *models.Subscriber {
	parsedName, err := models.ParseSubscriberName(name)
	s.Require().NoError(err)
	parsedEmail, err := models.ParseSubscriberEmail(email)
	s.Require().NoError(err)
	return models.NewSubscriber(uuid.New(), parsedName, parsedEmail, at)
}

func (s *PostgresStoreSuite) TestCreateAndFindByID() {
	sub := s.newSubscriber("Luka", "luka@example.com", time.Now().UTC())
	s.Require().NoError(s.store.Create(s.ctx, sub))

	record, err := s.store.FindByID(s.ctx, sub.ID)
	s.Require().NoError(err)
	s.Equal(sub.ID, record.ID)
	s.Equal("Luka", record.Name)
	s.Equal("luka@example.com", record.Email)
	s.Equal(models.SubscriberStatusPending, record.Status)
}

func (s *PostgresStoreSuite) TestCreateDuplicateEmailConflicts() {
	first := s.newSubscriber("Luka", "luka@example.com", time.Now().UTC())
	s.Require().NoError(s.store.Create(s.ctx, first))

	second := s.newSubscriber("Other Luka", "luka@example.com", time.Now().UTC())
	s.ErrorIs(s.store.Create(s.ctx, second), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestCreateDuplicateEmailCaseInsensitive() {
	first := s.newSubscriber("Luka", "luka@example.com", time.Now().UTC())
	s.Require().NoError(s.store.Create(s.ctx, first))

	second := s.newSubscriber("Luka", "LUKA@example.com", time.Now().UTC())
	s.ErrorIs(s.store.Create(s.ctx, second), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestFindByIDUnknown() {
	_, err := s.store.FindByID(s.ctx, uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestMarkConfirmed() {
	sub := s.newSubscriber("Luka", "luka@example.com", time.Now().UTC())
	s.Require().NoError(s.store.Create(s.ctx, sub))

	s.Require().NoError(s.store.MarkConfirmed(s.ctx, sub.ID))
	s.Require().NoError(s.store.MarkConfirmed(s.ctx, sub.ID))

	record, err := s.store.FindByID(s.ctx, sub.ID)
	s.Require().NoError(err)
	s.Equal(models.SubscriberStatusConfirmed, record.Status)
}

func (s *PostgresStoreSuite) TestMarkConfirmedUnknown() {
	s.ErrorIs(s.store.MarkConfirmed(s.ctx, uuid.New()), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListConfirmedOrderedBySubscribedAt() {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	later := s.newSubscriber("Later", "later@example.com", base.Add(time.Hour))
	s.Require().NoError(s.store.Create(s.ctx, later))
	s.Require().NoError(s.store.MarkConfirmed(s.ctx, later.ID))

	earlier := s.newSubscriber("Earlier", "earlier@example.com", base)
	s.Require().NoError(s.store.Create(s.ctx, earlier))
	s.Require().NoError(s.store.MarkConfirmed(s.ctx, earlier.ID))

	pending := s.newSubscriber("Pending", "pending@example.com", base.Add(2*time.Hour))
	s.Require().NoError(s.store.Create(s.ctx, pending))

	records, err := s.store.ListConfirmed(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(earlier.ID, records[0].ID)
	s.Equal(later.ID, records[1].ID)
}
