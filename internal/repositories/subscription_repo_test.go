package repositories

import (
	"context"
	"regexp"
	"testing"
	"time"

	"licensor/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

var subscriptionRowColumns = []string{"id", "owner_ref", "external_ref", "status", "plan_name", "amount", "currency", "current_period_end", "trial_end", "cancel_at_period_end", "last_event_at", "created_at", "updated_at"}

type SubscriptionRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    SubscriptionRepository
	subID   uuid.UUID
	context context.Context
}

func (suite *SubscriptionRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewSubscriptionRepo(mock)
	suite.subID = uuid.New()
	suite.context = context.Background()
}

func (suite *SubscriptionRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestSubscriptionRepoTestSuite(t *testing.T) {
	suite.Run(t, new(SubscriptionRepoTestSuite))
}

func (suite *SubscriptionRepoTestSuite) TestFindCurrentByOwner_PicksMostRecentlyUpdated() {
	now := time.Now()
	periodEnd := now.Add(30 * 24 * time.Hour)

	suite.mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY updated_at DESC, created_at DESC`)).
		WithArgs("owner-1").
		WillReturnRows(pgxmock.NewRows(subscriptionRowColumns).
			AddRow(suite.subID, "owner-1", "sub_123", models.SubscriptionPastDue, "Pro", 9.99, "usd", &periodEnd, (*time.Time)(nil), false, &now, now, now))

	sub, err := suite.repo.FindCurrentByOwner(suite.context, "owner-1")
	assert.NoError(suite.T(), err)
	assert.NotNil(suite.T(), sub)
	assert.Equal(suite.T(), models.SubscriptionPastDue, sub.Status)
	assert.Equal(suite.T(), &periodEnd, sub.CurrentPeriodEnd)
}

func (suite *SubscriptionRepoTestSuite) TestFindCurrentByOwner_None() {
	suite.mock.ExpectQuery(regexp.QuoteMeta(`WHERE owner_ref = $1`)).
		WithArgs("owner-2").
		WillReturnError(pgx.ErrNoRows)

	sub, err := suite.repo.FindCurrentByOwner(suite.context, "owner-2")
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), sub)
}

func (suite *SubscriptionRepoTestSuite) TestApplyEvent_Applied() {
	occurred := time.Now()
	event := &models.SubscriptionEvent{
		OwnerRef:    "owner-1",
		ExternalRef: "sub_123",
		Status:      models.SubscriptionActive,
		OccurredAt:  occurred,
	}

	suite.mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (external_ref) DO UPDATE`)).
		WithArgs(suite.subID, "owner-1", "sub_123", models.SubscriptionActive, "", 0.0, "", (*time.Time)(nil), (*time.Time)(nil), false, occurred).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	applied, err := suite.repo.ApplyEvent(suite.context, suite.subID, event)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), applied)
}

func (suite *SubscriptionRepoTestSuite) TestApplyEvent_StaleEventIgnored() {
	event := &models.SubscriptionEvent{
		OwnerRef:    "owner-1",
		ExternalRef: "sub_123",
		Status:      models.SubscriptionCanceled,
		OccurredAt:  time.Now().Add(-time.Hour),
	}

	suite.mock.ExpectExec(regexp.QuoteMeta(`OR subscriptions.last_event_at < EXCLUDED.last_event_at`)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	applied, err := suite.repo.ApplyEvent(suite.context, suite.subID, event)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), applied)
}

func (suite *SubscriptionRepoTestSuite) TestApplyEvent_SameSecondTieApplies() {
	occurred := time.Unix(1767225600, 0)
	event := &models.SubscriptionEvent{
		OwnerRef:    "owner-1",
		ExternalRef: "sub_123",
		Status:      models.SubscriptionActive,
		OccurredAt:  occurred,
	}

	suite.mock.ExpectExec(regexp.QuoteMeta(`OR (subscriptions.last_event_at = EXCLUDED.last_event_at
				AND NOT (EXCLUDED.status = 'incomplete' AND subscriptions.status <> 'incomplete'))`)).
		WithArgs(suite.subID, "owner-1", "sub_123", models.SubscriptionActive, "", 0.0, "", (*time.Time)(nil), (*time.Time)(nil), false, occurred).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	applied, err := suite.repo.ApplyEvent(suite.context, suite.subID, event)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), applied)
}

func (suite *SubscriptionRepoTestSuite) TestUpdate_StampsLastEvent() {
	sub := &models.Subscription{ID: suite.subID, Status: models.SubscriptionActive, PlanName: "Pro", Amount: 19, Currency: "usd"}

	suite.mock.ExpectExec(regexp.QuoteMeta(`last_event_at = NOW(), updated_at = NOW()`)).
		WithArgs(suite.subID, models.SubscriptionActive, "Pro", 19.0, "usd", (*time.Time)(nil), (*time.Time)(nil), false).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(suite.T(), suite.repo.Update(suite.context, sub))
}

func (suite *SubscriptionRepoTestSuite) TestUpdate_NotFound() {
	sub := &models.Subscription{ID: suite.subID, Status: models.SubscriptionActive}

	suite.mock.ExpectExec(regexp.QuoteMeta(`UPDATE subscriptions`)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.ErrorIs(suite.T(), suite.repo.Update(suite.context, sub), ErrNotFound)
}

func (suite *SubscriptionRepoTestSuite) TestGetByID_NotFound() {
	suite.mock.ExpectQuery(regexp.QuoteMeta(`FROM subscriptions WHERE id = $1`)).
		WithArgs(suite.subID).
		WillReturnError(pgx.ErrNoRows)

	_, err := suite.repo.GetByID(suite.context, suite.subID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}
