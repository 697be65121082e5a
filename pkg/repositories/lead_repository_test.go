package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycrm/outreach-engine/pkg/apperrors"
	"github.com/relaycrm/outreach-engine/pkg/models"
)

func newLeadMock(t *testing.T) (pgxmock.PgxPoolIface, LeadRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewLeadRepository(mock)
}

func leadRow(id uuid.UUID, stage models.Stage) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{
		"id", "external_key", "display_name", "role_title", "organization",
		"geo_label", "tenure_months", "campaign_tag", "stage", "data_quality",
		"owner_id", "created_at", "updated_at",
	}).AddRow(
		id, "linkedin:jane", "Jane Doe", "CTO", "Acme",
		"", nil, "", stage, models.QualityComplete,
		uuid.Nil, now, now,
	)
}

func TestLeadRepository_AdvanceStage_Advances(t *testing.T) {
	mock, repo := newLeadMock(t)
	id := uuid.New()

	mock.ExpectQuery(`UPDATE leads SET stage = \$2`).
		WithArgs(id, models.StageInvited, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"stage"}).AddRow(models.StageInvited))

	after, changed, err := repo.AdvanceStage(context.Background(), id, models.StageInvited)
	require.NoError(t, err)
	assert.Equal(t, models.StageInvited, after)
	assert.True(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadRepository_AdvanceStage_AlreadyAhead(t *testing.T) {
	mock, repo := newLeadMock(t)
	id := uuid.New()

	// The conditional UPDATE matches no row, so the current stage is read
	// back to report the unchanged state.
	mock.ExpectQuery(`UPDATE leads SET stage = \$2`).
		WithArgs(id, models.StageConnected, pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT stage FROM leads WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"stage"}).AddRow(models.StageMeeting))

	after, changed, err := repo.AdvanceStage(context.Background(), id, models.StageConnected)
	require.NoError(t, err)
	assert.Equal(t, models.StageMeeting, after)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadRepository_AdvanceStage_NotFound(t *testing.T) {
	mock, repo := newLeadMock(t)
	id := uuid.New()

	mock.ExpectQuery(`UPDATE leads SET stage = \$2`).
		WithArgs(id, models.StageInvited, pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT stage FROM leads WHERE id = \$1`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, _, err := repo.AdvanceStage(context.Background(), id, models.StageInvited)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadRepository_AdvanceStage_StoreFailure(t *testing.T) {
	mock, repo := newLeadMock(t)
	id := uuid.New()

	mock.ExpectQuery(`UPDATE leads SET stage = \$2`).
		WithArgs(id, models.StageInvited, pgxmock.AnyArg()).
		WillReturnError(errors.New("conn refused"))

	_, _, err := repo.AdvanceStage(context.Background(), id, models.StageInvited)
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
}

func TestLeadRepository_Upsert_ReportsInsert(t *testing.T) {
	mock, repo := newLeadMock(t)

	rows := pgxmock.NewRows([]string{
		"id", "external_key", "display_name", "role_title", "organization",
		"geo_label", "tenure_months", "campaign_tag", "stage", "data_quality",
		"owner_id", "created_at", "updated_at", "?column?",
	}).AddRow(
		uuid.New(), "linkedin:jane", "Jane Doe", "CTO", "Acme",
		"", nil, "", models.StageConnected, models.QualityComplete,
		uuid.Nil, time.Now(), time.Now(), true,
	)

	mock.ExpectQuery(`INSERT INTO leads .* ON CONFLICT \(external_key\) DO UPDATE`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(rows)

	lead, inserted, err := repo.Upsert(context.Background(),
		models.LeadRecord{ExternalKey: "linkedin:jane", DisplayName: "Jane Doe", RoleTitle: "CTO", Organization: "Acme"},
		models.QualityComplete, uuid.Nil)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, models.StageConnected, lead.Stage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadRepository_Upsert_ReportsUpdate(t *testing.T) {
	mock, repo := newLeadMock(t)

	rows := pgxmock.NewRows([]string{
		"id", "external_key", "display_name", "role_title", "organization",
		"geo_label", "tenure_months", "campaign_tag", "stage", "data_quality",
		"owner_id", "created_at", "updated_at", "?column?",
	}).AddRow(
		uuid.New(), "linkedin:jane", "Jane Doe", "CTO", "Acme",
		"", nil, "", models.StageReplied, models.QualityComplete,
		uuid.Nil, time.Now(), time.Now(), false,
	)

	mock.ExpectQuery(`INSERT INTO leads .* ON CONFLICT \(external_key\) DO UPDATE`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(rows)

	lead, inserted, err := repo.Upsert(context.Background(),
		models.LeadRecord{ExternalKey: "linkedin:jane", DisplayName: "Jane Doe"},
		models.QualityNeedsEnrichment, uuid.Nil)
	require.NoError(t, err)
	assert.False(t, inserted)
	// The merge never touches the stored stage.
	assert.Equal(t, models.StageReplied, lead.Stage)
}

func TestLeadRepository_Get(t *testing.T) {
	mock, repo := newLeadMock(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM leads WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(leadRow(id, models.StageConnected))

	lead, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, lead.ID)
	assert.Equal(t, "Jane Doe", lead.DisplayName)
}

func TestLeadRepository_Get_NotFound(t *testing.T) {
	mock, repo := newLeadMock(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM leads WHERE id = \$1`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Get(context.Background(), id)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLeadRepository_SetStage_NotFound(t *testing.T) {
	mock, repo := newLeadMock(t)
	id := uuid.New()

	mock.ExpectQuery(`UPDATE leads SET stage = \$2`).
		WithArgs(id, models.StageNew).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.SetStage(context.Background(), id, models.StageNew)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
