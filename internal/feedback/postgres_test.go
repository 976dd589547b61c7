package feedback

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarang-screening-server/internal/database"
	"github.com/tarang-screening-server/internal/database/dbtest"
	"github.com/tarang-screening-server/internal/domain"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing()

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store, mock
}

func TestNewPostgresStore_NilDB(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}

func TestPostgresStore_Save_Upsert(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (session_id) DO UPDATE")).
		WithArgs("s-1", "clinic-a", "Moderate Risk", "", "agree", "dr.rao", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), created))

	review := newReview("s-1", "clinic-a", domain.VERDICT_AGREE)
	require.NoError(t, store.Save(context.Background(), review))

	assert.Equal(t, int64(7), review.ID)
	assert.Equal(t, created, review.CreatedAt)
	assert.False(t, review.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Save_Error(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO clinician_reviews").WillReturnError(errors.New("connection reset"))

	err := store.Save(context.Background(), newReview("s-1", "clinic-a", domain.VERDICT_AGREE))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save review")
}

func TestPostgresStore_Get_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM clinician_reviews WHERE session_id = \\$1").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	got, err := store.Get(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "session_id", "tenant_id", "engine_result", "clinician_result",
		"verdict", "reviewer", "notes", "created_at", "updated_at"}).
		AddRow(int64(3), "s-1", "clinic-a", "High Risk", "Moderate Risk", "disagree", "dr.rao", "", now, now)
	mock.ExpectQuery("SELECT (.+) FROM clinician_reviews").WithArgs("s-1").WillReturnRows(rows)

	got, err := store.Get(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, domain.HIGH_RISK, got.EngineResult)
	assert.Equal(t, domain.MODERATE_RISK, got.ClinicianResult)
	assert.Equal(t, domain.VERDICT_DISAGREE, got.Verdict)
}

func TestPostgresStore_AgreementRate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("FROM clinician_reviews WHERE").
		WithArgs("clinic-a").
		WillReturnRows(sqlmock.NewRows([]string{"agree", "disagree", "unsure"}).AddRow(int64(4), int64(1), int64(2)))

	stats, err := store.AgreementRate(context.Background(), "clinic-a")
	require.NoError(t, err)
	assert.Equal(t, int64(7), stats.Total)
	assert.InDelta(t, 0.8, stats.Rate, 1e-9)
}

func TestPostgresStore_Count_Error(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("timeout"))

	_, err := store.Count(context.Background(), "")
	assert.Error(t, err)
}

func TestPostgresStore_Integration(t *testing.T) {
	config := dbtest.StartPostgres(t)

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	runner, err := database.NewMigrationRunner(config.URL(), "../../migrations", logger)
	require.NoError(t, err)
	defer runner.Close()
	require.NoError(t, runner.Up())

	store, err := NewPostgresStoreFromURL(config.URL())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	first := newReview("s-1", "clinic-a", domain.VERDICT_UNSURE)
	require.NoError(t, store.Save(ctx, first))

	second := newReview("s-1", "clinic-a", domain.VERDICT_AGREE)
	require.NoError(t, store.Save(ctx, second))
	assert.Equal(t, first.ID, second.ID)

	require.NoError(t, store.Save(ctx, newReview("s-2", "clinic-b", domain.VERDICT_DISAGREE)))

	count, err := store.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	list, err := store.List(ctx, "clinic-a", 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.VERDICT_AGREE, list[0].Verdict)

	stats, err := store.AgreementRate(ctx, "")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, stats.Rate, 1e-9)

	require.NoError(t, store.Delete(ctx, second.ID))
	got, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
