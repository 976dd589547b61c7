package feedback

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarang-screening-server/internal/domain"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "reviews.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newReview(session, tenant string, verdict domain.ReviewVerdict) *domain.ClinicianReview {
	return &domain.ClinicianReview{
		SessionID:    session,
		TenantID:     tenant,
		EngineResult: domain.MODERATE_RISK,
		Verdict:      verdict,
		Reviewer:     "dr.rao",
	}
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "reviews.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func TestSQLiteStore_Save(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	review := newReview("s-1", "clinic-a", domain.VERDICT_DISAGREE)
	review.ClinicianResult = domain.HIGH_RISK
	review.Notes = "Parent reports regression in speech"

	require.NoError(t, store.Save(ctx, review))
	assert.NotZero(t, review.ID, "ID should be assigned")
	assert.False(t, review.CreatedAt.IsZero(), "CreatedAt should be set")
	assert.False(t, review.UpdatedAt.IsZero(), "UpdatedAt should be set")

	got, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.HIGH_RISK, got.ClinicianResult)
	assert.Equal(t, domain.VERDICT_DISAGREE, got.Verdict)
	assert.Equal(t, "Parent reports regression in speech", got.Notes)
}

func TestSQLiteStore_Save_Update(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	first := newReview("s-1", "clinic-a", domain.VERDICT_UNSURE)
	require.NoError(t, store.Save(ctx, first))

	second := newReview("s-1", "clinic-a", domain.VERDICT_AGREE)
	require.NoError(t, store.Save(ctx, second))

	assert.Equal(t, first.ID, second.ID, "Same session should keep its ID")
	count, err := store.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, domain.VERDICT_AGREE, got.Verdict)
}

func TestSQLiteStore_Save_Invalid(t *testing.T) {
	store := createTestStore(t)

	err := store.Save(context.Background(), newReview("s-1", "clinic-a", "maybe"))
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSQLiteStore_Get_NotFound(t *testing.T) {
	store := createTestStore(t)

	got, err := store.Get(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_List(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	for i, session := range []string{"s-1", "s-2", "s-3"} {
		tenant := "clinic-a"
		if i == 2 {
			tenant = "clinic-b"
		}
		r := newReview(session, tenant, domain.VERDICT_AGREE)
		r.CreatedAt = time.Date(2026, 4, 1+i, 0, 0, 0, 0, time.UTC)
		require.NoError(t, store.Save(ctx, r))
	}

	all, err := store.List(ctx, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "s-3", all[0].SessionID, "newest first")

	tenantA, err := store.List(ctx, "clinic-a", 10, 0)
	require.NoError(t, err)
	assert.Len(t, tenantA, 2)

	page, err := store.List(ctx, "", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "s-2", page[0].SessionID)

	count, err := store.Count(ctx, "clinic-b")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	r := newReview("s-1", "clinic-a", domain.VERDICT_AGREE)
	require.NoError(t, store.Save(ctx, r))
	require.NoError(t, store.Delete(ctx, r.ID))

	got, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_AgreementRate(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	empty, err := store.AgreementRate(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, &AgreementStats{}, empty)

	verdicts := []domain.ReviewVerdict{
		domain.VERDICT_AGREE, domain.VERDICT_AGREE, domain.VERDICT_AGREE,
		domain.VERDICT_DISAGREE, domain.VERDICT_UNSURE,
	}
	for i, v := range verdicts {
		require.NoError(t, store.Save(ctx, newReview(string(rune('a'+i)), "clinic-a", v)))
	}
	require.NoError(t, store.Save(ctx, newReview("other", "clinic-b", domain.VERDICT_DISAGREE)))

	stats, err := store.AgreementRate(ctx, "clinic-a")
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.Total)
	assert.Equal(t, int64(3), stats.Agreed)
	assert.Equal(t, int64(1), stats.Disagreed)
	assert.Equal(t, int64(1), stats.Unsure)
	assert.InDelta(t, 0.75, stats.Rate, 1e-9)

	overall, err := store.AgreementRate(ctx, "")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, overall.Rate, 1e-9)
}

func TestSQLiteStore_ExportImportJSON(t *testing.T) {
	source := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, source.Save(ctx, newReview("s-1", "clinic-a", domain.VERDICT_AGREE)))
	require.NoError(t, source.Save(ctx, newReview("s-2", "clinic-a", domain.VERDICT_DISAGREE)))

	var buf bytes.Buffer
	require.NoError(t, source.ExportJSON(ctx, &buf))
	assert.Contains(t, buf.String(), `"version": "1.0"`)
	assert.Contains(t, buf.String(), `"count": 2`)

	target := createTestStore(t)
	require.NoError(t, target.Save(ctx, newReview("s-2", "clinic-a", domain.VERDICT_UNSURE)))

	imported, skipped, err := target.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 1, skipped)

	kept, err := target.Get(ctx, "s-2")
	require.NoError(t, err)
	assert.Equal(t, domain.VERDICT_UNSURE, kept.Verdict, "existing review is not overwritten")
}

func TestSQLiteStore_ImportJSON_Invalid(t *testing.T) {
	store := createTestStore(t)

	_, _, err := store.ImportJSON(context.Background(), bytes.NewReader([]byte("not json")))
	assert.Error(t, err)
}
