package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/clickpulse/internal/audit"
)

func newMockRepo(t *testing.T) (*LoadRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewLoadRepoFromDB(db), mock
}

func TestLoadRepo_WriteBatch(t *testing.T) {
	repo, mock := newMockRepo(t)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []audit.LoadEvent{
		{ID: "a", Domain: "temporal", EntityID: "42", Endpoint: "/api/analytics/link/42/temporal", Trigger: audit.TriggerInitial, Visible: true, Seq: 1, Outcome: audit.OutcomeSuccess, DurationMs: 12, Timestamp: ts},
		{ID: "b", Domain: "heatmap", Endpoint: "/api/analytics/global/heatmap", Trigger: audit.TriggerPoll, Seq: 4, Outcome: audit.OutcomeFailed, Error: "boom", DurationMs: 30, Timestamp: ts},
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO analytics_loads (id, domain, entity_id, endpoint, trigger, visible, seq, outcome, error, duration_ms, timestamp, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12),($13,")).
		WithArgs(
			"a", "temporal", "42", "/api/analytics/link/42/temporal", audit.TriggerInitial, true, int64(1), audit.OutcomeSuccess, "", int64(12), ts, sqlmock.AnyArg(),
			"b", "heatmap", "", "/api/analytics/global/heatmap", audit.TriggerPoll, false, int64(4), audit.OutcomeFailed, "boom", int64(30), ts, sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.WriteBatch(context.Background(), events))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadRepo_WriteBatchEmptyAndError(t *testing.T) {
	repo, mock := newMockRepo(t)
	require.NoError(t, repo.WriteBatch(context.Background(), nil))

	mock.ExpectExec("INSERT INTO analytics_loads").WillReturnError(errors.New("connection reset"))
	err := repo.WriteBatch(context.Background(), []audit.LoadEvent{{ID: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write 1 load events")
}

func TestLoadRepo_FetchHistory(t *testing.T) {
	repo, mock := newMockRepo(t)
	ts := time.Now().UTC()

	cols := []string{"id", "domain", "entity_id", "endpoint", "trigger", "visible", "seq", "outcome", "error", "duration_ms", "timestamp"}
	mock.ExpectQuery("SELECT id, domain, entity_id").
		WithArgs("geographic", "", audit.DefaultHistoryLimit).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("a", "geographic", "7", "/api/analytics/link/7/geographic", "refresh", true, int64(3), "SUCCESS", "", int64(8), ts))

	got, err := repo.FetchHistory(context.Background(), audit.HistoryFilter{Domain: "geographic"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "7", got[0].EntityID)
	assert.EqualValues(t, 3, got[0].Seq)
	assert.True(t, got[0].Visible)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadRepo_Summary(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM analytics_loads").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"domain", "count", "failed", "stale", "p95"}).
			AddRow("audience", int64(10), int64(2), int64(1), 45.5))

	got, err := repo.Summary(context.Background(), time.Hour)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, audit.LoadSummary{Domain: "audience", Total: 10, Failed: 2, Stale: 1, P95Ms: 45.5, Window: "1h0m0s"}, got[0])
}

func TestHistoryFilter_Normalized(t *testing.T) {
	assert.Equal(t, audit.DefaultHistoryLimit, audit.HistoryFilter{}.Normalized().Limit)
	assert.Equal(t, audit.MaxHistoryLimit, audit.HistoryFilter{Limit: 1 << 20}.Normalized().Limit)
	assert.Equal(t, 5, audit.HistoryFilter{Limit: 5}.Normalized().Limit)
}
