package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/jobradar/harvester/internal/scrape"
)

func sampleJob() scrape.NormalizedJob {
	return scrape.NormalizedJob{
		ExternalID:     "abc123",
		Title:          "Senior Software Engineer",
		Company:        "Acme",
		Location:       "Berlin",
		Category:       "engineering",
		Level:          "senior",
		EmploymentType: "full-time",
		Remote:         false,
		URL:            "https://acme.example.com/jobs/1",
		Description:    "Senior Software Engineer at Acme",
		SalaryMin:      100000,
		SalaryMax:      150000,
		DiscoveredAt:   time.Unix(1700000000, 0).UTC(),
	}
}

func upsertArgs(job scrape.NormalizedJob) []any {
	return []any{
		job.ExternalID, job.Title, job.Company, job.Location, job.Category,
		job.Level, job.EmploymentType, job.Remote, job.URL, job.Description,
		job.SalaryMin, job.SalaryMax, job.DiscoveredAt,
	}
}

func TestUpsertReportsCreated(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock)
	require.NoError(t, err)

	job := sampleJob()
	mock.ExpectQuery("INSERT INTO jobs").
		WithArgs(upsertArgs(job)...).
		WillReturnRows(pgxmock.NewRows([]string{"created"}).AddRow(true))

	created, err := store.Upsert(context.Background(), job)
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertReportsUpdated(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock)
	require.NoError(t, err)

	job := sampleJob()
	mock.ExpectQuery("INSERT INTO jobs").
		WithArgs(upsertArgs(job)...).
		WillReturnRows(pgxmock.NewRows([]string{"created"}).AddRow(false))

	created, err := store.Upsert(context.Background(), job)
	require.NoError(t, err)
	require.False(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRequiresExternalID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock)
	require.NoError(t, err)

	job := sampleJob()
	job.ExternalID = ""
	_, err = store.Upsert(context.Background(), job)
	require.Error(t, err)
}

func TestAppendInsertsRunLogRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock)
	require.NoError(t, err)

	entry := scrape.RunLogEntry{
		RunID:         "run-1",
		Target:        "acme",
		Status:        scrape.RunStatusPartial,
		ListingsFound: 12,
		PagesFetched:  3,
		StartedAt:     time.Unix(1700000000, 0).UTC(),
		CompletedAt:   time.Unix(1700000060, 0).UTC(),
		Error:         "fetch page 4: request timed out",
	}

	mock.ExpectExec("INSERT INTO scrape_logs").
		WithArgs(
			entry.RunID, entry.Target, entry.Status, entry.ListingsFound,
			entry.PagesFetched, entry.StartedAt, entry.CompletedAt, entry.Error,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Append(context.Background(), entry))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentScansRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock)
	require.NoError(t, err)

	started := time.Unix(1700000000, 0).UTC()
	completed := started.Add(time.Minute)
	rows := pgxmock.NewRows([]string{
		"run_id", "target", "status", "listings_found", "pages_fetched",
		"started_at", "completed_at", "error_text",
	}).
		AddRow("run-2", "acme", scrape.RunStatusSuccess, 8, 2, started, completed, "").
		AddRow("run-1", "globex", scrape.RunStatusFailed, 0, 0, started, completed, "blocked by target")

	mock.ExpectQuery("SELECT run_id, target, status").
		WithArgs(2).
		WillReturnRows(rows)

	entries, err := store.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "run-2", entries[0].RunID)
	require.Equal(t, scrape.RunStatusFailed, entries[1].Status)
	require.Equal(t, "blocked by target", entries[1].Error)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateAppliesSchema(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock)
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS jobs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS scrape_logs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{})
	require.Error(t, err)
}
