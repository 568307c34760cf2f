package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sairevanth-zz/signalsloop-sub011/internal/adapters/postgres"
	"github.com/sairevanth-zz/signalsloop-sub011/internal/domain"
	"github.com/sairevanth-zz/signalsloop-sub011/internal/ports"
)

var (
	_ ports.ScanStore = (*postgres.DB)(nil)
	_ ports.JobStore  = (*postgres.DB)(nil)
)

// testDB connects to TEST_DATABASE_URL, applies migrations and truncates the
// tables. Tests are skipped when the variable is unset.
func testDB(t *testing.T) *postgres.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	require.NoError(t, postgres.Migrate(ctx, url))
	db, err := postgres.Connect(ctx, url, domain.RetryPolicy{BaseDelay: time.Millisecond, MaxDelay: time.Second})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	_, err = db.Pool.Exec(ctx, `TRUNCATE discovery_jobs, scans`)
	require.NoError(t, err)
	return db
}

func createScan(t *testing.T, db *postgres.DB, platforms ...string) (domain.Scan, []domain.DiscoveryJob) {
	t.Helper()
	scan := domain.NewScan("p1", "tester", platforms)
	jobs := make([]*domain.DiscoveryJob, 0, len(platforms))
	for _, p := range platforms {
		j := domain.NewDiscoveryJob(p, 3)
		jobs = append(jobs, &j)
	}
	require.NoError(t, db.Create(context.Background(), &scan, jobs))
	out := make([]domain.DiscoveryJob, len(jobs))
	for i, j := range jobs {
		out[i] = *j
	}
	return scan, out
}

func TestCreateAndGet(t *testing.T) {
	db := testDB(t)
	scan, jobs := createScan(t, db, "reddit", "twitter")

	require.NotEmpty(t, scan.ID)
	require.Len(t, jobs, 2)

	got, err := db.Get(context.Background(), scan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScanRunning, got.Status)
	assert.Equal(t, domain.PlatformPending, got.Platforms["reddit"])
	assert.Equal(t, 0, got.TotalDiscovered)

	_, err = db.Get(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, domain.ErrScanNotFound)
}

func TestCreate_RequiresJobs(t *testing.T) {
	db := testDB(t)
	scan := domain.NewScan("p1", "tester", nil)

	err := db.Create(context.Background(), &scan, nil)
	assert.ErrorIs(t, err, domain.ErrNoJobs)
	assert.Empty(t, scan.ID)
}

func TestClaimAckFlow(t *testing.T) {
	db := testDB(t)
	scan, _ := createScan(t, db, "reddit", "twitter")
	ctx := context.Background()

	first, found, err := db.ClaimNext(ctx, "w1", time.Minute)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.JobLeased, first.Status)
	assert.Equal(t, "w1", first.ClaimedBy)
	require.NotNil(t, first.LeaseExpiresAt)

	second, found, err := db.ClaimNext(ctx, "w2", time.Minute)
	require.NoError(t, err)
	require.True(t, found)
	assert.NotEqual(t, first.ID, second.ID, "two claims must never return the same job")

	_, found, err = db.ClaimNext(ctx, "w3", time.Minute)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, db.Ack(ctx, first.ID, 5))
	require.NoError(t, db.Ack(ctx, first.ID, 5)) // idempotent
	require.NoError(t, db.Ack(ctx, second.ID, 2))

	got, err := db.Get(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.TotalDiscovered)
	assert.Equal(t, domain.ScanComplete, got.Status)
	require.NotNil(t, got.CompletedAt)
}

func TestFailOrRetryFlow(t *testing.T) {
	db := testDB(t)
	scan, _ := createScan(t, db, "reddit")
	ctx := context.Background()

	for attempt := 1; attempt <= 3; attempt++ {
		job, found, err := db.ClaimNext(ctx, "w1", time.Minute)
		require.NoError(t, err)
		require.True(t, found, "attempt %d should be claimable", attempt)
		require.NoError(t, db.FailOrRetry(ctx, job.ID, "rate limited", false))
		// Backoff is a millisecond in the test policy; wait it out.
		time.Sleep(20 * time.Millisecond)
	}

	jobs, err := db.ListByScan(ctx, scan.ID)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.JobFailed, jobs[0].Status)
	assert.Equal(t, 3, jobs[0].Attempts)
	require.NotNil(t, jobs[0].Error)

	got, err := db.Get(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScanFailed, got.Status)
}

func TestLeaseReclaim(t *testing.T) {
	db := testDB(t)
	createScan(t, db, "reddit")
	ctx := context.Background()

	first, found, err := db.ClaimNext(ctx, "worker-a", 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, found)

	_, found, err = db.ClaimNext(ctx, "worker-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, found)

	time.Sleep(100 * time.Millisecond)
	reclaimed, found, err := db.ClaimNext(ctx, "worker-b", time.Minute)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, first.ID, reclaimed.ID)
	assert.Equal(t, "worker-b", reclaimed.ClaimedBy)
}

func TestEnqueuePagination(t *testing.T) {
	db := testDB(t)
	scan, _ := createScan(t, db, "forum")
	ctx := context.Background()

	job, found, err := db.ClaimNext(ctx, "w1", time.Minute)
	require.NoError(t, err)
	require.True(t, found)

	follow := domain.NewPaginationJob(job, "page-2")
	require.NoError(t, db.Enqueue(ctx, []*domain.DiscoveryJob{&follow}))
	require.NoError(t, db.Ack(ctx, job.ID, 2))

	got, err := db.Get(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScanRunning, got.Status)

	counts, err := db.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[domain.JobPending])
	assert.Equal(t, 1, counts[domain.JobComplete])
}
