package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sairevanth-zz/signalsloop-sub011/internal/domain"
)

func insertJob(ctx context.Context, tx pgx.Tx, j *domain.DiscoveryJob) error {
	return tx.QueryRow(ctx, `
        INSERT INTO discovery_jobs
            (scan_id, platform, job_type, page_cursor, status, attempts,
             max_attempts, created_at, updated_at, not_before)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id
    `, j.ScanID, j.Platform, j.Type, j.Cursor, j.Status, j.Attempts,
		j.MaxAttempts, j.CreatedAt, j.UpdatedAt, j.NotBefore).Scan(&j.ID)
}

func (db *DB) Enqueue(ctx context.Context, jobs []*domain.DiscoveryJob) (err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	for _, j := range jobs {
		if err = insertJob(ctx, tx, j); err != nil {
			return err
		}
		if err = refreshPlatform(ctx, tx, j.ScanID, j.Platform); err != nil {
			return err
		}
	}
	return nil
}

// ClaimNext leases the oldest eligible job using SKIP LOCKED so concurrent
// workers never receive the same row. Eligible means pending and past its
// backoff gate, or leased with an expired lease (a crashed worker's job).
func (db *DB) ClaimNext(ctx context.Context, workerID string, lease time.Duration) (job domain.DiscoveryJob, found bool, err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return job, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = tx.QueryRow(ctx, `
        SELECT id, scan_id, platform, job_type, page_cursor, attempts,
               max_attempts, error, created_at, not_before
        FROM discovery_jobs
        WHERE (status = 'pending' AND not_before <= now())
           OR (status = 'leased' AND lease_expires_at < now())
        ORDER BY created_at
        FOR UPDATE SKIP LOCKED
        LIMIT 1
    `).Scan(&job.ID, &job.ScanID, &job.Platform, &job.Type, &job.Cursor,
		&job.Attempts, &job.MaxAttempts, &job.Error, &job.CreatedAt, &job.NotBefore)
	if errors.Is(err, pgx.ErrNoRows) {
		err = nil
		return job, false, nil
	}
	if err != nil {
		return job, false, err
	}

	var expires time.Time
	err = tx.QueryRow(ctx, `
        UPDATE discovery_jobs
        SET status = 'leased', claimed_by = $2, updated_at = now(),
            lease_expires_at = now() + $3 * interval '1 millisecond'
        WHERE id = $1
        RETURNING lease_expires_at, updated_at
    `, job.ID, workerID, lease.Milliseconds()).Scan(&expires, &job.UpdatedAt)
	if err != nil {
		return job, false, err
	}
	job.Status = domain.JobLeased
	job.ClaimedBy = workerID
	job.LeaseExpiresAt = &expires

	if err = refreshPlatform(ctx, tx, job.ScanID, job.Platform); err != nil {
		return job, false, err
	}
	return job, true, nil
}

// Ack completes a job and applies its counter contribution exactly once.
// A job already in a terminal state is left untouched, which makes late
// duplicate acks after a lease reclaim harmless.
func (db *DB) Ack(ctx context.Context, jobID string, discovered int) (err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	var (
		scanID, platform string
		status           domain.JobStatus
	)
	err = tx.QueryRow(ctx, `
        SELECT scan_id, platform, status FROM discovery_jobs WHERE id = $1 FOR UPDATE
    `, jobID).Scan(&scanID, &platform, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrJobNotFound
	}
	if err != nil {
		return err
	}
	if status.Terminal() {
		return nil
	}

	if _, err = tx.Exec(ctx, `
        UPDATE discovery_jobs
        SET status = 'complete', error = NULL, lease_expires_at = NULL, updated_at = now()
        WHERE id = $1
    `, jobID); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `
        UPDATE scans SET total_discovered = total_discovered + $2 WHERE id = $1
    `, scanID, discovered); err != nil {
		return err
	}
	if err = refreshPlatform(ctx, tx, scanID, platform); err != nil {
		return err
	}
	return finishIfDone(ctx, tx, scanID)
}

func (db *DB) FailOrRetry(ctx context.Context, jobID string, reason string, terminal bool) (err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	var (
		scanID, platform      string
		status                domain.JobStatus
		attempts, maxAttempts int
	)
	err = tx.QueryRow(ctx, `
        SELECT scan_id, platform, status, attempts, max_attempts
        FROM discovery_jobs WHERE id = $1 FOR UPDATE
    `, jobID).Scan(&scanID, &platform, &status, &attempts, &maxAttempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrJobNotFound
	}
	if err != nil {
		return err
	}
	if status.Terminal() {
		return nil
	}

	attempts++
	if terminal || attempts >= maxAttempts {
		_, err = tx.Exec(ctx, `
            UPDATE discovery_jobs
            SET status = 'failed', attempts = $2, error = $3,
                lease_expires_at = NULL, updated_at = now()
            WHERE id = $1
        `, jobID, attempts, reason)
	} else {
		delay := db.retry.RetryDelay(attempts)
		_, err = tx.Exec(ctx, `
            UPDATE discovery_jobs
            SET status = 'pending', attempts = $2, error = $3,
                lease_expires_at = NULL, updated_at = now(),
                not_before = now() + $4 * interval '1 millisecond'
            WHERE id = $1
        `, jobID, attempts, reason, delay.Milliseconds())
	}
	if err != nil {
		return err
	}
	if err = refreshPlatform(ctx, tx, scanID, platform); err != nil {
		return err
	}
	return finishIfDone(ctx, tx, scanID)
}

func (db *DB) ListByScan(ctx context.Context, scanID string) ([]domain.DiscoveryJob, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT id, scan_id, platform, job_type, page_cursor, status, attempts,
               max_attempts, error, claimed_by, created_at, updated_at,
               not_before, lease_expires_at
        FROM discovery_jobs
        WHERE scan_id = $1
        ORDER BY created_at
    `, scanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.DiscoveryJob
	for rows.Next() {
		var j domain.DiscoveryJob
		if err := rows.Scan(
			&j.ID, &j.ScanID, &j.Platform, &j.Type, &j.Cursor, &j.Status,
			&j.Attempts, &j.MaxAttempts, &j.Error, &j.ClaimedBy,
			&j.CreatedAt, &j.UpdatedAt, &j.NotBefore, &j.LeaseExpiresAt,
		); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (db *DB) CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT status, count(*) FROM discovery_jobs GROUP BY status
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.JobStatus]int)
	for rows.Next() {
		var (
			status domain.JobStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// refreshPlatform recomputes the cached per-platform entry on the scan row
// from the platform's latest job, so pagination follow-ups keep a platform
// non-terminal until the last page lands.
func refreshPlatform(ctx context.Context, tx pgx.Tx, scanID, platform string) error {
	var latest domain.DiscoveryJob
	err := tx.QueryRow(ctx, `
        SELECT status, attempts, job_type
        FROM discovery_jobs
        WHERE scan_id = $1 AND platform = $2
        ORDER BY created_at DESC
        LIMIT 1
    `, scanID, platform).Scan(&latest.Status, &latest.Attempts, &latest.Type)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
        UPDATE scans
        SET platforms = jsonb_set(platforms, ARRAY[$2]::text[], to_jsonb($3::text), true)
        WHERE id = $1
    `, scanID, platform, string(domain.PlatformStatusOf(latest)))
	return err
}

// finishIfDone re-derives the scan-level status. The scan turns terminal only
// when every job is terminal; completed_at sticks at the first transition.
func finishIfDone(ctx context.Context, tx pgx.Tx, scanID string) error {
	var open, completed, total int
	err := tx.QueryRow(ctx, `
        SELECT count(*) FILTER (WHERE status NOT IN ('complete', 'failed')),
               count(*) FILTER (WHERE status = 'complete'),
               count(*)
        FROM discovery_jobs
        WHERE scan_id = $1
    `, scanID).Scan(&open, &completed, &total)
	if err != nil {
		return err
	}
	if open > 0 || total == 0 {
		_, err = tx.Exec(ctx, `UPDATE scans SET status = 'running' WHERE id = $1`, scanID)
		return err
	}
	status := domain.ScanComplete
	if completed == 0 {
		status = domain.ScanFailed
	}
	_, err = tx.Exec(ctx, `
        UPDATE scans SET status = $2, completed_at = COALESCE(completed_at, now()) WHERE id = $1
    `, scanID, status)
	return err
}
