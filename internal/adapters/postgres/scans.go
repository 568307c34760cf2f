package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/sairevanth-zz/signalsloop-sub011/internal/domain"
)

// Create inserts the scan and all of its jobs in one transaction, so a scan
// can never exist with a partial job set.
func (db *DB) Create(ctx context.Context, scan *domain.Scan, jobs []*domain.DiscoveryJob) (err error) {
	if len(jobs) == 0 {
		return domain.ErrNoJobs
	}
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

	platforms, err := json.Marshal(scan.Platforms)
	if err != nil {
		return err
	}
	err = tx.QueryRow(ctx, `
        INSERT INTO scans (project_id, requested_by, status, platforms, started_at)
        VALUES ($1, $2, $3, $4::jsonb, $5)
        RETURNING id
    `, scan.ProjectID, scan.RequestedBy, scan.Status, string(platforms), scan.StartedAt).Scan(&scan.ID)
	if err != nil {
		return err
	}
	for _, j := range jobs {
		j.ScanID = scan.ID
		if err = insertJob(ctx, tx, j); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) Get(ctx context.Context, scanID string) (domain.Scan, error) {
	var (
		scan      domain.Scan
		platforms []byte
	)
	err := db.Pool.QueryRow(ctx, `
        SELECT id, project_id, requested_by, status, platforms,
               total_discovered, total_relevant, total_classified,
               started_at, completed_at
        FROM scans
        WHERE id = $1
    `, scanID).Scan(
		&scan.ID, &scan.ProjectID, &scan.RequestedBy, &scan.Status, &platforms,
		&scan.TotalDiscovered, &scan.TotalRelevant, &scan.TotalClassified,
		&scan.StartedAt, &scan.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Scan{}, domain.ErrScanNotFound
	}
	if err != nil {
		return domain.Scan{}, err
	}
	if err := json.Unmarshal(platforms, &scan.Platforms); err != nil {
		return domain.Scan{}, err
	}
	return scan, nil
}
