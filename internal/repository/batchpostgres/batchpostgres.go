package batchpostgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/UnendingLoop/IconConverter/internal/model"
	"github.com/wb-go/wbf/dbpg"
)

type PostgresRepo struct {
	DB *dbpg.DB
}

// сортировка только по известным колонкам - значение подставляется в текст запроса
var sortColumns = map[string]string{
	model.ByUUID:    "batch_uid",
	model.ByCreated: "created_at",
}

func (p PostgresRepo) Create(ctx context.Context, b *model.Batch) error {
	query := `INSERT INTO batches (batch_uid, input_dir, output_dir, policy, status, err_msg, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	return p.DB.QueryRowContext(ctx, query, b.UID, b.InputDir, b.OutputDir, b.Policy, b.Status, b.ErrMsg, b.CreatedAt, b.CreatedAt).Err()
}

func (p PostgresRepo) Get(ctx context.Context, id string) (*model.Batch, error) {
	query := `SELECT batch_uid, input_dir, output_dir, policy, status, converted, failed, ignored, report, err_msg, created_at, updated_at
	FROM batches
	WHERE batch_uid = $1`
	var batch model.Batch
	var rawReport []byte

	err := p.DB.QueryRowContext(ctx, query, id).Scan(&batch.UID,
		&batch.InputDir,
		&batch.OutputDir,
		&batch.Policy,
		&batch.Status,
		&batch.Converted,
		&batch.Failed,
		&batch.Ignored,
		&rawReport,
		&batch.ErrMsg,
		&batch.CreatedAt,
		&batch.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, model.ErrBatchNotFound
		default:
			return nil, err // 500
		}
	}

	if len(rawReport) > 0 {
		var report model.Report
		if err := json.Unmarshal(rawReport, &report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report of batch %q: %w", id, err)
		}
		batch.Report = &report
	}
	return &batch, nil
}

func (p PostgresRepo) GetList(ctx context.Context, req *model.ListRequest) ([]model.Batch, error) {
	column, ok := sortColumns[req.Sort]
	if !ok {
		column = "created_at"
	}
	order := "DESC"
	if req.Order == "ASC" {
		order = "ASC"
	}

	query := fmt.Sprintf(`SELECT batch_uid, input_dir, output_dir, policy, status, converted, failed, ignored, err_msg, created_at, updated_at
	FROM batches
	ORDER BY %s %s
	LIMIT $1
	OFFSET $2`, column, order)

	offset := (req.Page - 1) * req.Limit

	rows, err := p.DB.QueryContext(ctx, query, req.Limit, offset)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error while closing *sql.Rows after scanning: %v", err)
		}
	}()

	batches := make([]model.Batch, 0, req.Limit)
	for rows.Next() {
		var batch model.Batch
		if err := rows.Scan(&batch.UID,
			&batch.InputDir,
			&batch.OutputDir,
			&batch.Policy,
			&batch.Status,
			&batch.Converted,
			&batch.Failed,
			&batch.Ignored,
			&batch.ErrMsg,
			&batch.CreatedAt,
			&batch.UpdatedAt); err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return batches, nil
}

func (p PostgresRepo) UpdateStatus(ctx context.Context, id string, newStat model.Status) error {
	query := `UPDATE batches SET status = $1, updated_at = now() WHERE batch_uid = $2`
	res, err := p.DB.Master.ExecContext(ctx, query, newStat, id)
	if err != nil {
		return err // 500
	}
	return expectOneRow(res)
}

// SaveResult stores the final status, counters and the whole report as JSONB.
func (p PostgresRepo) SaveResult(ctx context.Context, b *model.Batch) error {
	var rawReport []byte
	if b.Report != nil {
		var err error
		if rawReport, err = json.Marshal(b.Report); err != nil {
			return fmt.Errorf("failed to marshal report of batch %q: %w", b.UID, err)
		}
	}

	query := `UPDATE batches
	SET status = $1, converted = $2, failed = $3, ignored = $4, report = $5, err_msg = $6, updated_at = $7
	WHERE batch_uid = $8`
	res, err := p.DB.Master.ExecContext(ctx, query, b.Status, b.Converted, b.Failed, b.Ignored, rawReport, b.ErrMsg, b.UpdatedAt, b.UID)
	if err != nil {
		return err // 500
	}
	return expectOneRow(res)
}

// FetchOrphans returns batches never picked up or stuck in progress for longer than staleAfter.
func (p PostgresRepo) FetchOrphans(ctx context.Context, limit int, staleAfter time.Duration) ([]string, error) {
	query := `SELECT batch_uid
	FROM batches
	WHERE status IN ($1, $2)
	AND updated_at < $3
	ORDER BY updated_at
	LIMIT $4`

	cutoff := time.Now().UTC().Add(-staleAfter)
	rows, err := p.DB.QueryContext(ctx, query, model.StatusCreated, model.StatusInProgress, cutoff, limit)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error while closing *sql.Rows after scanning: %v", err)
		}
	}()

	orphans := make([]string, 0, limit)
	for rows.Next() {
		uid := ""
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		orphans = append(orphans, uid)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return orphans, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrBatchNotFound // 404
	}
	return nil
}
