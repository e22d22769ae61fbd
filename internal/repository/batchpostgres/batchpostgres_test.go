package batchpostgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/UnendingLoop/IconConverter/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/dbpg"
)

func newRepoWithMock(t *testing.T) (PostgresRepo, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	pg := &dbpg.DB{Master: db}

	repo := PostgresRepo{DB: pg}

	return repo, mock
}

var batchColumns = []string{
	"batch_uid", "input_dir", "output_dir", "policy", "status",
	"converted", "failed", "ignored", "report", "err_msg", "created_at", "updated_at",
}

// CREATE - SUCCESS
func TestPostgresRepo_Create_OK(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	ctime := time.Now()
	b := &model.Batch{
		UID:       uuid.New(),
		InputDir:  "images",
		OutputDir: "icons",
		Policy:    model.PolicySkip,
		Status:    model.StatusCreated,
		CreatedAt: &ctime,
	}

	mock.ExpectQuery(`INSERT INTO batches`).
		WithArgs(b.UID, "images", "icons", model.PolicySkip, model.StatusCreated, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{}))

	require.NoError(t, repo.Create(context.Background(), b))
	require.NoError(t, mock.ExpectationsWereMet())
}

// CREATE - DBERROR
func TestPostgresRepo_Create_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO batches`).WillReturnError(errors.New("duplicate key"))

	err := repo.Create(context.Background(), &model.Batch{UID: uuid.New()})
	require.ErrorContains(t, err, "duplicate key")
}

// GET - SUCCESS, with report
func TestPostgresRepo_Get_OK(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	id := uuid.New()
	report := model.Report{BatchID: id, Policy: model.PolicyAbort, Aborted: true}
	report.Add(model.FileResult{Source: "a.tiff", Status: model.FileFailed, Error: "broken"})
	rawReport, err := json.Marshal(report)
	require.NoError(t, err)

	rows := sqlmock.NewRows(batchColumns).AddRow(
		id.String(), "images", "icons", "abort", "failed",
		0, 1, 2, rawReport, []byte(`["batch aborted"]`), time.Now(), time.Now(),
	)

	mock.ExpectQuery(`SELECT batch_uid`).
		WithArgs(id.String()).
		WillReturnRows(rows)

	b, err := repo.Get(context.Background(), id.String())
	require.NoError(t, err)
	require.Equal(t, id, b.UID)
	require.Equal(t, model.PolicyAbort, b.Policy)
	require.Equal(t, model.StatusFailed, b.Status)
	require.Equal(t, 2, b.Ignored)
	require.Equal(t, model.StringSlice{"batch aborted"}, b.ErrMsg)
	require.NotNil(t, b.Report)
	require.True(t, b.Report.Aborted)
	require.Len(t, b.Report.Files, 1)
}

// GET - SUCCESS, not processed yet
func TestPostgresRepo_Get_NoReport(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	id := uuid.New()
	rows := sqlmock.NewRows(batchColumns).AddRow(
		id.String(), "images", "icons", "skip", "created",
		0, 0, 0, nil, nil, time.Now(), time.Now(),
	)
	mock.ExpectQuery(`SELECT batch_uid`).WithArgs(id.String()).WillReturnRows(rows)

	b, err := repo.Get(context.Background(), id.String())
	require.NoError(t, err)
	require.Nil(t, b.Report)
	require.Empty(t, b.ErrMsg)
}

// GET - NOT FOUND
func TestPostgresRepo_Get_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT batch_uid`).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), uuid.New().String())
	require.ErrorIs(t, err, model.ErrBatchNotFound)
}

// GETLIST - SUCCESS
func TestPostgresRepo_GetList_OK(t *testing.T) {
	tests := []struct {
		name      string
		req       model.ListRequest
		wantQuery string
		wantArgs  []driver.Value
	}{
		{
			name:      "by created desc, first page",
			req:       model.ListRequest{Page: 1, Limit: 2, Sort: model.ByCreated, Order: "DESC"},
			wantQuery: `ORDER BY created_at DESC`,
			wantArgs:  []driver.Value{2, 0},
		},
		{
			name:      "by uid asc, third page",
			req:       model.ListRequest{Page: 3, Limit: 10, Sort: model.ByUUID, Order: "ASC"},
			wantQuery: `ORDER BY batch_uid ASC`,
			wantArgs:  []driver.Value{10, 20},
		},
		{
			name:      "unknown column falls back",
			req:       model.ListRequest{Page: 1, Limit: 5, Sort: "1; DROP TABLE batches", Order: "sideways"},
			wantQuery: `ORDER BY created_at DESC`,
			wantArgs:  []driver.Value{5, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newRepoWithMock(t)

			rows := sqlmock.NewRows([]string{
				"batch_uid", "input_dir", "output_dir", "policy", "status",
				"converted", "failed", "ignored", "err_msg", "created_at", "updated_at",
			}).
				AddRow(uuid.New().String(), "a", "b", "skip", "done", 3, 0, 1, nil, time.Now(), time.Now()).
				AddRow(uuid.New().String(), "c", "d", "abort", "created", 0, 0, 0, nil, time.Now(), time.Now())

			mock.ExpectQuery(tt.wantQuery).
				WithArgs(tt.wantArgs...).
				WillReturnRows(rows)

			res, err := repo.GetList(context.Background(), &tt.req)
			require.NoError(t, err)
			require.Len(t, res, 2)
			require.Equal(t, model.StatusDone, res[0].Status)
			require.Equal(t, 3, res[0].Converted)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// UPDATESTATUS
func TestPostgresRepo_UpdateStatus(t *testing.T) {
	tests := []struct {
		name    string
		result  driver.Result
		dbErr   error
		wantErr error
	}{
		{"ok", sqlmock.NewResult(0, 1), nil, nil},
		{"not found", sqlmock.NewResult(0, 0), nil, model.ErrBatchNotFound},
		{"db down", nil, errors.New("db down"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newRepoWithMock(t)

			exp := mock.ExpectExec(`UPDATE batches SET status`).WithArgs(model.StatusInProgress, "id")
			if tt.dbErr != nil {
				exp.WillReturnError(tt.dbErr)
			} else {
				exp.WillReturnResult(tt.result)
			}

			err := repo.UpdateStatus(context.Background(), "id", model.StatusInProgress)
			switch {
			case tt.dbErr != nil:
				require.ErrorIs(t, err, tt.dbErr)
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
			}
		})
	}
}

// SAVERESULT - report goes to JSONB
func TestPostgresRepo_SaveResult(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	now := time.Now()
	report := &model.Report{BatchID: uuid.New(), Policy: model.PolicySkip}
	report.Add(model.FileResult{Source: "a.tiff", Output: "icons/a.tiff.jpeg", Status: model.FileConverted})
	b := &model.Batch{UID: report.BatchID, Status: model.StatusDone, UpdatedAt: &now}
	b.ApplyReport(report)

	rawReport, err := json.Marshal(report)
	require.NoError(t, err)

	mock.ExpectExec(`UPDATE batches`).
		WithArgs(model.StatusDone, 1, 0, 0, rawReport, sqlmock.AnyArg(), sqlmock.AnyArg(), b.UID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SaveResult(context.Background(), b))
	require.NoError(t, mock.ExpectationsWereMet())

	// строки нет
	mock.ExpectExec(`UPDATE batches`).WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.SaveResult(context.Background(), b), model.ErrBatchNotFound)
}

// FETCHORPHANS - SUCCESS
func TestPostgresRepo_FetchOrphans_OK(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	rows := sqlmock.NewRows([]string{"batch_uid"}).
		AddRow("id1").
		AddRow("id2")

	mock.ExpectQuery(`SELECT batch_uid`).
		WithArgs(model.StatusCreated, model.StatusInProgress, sqlmock.AnyArg(), 2).
		WillReturnRows(rows)

	res, err := repo.FetchOrphans(context.Background(), 2, 10*time.Minute)
	require.NoError(t, err)
	require.Equal(t, []string{"id1", "id2"}, res)
}

// FETCHORPHANS - DBERROR
func TestPostgresRepo_FetchOrphans_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT batch_uid`).WillReturnError(errors.New("db down"))

	_, err := repo.FetchOrphans(context.Background(), 2, time.Minute)
	require.Error(t, err)
}
