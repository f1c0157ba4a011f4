package sqlstore

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postpipe-connector/internal/models"
	"postpipe-connector/internal/storage"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	mock.ExpectPing()
	for range Postgres.Migrations {
		mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	store, err := Open(context.Background(), db, Postgres)
	require.NoError(t, err)
	return store, mock
}

func TestDialectQueries(t *testing.T) {
	assert.Contains(t, Postgres.insertQuery(), "VALUES ($1, $2, $3, $4, $5, $6, $7)")
	assert.Contains(t, SQLite.insertQuery(), "VALUES (?, ?, ?, ?, ?, ?, ?)")
	assert.Contains(t, Postgres.findQuery(), "LIMIT $3")
	assert.Contains(t, SQLite.findQuery(), "ORDER BY received_at DESC, id DESC LIMIT ?")
}

func TestStore_Insert(t *testing.T) {
	store, mock := newMockStore(t)
	received := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	doc := models.NewStoredSubmission(&models.IngestPayload{
		FormID:       "contact-us",
		FormName:     "Contact",
		SubmissionID: "sub_1",
		Data:         map[string]interface{}{"email": "a@example.com"},
	}, received)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO postpipe_submissions")).
		WithArgs("postpipe", "Contact", "sub_1", "contact-us", "Contact", sqlmock.AnyArg(), received.UnixNano()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.Insert(context.Background(), "postpipe", "Contact", doc))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_InsertFailure(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT").WillReturnError(errors.New("connection reset"))

	err := store.Insert(context.Background(), "db", "c", models.NewStoredSubmission(&models.IngestPayload{}, time.Now()))
	assert.ErrorContains(t, err, "connection reset")
}

func TestStore_Find(t *testing.T) {
	store, mock := newMockStore(t)
	newer := models.NewStoredSubmission(&models.IngestPayload{FormID: "contact-us", SubmissionID: "b"}, time.Unix(200, 0))
	older := models.NewStoredSubmission(&models.IngestPayload{FormID: "contact-us", SubmissionID: "a"}, time.Unix(100, 0))
	newerJSON, _ := json.Marshal(newer)
	olderJSON, _ := json.Marshal(older)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT document FROM postpipe_submissions WHERE db_name = $1 AND collection = $2")).
		WithArgs("postpipe", "contact-us", 2).
		WillReturnRows(sqlmock.NewRows([]string{"document"}).AddRow(newerJSON).AddRow(olderJSON))

	results, err := store.Find(context.Background(), "postpipe", "contact-us", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].SubmissionID)
	assert.Equal(t, time.Unix(200, 0).UTC(), results[0].ReceivedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FindEmpty(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"document"}))

	results, err := store.Find(context.Background(), "db", "c", 50)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestStore_Close(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectClose()

	require.NoError(t, store.Close(context.Background()))
	require.NoError(t, store.Close(context.Background()))
	assert.ErrorIs(t, store.Ping(context.Background()), storage.ErrClosed)
	assert.ErrorIs(t, store.Insert(context.Background(), "db", "c", &models.StoredSubmission{}), storage.ErrClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_MigrationFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing()
	mock.ExpectExec("CREATE").WillReturnError(errors.New("permission denied"))
	mock.ExpectClose()

	_, err = Open(context.Background(), db, Postgres)
	assert.ErrorContains(t, err, "failed to migrate database")
	assert.NoError(t, mock.ExpectationsWereMet())
}
