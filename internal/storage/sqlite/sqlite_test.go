package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postpipe-connector/internal/models"
	"postpipe-connector/internal/storage"
)

func TestDataSource(t *testing.T) {
	tests := []struct {
		uri     string
		want    string
		wantErr bool
	}{
		{"sqlite://./data/postpipe.db", "./data/postpipe.db", false},
		{"sqlite:///var/lib/postpipe.db", "/var/lib/postpipe.db", false},
		{"SQLITE://:memory:", ":memory:", false},
		{"sqlite:db.sqlite", "db.sqlite", false},
		{"file:test.db?cache=shared", "file:test.db?cache=shared", false},
		{"sqlite://", "", true},
		{"mongodb://localhost", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, err := DataSource(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "postpipe.db")

	client, err := storage.Dial(ctx, "sqlite://"+path)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close(ctx) })

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		doc := models.NewStoredSubmission(&models.IngestPayload{
			FormID:       "contact-us",
			SubmissionID: fmt.Sprintf("sub_%d", i),
			Data:         map[string]interface{}{"n": float64(i)},
		}, base.Add(time.Duration(i)*time.Millisecond))
		require.NoError(t, client.Insert(ctx, "postpipe", "contact-us", doc))
	}
	require.NoError(t, client.Insert(ctx, "other", "contact-us",
		models.NewStoredSubmission(&models.IngestPayload{SubmissionID: "elsewhere"}, base.Add(time.Hour))))

	results, err := client.Find(ctx, "postpipe", "contact-us", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "sub_4", results[0].SubmissionID)
	assert.Equal(t, "sub_3", results[1].SubmissionID)
	assert.Equal(t, float64(4), results[0].Data["n"])
	assert.True(t, results[0].ReceivedAt.After(results[1].ReceivedAt))

	require.NoError(t, client.Ping(ctx))
}

func TestStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persist.db")

	first, err := Open(ctx, "sqlite://"+path)
	require.NoError(t, err)
	require.NoError(t, first.Insert(ctx, "db", "f",
		models.NewStoredSubmission(&models.IngestPayload{SubmissionID: "kept"}, time.Now())))
	require.NoError(t, first.Close(ctx))

	second, err := Open(ctx, "sqlite://"+path)
	require.NoError(t, err)
	defer second.Close(ctx)

	results, err := second.Find(ctx, "db", "f", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "kept", results[0].SubmissionID)
}
