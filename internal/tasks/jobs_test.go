package tasks

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"apicourse/internal/storage"
	storeMocks "apicourse/internal/storage/mocks"
)

func runJob(t *testing.T, job Job) (any, error) {
	t.Helper()
	m := NewManager(1, 1, zerolog.Nop())
	defer m.Shutdown(context.Background())
	return job(context.Background(), &Progress{m: m, id: "task-1"})
}

func TestEmailJob(t *testing.T) {
	res, err := runJob(t, EmailJob(EmailRequest{To: "a@example.com", Subject: "Hi"}, 0))
	require.NoError(t, err)
	out := res.(map[string]any)
	assert.Equal(t, "a@example.com", out["to"])
	assert.Equal(t, "Email sent successfully", out["message"])
}

func TestEmailJob_Cancelled(t *testing.T) {
	m := NewManager(1, 1, zerolog.Nop())
	defer m.Shutdown(context.Background())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := EmailJob(EmailRequest{}, time.Hour)(ctx, &Progress{m: m, id: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileJob(t *testing.T) {
	ctx := context.Background()

	t.Run("missing object", func(t *testing.T) {
		st := new(storeMocks.MockStorage)
		st.On("Stat", ctx, "uploads/a.png").Return(storage.ObjectInfo{}, storage.ErrObjectNotFound)

		_, err := runJob(t, FileJob(st, FileRequest{FilePath: "uploads/a.png", Operation: "resize"}, 0))
		assert.EqualError(t, err, "file not found: uploads/a.png")
	})

	t.Run("unknown operation", func(t *testing.T) {
		_, err := runJob(t, FileJob(nil, FileRequest{FilePath: "x", Operation: "melt"}, 0))
		assert.EqualError(t, err, "unknown operation: melt")
	})

	t.Run("compress", func(t *testing.T) {
		st := new(storeMocks.MockStorage)
		st.On("Stat", ctx, "uploads/a.txt").Return(storage.ObjectInfo{Key: "uploads/a.txt", Size: 42}, nil)

		res, err := runJob(t, FileJob(st, FileRequest{FilePath: "uploads/a.txt", Operation: "compress"}, 0))
		require.NoError(t, err)
		out := res.(map[string]any)
		assert.Equal(t, int64(42), out["size"])
		assert.Equal(t, "compress", out["operation"])
		st.AssertExpectations(t)
	})
}

func TestReportJob(t *testing.T) {
	ctx := context.Background()
	st := new(storeMocks.MockStorage)
	st.On("Put", ctx, "reports/report_task-1.csv", mock.Anything, mock.MatchedBy(func(o storage.PutObjectOptions) bool {
		return o.ContentType == "text/plain" && o.Size > 0
	})).Return(func(_ context.Context, key string, r io.Reader, _ storage.PutObjectOptions) storage.ObjectInfo {
		b, _ := io.ReadAll(r)
		assert.True(t, strings.HasPrefix(string(b), "Generated report for sales"))
		return storage.ObjectInfo{Key: key}
	}, nil)
	st.On("PresignGet", ctx, "reports/report_task-1.csv", reportLinkTTL).Return("https://files.local/r1?sig=x", nil)

	res, err := runJob(t, ReportJob(st, ReportRequest{
		ReportType: "sales",
		DateRange:  map[string]string{"start": "2024-01-01", "end": "2024-01-31"},
		Format:     "csv",
	}, 0))
	require.NoError(t, err)
	assert.Equal(t, "reports/report_task-1.csv", res.(map[string]any)["file_path"])
	assert.Equal(t, "https://files.local/r1?sig=x", res.(map[string]any)["download_url"])
	st.AssertExpectations(t)

	_, err = runJob(t, ReportJob(nil, ReportRequest{ReportType: "x"}, 0))
	assert.Error(t, err)
}

type purger struct {
	n   int64
	err error
}

func (p purger) PurgeExpiredAPIKeys(context.Context) (int64, error) { return p.n, p.err }

func TestCleanupJob(t *testing.T) {
	m := NewManager(1, 1, zerolog.Nop())
	defer m.Shutdown(context.Background())
	old := time.Now().Add(-48 * time.Hour)
	id := m.Track("email", nil).ID
	m.update(id, func(t *Task) { t.Status = StatusCompleted; t.CompletedAt = &old })

	res, err := CleanupJob(purger{n: 3}, m, 24*time.Hour, 0)(context.Background(), &Progress{m: m, id: "c"})
	require.NoError(t, err)
	out := res.(map[string]any)
	assert.Equal(t, int64(3), out["api_keys_removed"])
	assert.Equal(t, 1, out["tasks_pruned"])
	assert.Equal(t, int64(4), out["records_cleaned"])

	_, err = CleanupJob(purger{err: errors.New("db down")}, m, time.Hour, 0)(context.Background(), &Progress{m: m, id: "c"})
	assert.ErrorContains(t, err, "db down")
}
