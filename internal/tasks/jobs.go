package tasks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"apicourse/internal/storage"
)

// EmailRequest is the payload of an email job.
type EmailRequest struct {
	To      string   `json:"to" validate:"required,email"`
	Subject string   `json:"subject" validate:"required,max=200"`
	Body    string   `json:"body" validate:"required"`
	CC      []string `json:"cc" validate:"omitempty,dive,email"`
	BCC     []string `json:"bcc" validate:"omitempty,dive,email"`
}

// FileRequest asks for an operation on an object already in storage.
type FileRequest struct {
	FilePath   string         `json:"file_path" validate:"required"`
	Operation  string         `json:"operation" validate:"required,oneof=resize convert compress"`
	Parameters map[string]any `json:"parameters"`
}

// ReportRequest describes a report to render into storage.
type ReportRequest struct {
	ReportType    string            `json:"report_type" validate:"required"`
	DateRange     map[string]string `json:"date_range" validate:"required"`
	Format        string            `json:"format" validate:"omitempty,oneof=pdf csv txt json"`
	IncludeCharts *bool             `json:"include_charts"`
}

// sleep waits for d unless ctx ends first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// steps sleeps once per stage, publishing each progress value after the pause.
func steps(ctx context.Context, p *Progress, delay time.Duration, stages ...float64) error {
	for _, s := range stages {
		if err := sleep(ctx, delay); err != nil {
			return err
		}
		p.Set(s)
	}
	return nil
}

func stamp() string { return time.Now().UTC().Format(time.RFC3339) }

// EmailJob simulates composing and sending a message.
func EmailJob(req EmailRequest, delay time.Duration) Job {
	return func(ctx context.Context, p *Progress) (any, error) {
		p.Set(0.1)
		if err := steps(ctx, p, delay, 0.3, 0.6, 0.9); err != nil {
			return nil, err
		}
		return map[string]any{
			"message": "Email sent successfully",
			"to":      req.To,
			"subject": req.Subject,
			"sent_at": stamp(),
		}, nil
	}
}

// NotificationJob simulates a single short notification send.
func NotificationJob(email, message string, delay time.Duration) Job {
	return func(ctx context.Context, p *Progress) (any, error) {
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
		return map[string]any{"email": email, "message": message, "sent_at": stamp()}, nil
	}
}

var operationStages = map[string][]float64{
	"resize":   {0.3, 0.5, 0.7, 0.9},
	"convert":  {0.4, 0.6, 0.8, 1.0},
	"compress": {0.25, 0.5, 0.75, 1.0},
}

// FileJob checks that the object exists and then runs the operation's stages.
// A nil store skips the existence check.
func FileJob(store storage.Storage, req FileRequest, delay time.Duration) Job {
	return func(ctx context.Context, p *Progress) (any, error) {
		p.Set(0.1)
		stages, ok := operationStages[req.Operation]
		if !ok {
			return nil, fmt.Errorf("unknown operation: %s", req.Operation)
		}
		var size int64
		if store != nil {
			info, err := store.Stat(ctx, req.FilePath)
			if errors.Is(err, storage.ErrObjectNotFound) {
				return nil, fmt.Errorf("file not found: %s", req.FilePath)
			}
			if err != nil {
				return nil, fmt.Errorf("stat %s: %w", req.FilePath, err)
			}
			size = info.Size
		}
		p.Set(0.2)
		if err := steps(ctx, p, delay, stages...); err != nil {
			return nil, err
		}
		params := req.Parameters
		if params == nil {
			params = map[string]any{}
		}
		return map[string]any{
			"operation":    req.Operation,
			"file_path":    req.FilePath,
			"size":         size,
			"parameters":   params,
			"processed_at": stamp(),
		}, nil
	}
}

// reportLinkTTL is how long a report download link stays valid.
const reportLinkTTL = 24 * time.Hour

// ReportJob renders a small text report and stores it under reports/.
func ReportJob(store storage.Storage, req ReportRequest, delay time.Duration) Job {
	return func(ctx context.Context, p *Progress) (any, error) {
		format := req.Format
		if format == "" {
			format = "pdf"
		}
		p.Set(0.1)
		if err := steps(ctx, p, delay, 0.3, 0.6, 0.9); err != nil {
			return nil, err
		}
		if store == nil {
			return nil, errors.New("object storage is not configured")
		}

		var buf bytes.Buffer
		fmt.Fprintf(&buf, "Generated report for %s\n", req.ReportType)
		fmt.Fprintf(&buf, "Date range: %s to %s\n", req.DateRange["start"], req.DateRange["end"])
		fmt.Fprintf(&buf, "Generated at: %s\n", stamp())

		key := fmt.Sprintf("reports/report_%s.%s", p.TaskID(), format)
		info, err := store.Put(ctx, key, &buf, storage.PutObjectOptions{
			Size:        int64(buf.Len()),
			ContentType: "text/plain",
			Metadata:    map[string]string{"report-type": req.ReportType},
		})
		if err != nil {
			return nil, fmt.Errorf("store report: %w", err)
		}
		out := map[string]any{
			"report_type":  req.ReportType,
			"file_path":    info.Key,
			"format":       format,
			"date_range":   req.DateRange,
			"generated_at": stamp(),
		}
		// A missing link is not fatal; the report is stored either way.
		if link, err := store.PresignGet(ctx, info.Key, reportLinkTTL); err == nil {
			out["download_url"] = link
		}
		return out, nil
	}
}

// KeyPurger removes expired API keys.
type KeyPurger interface {
	PurgeExpiredAPIKeys(ctx context.Context) (int64, error)
}

// CleanupJob purges expired API keys and finished tasks past retention.
// keys may be nil when no database is wired.
func CleanupJob(keys KeyPurger, m *Manager, retention, delay time.Duration) Job {
	return func(ctx context.Context, p *Progress) (any, error) {
		p.Set(0.1)
		var done []string
		var purged int64
		if keys != nil {
			n, err := keys.PurgeExpiredAPIKeys(ctx)
			if err != nil {
				return nil, fmt.Errorf("purge api keys: %w", err)
			}
			purged = n
			done = append(done, "Removed expired API keys")
		}
		if err := steps(ctx, p, delay, 0.5); err != nil {
			return nil, err
		}
		pruned := m.Prune(retention)
		done = append(done, "Pruned finished tasks")
		if err := steps(ctx, p, delay, 0.9); err != nil {
			return nil, err
		}
		return map[string]any{
			"operations_completed": done,
			"api_keys_removed":     purged,
			"tasks_pruned":         pruned,
			"records_cleaned":      purged + int64(pruned),
			"cleanup_at":           stamp(),
		}, nil
	}
}
