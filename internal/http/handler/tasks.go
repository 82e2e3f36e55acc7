package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	"apicourse/internal/apperr"
	"apicourse/internal/storage"
	"apicourse/internal/tasks"
)

// asyncUnit scales the durations of the concurrent demo operations.
var asyncUnit = time.Second

type notificationQuery struct {
	UserEmail string `query:"user_email" validate:"required,email"`
	Message   string `query:"message" validate:"required"`
}

type taskListQuery struct {
	Status string `query:"status" validate:"omitempty,oneof=pending running completed failed cancelled"`
	Limit  int    `query:"limit" validate:"gte=1,lte=1000"`
}

type batchRequest struct {
	FilePaths []string `json:"file_paths" validate:"required,min=1,dive,required"`
	Operation string   `json:"operation" validate:"required,oneof=resize convert compress"`
}

// TaskRoutes queues work on the background task manager.
type TaskRoutes struct {
	manager   *tasks.Manager
	scheduler *tasks.Scheduler
	store     storage.Storage
	purger    tasks.KeyPurger
	delay     time.Duration
	retention time.Duration
}

func registerTasks(r fiber.Router, d *Deps) error {
	if d.Tasks == nil {
		return missing("task manager")
	}
	h := &TaskRoutes{
		manager:   d.Tasks,
		scheduler: d.Scheduler,
		store:     d.Storage,
		delay:     time.Duration(d.Config.Tasks.StepDelayMs) * time.Millisecond,
		retention: time.Duration(d.Config.Tasks.RetentionHours) * time.Hour,
	}
	if d.Users != nil {
		h.purger = d.Users
	}
	if h.retention <= 0 {
		h.retention = 24 * time.Hour
	}
	r.Post("/send-email", h.SendEmail)
	r.Post("/send-notification", h.SendNotification)
	r.Post("/process-file", h.ProcessFile)
	r.Post("/generate-report", h.GenerateReport)
	r.Post("/cleanup-database", h.Cleanup)
	r.Post("/batch-process", h.BatchProcess)
	r.Get("/task-status/:task_id", h.Status)
	r.Get("/tasks", h.List)
	r.Delete("/task/:task_id", h.Remove)
	r.Get("/async-demo", AsyncDemo)
	r.Get("/health", h.Health)
	return nil
}

func (h *TaskRoutes) SendEmail(c *fiber.Ctx) error {
	var req tasks.EmailRequest
	if err := bindBody(c, &req); err != nil {
		return fail(c, err)
	}
	t, err := h.manager.Submit("email", map[string]any{"type": "email", "to": req.To}, tasks.EmailJob(req, h.delay))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Email sending started",
		"task_id": t.ID,
		"status":  "queued",
	})
}

func (h *TaskRoutes) SendNotification(c *fiber.Ctx) error {
	var q notificationQuery
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	t, err := h.manager.Submit("notification",
		map[string]any{"type": "notification", "email": q.UserEmail},
		tasks.NotificationJob(q.UserEmail, q.Message, h.delay))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": "Notification queued", "task_id": t.ID})
}

func (h *TaskRoutes) ProcessFile(c *fiber.Ctx) error {
	var req tasks.FileRequest
	if err := bindBody(c, &req); err != nil {
		return fail(c, err)
	}
	t, err := h.manager.Submit("file_processing",
		map[string]any{"type": "file_processing", "operation": req.Operation},
		tasks.FileJob(h.store, req, h.delay))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message":   "File processing started",
		"task_id":   t.ID,
		"operation": req.Operation,
	})
}

func (h *TaskRoutes) GenerateReport(c *fiber.Ctx) error {
	var req tasks.ReportRequest
	if err := bindBody(c, &req); err != nil {
		return fail(c, err)
	}
	t, err := h.manager.Submit("report_generation",
		map[string]any{"type": "report_generation", "report_type": req.ReportType},
		tasks.ReportJob(h.store, req, h.delay))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message":     "Report generation started",
		"task_id":     t.ID,
		"report_type": req.ReportType,
	})
}

func (h *TaskRoutes) Cleanup(c *fiber.Ctx) error {
	t, err := h.manager.Submit("database_cleanup",
		map[string]any{"type": "database_cleanup"},
		tasks.CleanupJob(h.purger, h.manager, h.retention, h.delay))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": "Database cleanup started", "task_id": t.ID})
}

// BatchProcess queues one task per file plus an untracked record tying them together.
func (h *TaskRoutes) BatchProcess(c *fiber.Ctx) error {
	var req batchRequest
	if err := bindBody(c, &req); err != nil {
		return fail(c, err)
	}
	batch := h.manager.Track("batch_processing", map[string]any{
		"type":        "batch_processing",
		"total_files": len(req.FilePaths),
	})
	ids := make([]string, 0, len(req.FilePaths))
	for _, fp := range req.FilePaths {
		t, err := h.manager.Submit("file_processing",
			map[string]any{"type": "file_processing", "batch_id": batch.ID},
			tasks.FileJob(h.store, tasks.FileRequest{FilePath: fp, Operation: req.Operation}, h.delay))
		if err != nil {
			return fail(c, err)
		}
		ids = append(ids, t.ID)
	}
	h.manager.Annotate(batch.ID, "individual_tasks", ids)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message":          "Batch processing started",
		"batch_task_id":    batch.ID,
		"individual_tasks": ids,
		"total_files":      len(req.FilePaths),
	})
}

func (h *TaskRoutes) Status(c *fiber.Ctx) error {
	id := c.Params("task_id")
	t, ok := h.manager.Get(id)
	if !ok {
		return fail(c, apperr.New(fiber.StatusNotFound, "TASK_NOT_FOUND", fmt.Sprintf("task %s not found", id)))
	}
	return c.JSON(t)
}

func (h *TaskRoutes) List(c *fiber.Ctx) error {
	q := taskListQuery{Limit: 50}
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	list, total := h.manager.List(tasks.Status(q.Status), q.Limit)
	out := make([]fiber.Map, 0, len(list))
	for _, t := range list {
		out = append(out, fiber.Map{
			"task_id":    t.ID,
			"status":     t.Status,
			"progress":   t.Progress,
			"created_at": t.CreatedAt,
			"metadata":   t.Metadata,
		})
	}
	return c.JSON(fiber.Map{"tasks": out, "total": total, "filtered": len(out)})
}

// Remove cancels a pending task or drops a finished one. Running tasks are left alone.
func (h *TaskRoutes) Remove(c *fiber.Ctx) error {
	id := c.Params("task_id")
	prev, err := h.manager.Remove(id)
	if err != nil {
		return fail(c, err)
	}
	msg := fmt.Sprintf("Task %s removed", id)
	if prev == tasks.StatusPending {
		msg = fmt.Sprintf("Task %s cancelled and removed", id)
	}
	return c.JSON(fiber.Map{"message": msg, "previous_status": prev})
}

func (h *TaskRoutes) Health(c *fiber.Ctx) error {
	res := fiber.Map{
		"status":           "healthy",
		"timestamp":        time.Now().UTC(),
		"task_statistics":  h.manager.Stats(),
		"scheduler_active": false,
	}
	if h.scheduler != nil {
		res["scheduler_active"] = h.scheduler.Active()
		res["scheduled_jobs"] = h.scheduler.Entries()
	}
	return c.JSON(res)
}

func slowOperation(ctx context.Context, name string, d time.Duration) (string, error) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-t.C:
	}
	return fmt.Sprintf("%s completed in %g seconds", name, d.Seconds()/asyncUnit.Seconds()), nil
}

// AsyncDemo runs three operations concurrently and waits for all of them.
func AsyncDemo(c *fiber.Ctx) error {
	ops := []struct {
		name string
		d    time.Duration
	}{
		{"Task 1", asyncUnit},
		{"Task 2", 2 * asyncUnit},
		{"Task 3", asyncUnit / 2},
	}
	results := make([]string, len(ops))
	start := time.Now()
	g, ctx := errgroup.WithContext(c.UserContext())
	for i, op := range ops {
		g.Go(func() error {
			res, err := slowOperation(ctx, op.name, op.d)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"message":    "All async operations completed",
		"results":    results,
		"total_time": time.Since(start).Round(time.Millisecond).String(),
	})
}
