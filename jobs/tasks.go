package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-hr/internal/jobs"
	"github.com/odyssey-erp/odyssey-hr/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeWelcome is enqueued after every successful signup.
	TaskTypeWelcome = "user:welcome"
	// TaskTypeAuditPrune removes audit records past the retention window.
	TaskTypeAuditPrune = "audit:prune"
)

// WelcomePayload identifies the freshly registered account.
type WelcomePayload struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	UserName string `json:"user_name"`
}

// NewWelcomeTask constructs an Asynq task.
func NewWelcomeTask(payload WelcomePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeWelcome, data, asynq.MaxRetry(5), asynq.Timeout(30*time.Second)), nil
}

// AuditStore is the slice of the audit logger used by background jobs.
type AuditStore interface {
	Record(ctx context.Context, log shared.AuditLog) error
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// Tasks holds the collaborators of the task handlers.
type Tasks struct {
	Audit     AuditStore
	Metrics   *jobmetrics.Metrics
	Logger    *slog.Logger
	Retention time.Duration
	Now       func() time.Time
}

// HandleWelcome processes TaskTypeWelcome tasks.
func (t *Tasks) HandleWelcome(ctx context.Context, task *asynq.Task) error {
	tracker := t.Metrics.Track(TaskTypeWelcome)
	var payload WelcomePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		_ = tracker.End(err)
		return fmt.Errorf("decode welcome payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.UserID == "" || payload.Email == "" {
		_ = tracker.End(shared.ErrValidation)
		return fmt.Errorf("welcome payload incomplete: %w", asynq.SkipRetry)
	}
	t.logger().InfoContext(ctx, "welcome notification",
		slog.String("user_id", payload.UserID),
		slog.String("user_name", payload.UserName),
	)
	var err error
	if t.Audit != nil {
		err = t.Audit.Record(ctx, shared.AuditLog{
			ActorID:  payload.UserID,
			Action:   "user.welcome",
			Entity:   "User",
			EntityID: payload.UserID,
			Meta:     map[string]any{"email": payload.Email},
		})
	}
	return tracker.End(err)
}

// HandleAuditPrune processes TaskTypeAuditPrune tasks.
func (t *Tasks) HandleAuditPrune(ctx context.Context, _ *asynq.Task) error {
	tracker := t.Metrics.Track(TaskTypeAuditPrune)
	if t.Audit == nil || t.Retention <= 0 {
		return tracker.End(nil)
	}
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	removed, err := t.Audit.Prune(ctx, now().Add(-t.Retention))
	if err != nil {
		return tracker.End(err)
	}
	t.logger().InfoContext(ctx, "audit log pruned", slog.Int64("removed", removed))
	return tracker.End(nil)
}

// Handlers lists the task handlers for the worker.
func (t *Tasks) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskTypeWelcome, Handler: t.HandleWelcome},
		{Type: TaskTypeAuditPrune, Handler: t.HandleAuditPrune},
	}
}

func (t *Tasks) logger() *slog.Logger {
	if t.Logger == nil {
		return slog.Default()
	}
	return t.Logger
}
