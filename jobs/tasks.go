package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/airportops/assetapi/internal/auth"
	jobmetrics "github.com/airportops/assetapi/internal/jobs"
	"github.com/airportops/assetapi/internal/platform/httpx"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRecordLogin stamps a principal's last successful login.
	TaskRecordLogin = "auth:record_login"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// NewRecordLoginTask constructs an Asynq task for event.
func NewRecordLoginTask(event auth.LoginEvent) (*asynq.Task, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecordLogin, data), nil
}

// RecordLoginJob writes queued login events to the credential store.
type RecordLoginJob struct {
	Repo    auth.Repository
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes TaskRecordLogin tasks. Events for principals deleted since
// login are dropped without retry.
func (j *RecordLoginJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Repo == nil {
		return errors.New("record login: handler not configured")
	}
	var event auth.LoginEvent
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		return fmt.Errorf("record login: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if event.PrincipalID <= 0 || event.At.IsZero() {
		return fmt.Errorf("record login: incomplete event: %w", asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskRecordLogin)
	defer func() {
		err = tracker.End(err)
	}()

	if err := j.Repo.RecordLogin(ctx, event.PrincipalID, event.At); err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			j.logger().Info("principal gone, dropping login event", slog.Int64("principal_id", event.PrincipalID))
			return nil
		}
		j.logger().Error("record login", slog.Any("error", err), slog.Int64("principal_id", event.PrincipalID))
		return err
	}
	j.logger().Debug("login recorded", slog.Int64("principal_id", event.PrincipalID))
	return nil
}

func (j *RecordLoginJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskRecordLogin))
	}
	return slog.Default().With(slog.String("job", TaskRecordLogin))
}

func (j *RecordLoginJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
