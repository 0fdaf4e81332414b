// README: Asynq producer; Notify enqueues and returns without waiting for delivery.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"localpro/internal/infra"
	"localpro/internal/types"
)

const (
	TypeSend  = "notification:send"
	QueueName = "notifications"
)

// Enqueuer is the subset of *asynq.Client the queue needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Queue struct {
	client   Enqueuer
	maxRetry int
	log      *zap.Logger
}

func NewQueue(client Enqueuer, maxRetry int, log *zap.Logger) *Queue {
	if log == nil {
		log = zap.NewNop()
	}
	if maxRetry <= 0 {
		maxRetry = 3
	}
	return &Queue{client: client, maxRetry: maxRetry, log: log}
}

func NewSendTask(msg Message) (*asynq.Task, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSend, b), nil
}

func (q *Queue) Notify(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if msg.ID == "" {
		msg.ID = types.NewID()
	}
	task, err := NewSendTask(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	info, err := q.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueName),
		asynq.MaxRetry(q.maxRetry),
		asynq.TaskID(string(msg.ID)),
	)
	if err != nil {
		infra.Notifications.WithLabelValues("enqueue_failed").Inc()
		return fmt.Errorf("enqueue notification: %w", err)
	}
	infra.Notifications.WithLabelValues("enqueued").Inc()
	q.log.Debug("notification enqueued",
		zap.String("task_id", info.ID),
		zap.String("user_id", string(msg.UserID)),
		zap.String("category", string(msg.Category)),
	)
	return nil
}
