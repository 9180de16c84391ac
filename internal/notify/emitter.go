package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Emitter доставляет уведомление во внешнюю систему.
type Emitter interface {
	Emit(ctx context.Context, env Envelope) error
}

// LogEmitter пишет уведомления в журнал. Используется, когда внешние каналы не настроены.
type LogEmitter struct {
	logger *zap.Logger
}

// NewLogEmitter создаёт эмиттер, пишущий в указанный логгер.
func NewLogEmitter(logger *zap.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// Emit записывает уведомление в журнал.
func (l *LogEmitter) Emit(_ context.Context, env Envelope) error {
	l.logger.Info("notification",
		zap.String("id", env.ID.String()),
		zap.String("kind", string(env.Kind)),
		zap.Int64("recipientID", env.RecipientID),
		zap.Time("occurredAt", env.OccurredAt),
	)
	return nil
}

// Multi рассылает уведомление во все эмиттеры и объединяет их ошибки.
type Multi []Emitter

// Emit отправляет уведомление каждому эмиттеру, даже если предыдущий вернул ошибку.
func (m Multi) Emit(ctx context.Context, env Envelope) error {
	var errs []error
	for _, e := range m {
		if err := e.Emit(ctx, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
