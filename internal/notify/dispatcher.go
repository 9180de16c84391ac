package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBuffer   = 256
	emitTimeout     = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Dispatcher асинхронно доставляет уведомления через Emitter.
// Notify никогда не блокирует вызывающего и не возвращает ошибок: сбои доставки
// пишутся в журнал и не влияют на уже зафиксированные операции.
type Dispatcher struct {
	emitter Emitter
	logger  *zap.Logger
	queue   chan Envelope
	now     func() time.Time
}

// NewDispatcher создаёт диспетчер с очередью заданного размера.
func NewDispatcher(emitter Emitter, logger *zap.Logger, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Dispatcher{
		emitter: emitter,
		logger:  logger,
		queue:   make(chan Envelope, buffer),
		now:     time.Now,
	}
}

// Notify ставит событие в очередь. При переполнении событие отбрасывается.
func (d *Dispatcher) Notify(_ context.Context, ev Event) {
	env := NewEnvelope(ev, d.now())
	select {
	case d.queue <- env:
	default:
		d.logger.Warn("notification queue is full, dropping event",
			zap.String("kind", string(env.Kind)),
			zap.Int64("recipientID", env.RecipientID),
		)
	}
}

// Run доставляет события до отмены контекста, затем досылает оставшиеся в очереди.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case env := <-d.queue:
			d.deliver(ctx, env)
		}
	}
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for {
		select {
		case env := <-d.queue:
			d.deliver(ctx, env)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, env Envelope) {
	ctx, cancel := context.WithTimeout(ctx, emitTimeout)
	defer cancel()

	if err := d.emitter.Emit(ctx, env); err != nil {
		d.logger.Warn("notification delivery failed",
			zap.Error(err),
			zap.String("id", env.ID.String()),
			zap.String("kind", string(env.Kind)),
			zap.Int64("recipientID", env.RecipientID),
		)
	}
}
