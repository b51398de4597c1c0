package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ogurasousui/resignation-grpc-clean-arch/internal/core/resignation"
	"go.uber.org/zap"
)

// ErrDispatcherRunning は Start を二重に呼び出した場合に返されます。
var ErrDispatcherRunning = errors.New("notification: dispatcher already running")

// DefaultSendTimeout は 1 通あたりの送信タイムアウトです。
const DefaultSendTimeout = 30 * time.Second

// Dispatcher は通知をキューに積み、ワーカーで非同期に送信する resignation.Notifier 実装です。
// キューが満杯の場合や停止後の通知は破棄され、ログに記録されます。
type Dispatcher struct {
	sender      Sender
	book        *AddressBook
	logger      *zap.Logger
	workers     int
	sendTimeout time.Duration

	mu      sync.RWMutex
	queue   chan resignation.Notice
	running bool
	closed  bool
	wg      sync.WaitGroup

	sent    atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

// DispatcherOption は Dispatcher の設定を変更します。
type DispatcherOption func(*Dispatcher)

// WithSendTimeout は 1 通あたりの送信タイムアウトを設定します。
func WithSendTimeout(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.sendTimeout = d
		}
	}
}

// NewDispatcher は Dispatcher を生成します。Start を呼ぶまで送信は行われません。
func NewDispatcher(sender Sender, book *AddressBook, queueSize, workers int, logger *zap.Logger, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	if workers <= 0 {
		workers = 1
	}
	d := &Dispatcher{
		sender:      sender,
		book:        book,
		logger:      logger,
		workers:     workers,
		sendTimeout: DefaultSendTimeout,
		queue:       make(chan resignation.Notice, queueSize),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Start はワーカーを起動します。
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return fmt.Errorf("notification: dispatcher is closed")
	}
	if d.running {
		return ErrDispatcherRunning
	}
	d.running = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(i)
	}

	d.logger.Info("notification dispatcher started",
		zap.Int("workers", d.workers),
		zap.Int("queue_size", cap(d.queue)))
	return nil
}

// Notify は通知をキューに積みます。呼び出し元をブロックせず、失敗も返しません。
// リクエストのコンテキストは送信に引き継ぎません。
func (d *Dispatcher) Notify(_ context.Context, notice resignation.Notice) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		d.logger.Warn("notification dropped: dispatcher closed", zap.String("subject", notice.Subject))
		return
	}

	select {
	case d.queue <- notice:
	default:
		d.dropped.Add(1)
		d.logger.Warn("notification dropped: queue full",
			zap.String("subject", notice.Subject),
			zap.Int("queue_size", cap(d.queue)))
	}
}

// Close は新規通知の受付を止め、キューに残った通知を送信し終えるか ctx が終了するまで待ちます。
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	running := d.running
	d.mu.Unlock()

	if !running {
		if n := len(d.queue); n > 0 {
			d.dropped.Add(int64(n))
			d.logger.Warn("notification dispatcher closed before start", zap.Int("discarded", n))
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("notification dispatcher stopped",
			zap.Int64("sent", d.sent.Load()),
			zap.Int64("failed", d.failed.Load()),
			zap.Int64("dropped", d.dropped.Load()))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notification: wait for workers: %w", ctx.Err())
	}
}

// Stats は送信成功・失敗・破棄の件数を返します。
func (d *Dispatcher) Stats() (sent, failed, dropped int64) {
	return d.sent.Load(), d.failed.Load(), d.dropped.Load()
}

func (d *Dispatcher) work(id int) {
	defer d.wg.Done()

	for notice := range d.queue {
		d.deliver(id, notice)
	}
}

func (d *Dispatcher) deliver(worker int, notice resignation.Notice) {
	defer func() {
		if r := recover(); r != nil {
			d.failed.Add(1)
			d.logger.Error("notification sender panicked",
				zap.Int("worker", worker),
				zap.String("subject", notice.Subject),
				zap.Any("panic", r))
		}
	}()

	to, err := d.book.Resolve(notice.Recipient)
	if err != nil {
		d.failed.Add(1)
		d.logger.Warn("notification skipped",
			zap.String("recipient", notice.Recipient),
			zap.String("subject", notice.Subject),
			zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	if err := d.sender.Send(ctx, Message{To: to, Subject: notice.Subject, HTMLBody: notice.Body}); err != nil {
		d.failed.Add(1)
		d.logger.Error("notification send failed",
			zap.Int("worker", worker),
			zap.String("to", to),
			zap.String("subject", notice.Subject),
			zap.Error(err))
		return
	}

	d.sent.Add(1)
	d.logger.Debug("notification sent",
		zap.Int("worker", worker),
		zap.String("to", to),
		zap.String("subject", notice.Subject))
}

var _ resignation.Notifier = (*Dispatcher)(nil)
