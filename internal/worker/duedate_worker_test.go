package worker_test

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"taskManager/internal/logger"
	"taskManager/internal/worker"
)

func TestMain(m *testing.M) {
	logger.Init(true)
	os.Exit(m.Run())
}

type fakeChecker struct {
	calls   atomic.Int64
	created int
	err     error
}

func (f *fakeChecker) CheckDueDates(ctx context.Context) (int, error) {
	f.calls.Add(1)
	return f.created, f.err
}

func TestDueDateWorker_Check(t *testing.T) {
	checker := &fakeChecker{created: 2}
	w := worker.NewDueDateWorker(checker, time.Hour)

	w.Check(context.Background())

	assert.Equal(t, int64(1), checker.calls.Load())
}

func TestDueDateWorker_CheckError(t *testing.T) {
	checker := &fakeChecker{err: errors.New("хранилище недоступно")}
	w := worker.NewDueDateWorker(checker, time.Hour)

	// ошибка логируется, но не роняет воркер
	w.Check(context.Background())

	assert.Equal(t, int64(1), checker.calls.Load())
}

func TestDueDateWorker_StartStopsOnCancel(t *testing.T) {
	checker := &fakeChecker{}
	w := worker.NewDueDateWorker(checker, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("воркер не остановился после отмены контекста")
	}

	assert.Greater(t, checker.calls.Load(), int64(0))
}
