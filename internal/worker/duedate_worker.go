package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"taskManager/internal/logger"
)

// DueDateChecker - то, что умеет диспетчер уведомлений: проверить дедлайны
// и создать напоминания.
type DueDateChecker interface {
	CheckDueDates(ctx context.Context) (int, error)
}

// DueDateWorker периодически запускает проверку приближающихся дедлайнов
// на сервере. Раньше проверку дёргал клиентский таймер в браузере - теперь
// она не зависит от открытой вкладки.
type DueDateWorker struct {
	checker  DueDateChecker
	interval time.Duration
}

func NewDueDateWorker(checker DueDateChecker, interval time.Duration) *DueDateWorker {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &DueDateWorker{
		checker:  checker,
		interval: interval,
	}
}

func (w *DueDateWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logger.Info("Worker: Фоновая проверка дедлайнов", zap.Time("started_at", time.Now()))
			w.Check(ctx)
		case <-ctx.Done():
			logger.Info("Worker: Фоновая проверка останавливается")
			return
		}
	}
}

func (w *DueDateWorker) Check(ctx context.Context) {
	start := time.Now()

	created, err := w.checker.CheckDueDates(ctx)
	if err != nil {
		logger.Warn("Worker: Ошибка проверки дедлайнов", zap.Error(err))
		return
	}

	logger.Info("Worker: Завершение проверки дедлайнов",
		zap.Duration("ms", time.Since(start)),
		zap.Int("notifications", created),
	)
}
