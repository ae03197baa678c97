package metrics

import (
	"context"
	"log"
	"time"
)

type eventCounter interface {
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// StartDBCollector периодически снимает количество сохраненных событий по
// статусам в gauge webhook_events_count.
func StartDBCollector(ctx context.Context, repo eventCounter, interval time.Duration, logger *log.Logger) {
	if repo == nil {
		return
	}
	if logger == nil {
		logger = log.Default()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		updateEventGauges(ctx, repo, logger)
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				updateEventGauges(ctx, repo, logger)
			}
		}
	}()
}

func updateEventGauges(ctx context.Context, repo eventCounter, logger *log.Logger) {
	counts, err := repo.CountByStatus(ctx)
	if err != nil {
		// таблицы может еще не быть или БД лежит - просто пропускаем тик
		logger.Printf("metrics db query webhook_events: %v", err)
		return
	}
	for status, cnt := range counts {
		SetEventsByStatus(status, cnt)
	}
}
