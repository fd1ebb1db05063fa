// Package workers contains the asynchronous click-archiving pipeline.
// The redirect handler enqueues archive rows on a buffered channel; the
// workers drain it into the repository so redirects never wait on storage.
package workers

import (
	"log/slog"
	"sync"

	"github.com/axellelanca/shortlink/internal/models"
	"github.com/axellelanca/shortlink/internal/repository"
)

// StartClickWorkers launches a pool of worker goroutines that drain the
// clicks channel into the archive. The returned WaitGroup is done once every
// worker has exited, which happens when the channel is closed and drained;
// callers close the channel during shutdown and Wait on it.
func StartClickWorkers(workerCount int, clicks <-chan models.Click, clickRepo repository.ClickRepository) *sync.WaitGroup {
	slog.Info("Starting click workers", "count", workerCount)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clickWorker(clicks, clickRepo)
		}()
	}
	return &wg
}

// clickWorker processes archive rows one at a time until the channel closes.
// A failed insert is logged and skipped: losing an archive row must never
// stall the pipeline, the registry's own counters stay authoritative.
func clickWorker(clicks <-chan models.Click, clickRepo repository.ClickRepository) {
	for click := range clicks {
		if err := clickRepo.CreateClick(&click); err != nil {
			slog.Error("Failed to archive click",
				"short_code", click.ShortCode, "link_id", click.LinkID, "error", err)
			continue
		}
		slog.Debug("Click archived", "short_code", click.ShortCode, "link_id", click.LinkID)
	}
}
