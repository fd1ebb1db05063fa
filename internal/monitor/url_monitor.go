package monitor

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/axellelanca/shortlink/internal/registry"
)

// URLMonitor manages periodic monitoring of long URLs to check their
// accessibility. It maintains a state map to detect status changes and logs
// a notification when a URL flips between accessible and inaccessible.
type URLMonitor struct {
	registry    *registry.Registry // Source of the links to check
	interval    time.Duration      // How often to check URLs
	knownStates map[uint]bool      // Previous state per link ID (accessible or not)
	mu          sync.Mutex         // Protects concurrent access to knownStates
	httpClient  *http.Client       // HTTP client for the HEAD probes
}

// NewURLMonitor creates and returns a new URLMonitor instance.
// The interval parameter determines how frequently URLs are checked.
func NewURLMonitor(reg *registry.Registry, interval time.Duration) *URLMonitor {
	return &URLMonitor{
		registry:    reg,
		interval:    interval,
		knownStates: make(map[uint]bool),
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Start launches the periodic URL monitoring loop. It blocks until ctx is
// cancelled, so callers run it in its own goroutine.
func (m *URLMonitor) Start(ctx context.Context) {
	slog.Info("Starting URL monitor", "interval", m.interval)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Execute an immediate check on startup before waiting for the first tick
	m.checkURLs(ctx)

	for {
		select {
		case <-ticker.C:
			m.checkURLs(ctx)
		case <-ctx.Done():
			slog.Info("URL monitor stopped")
			return
		}
	}
}

// checkURLs performs a status check on all non-expired links held by the
// registry. It compares current state with previous state and logs changes.
func (m *URLMonitor) checkURLs(ctx context.Context) {
	now := time.Now()
	for _, link := range m.registry.Links() {
		// Expired links accept no more visits, their targets are not worth
		// probing anymore.
		if link.IsExpired(now) {
			continue
		}

		currentState := m.isURLAccessible(ctx, link.LongURL)

		m.mu.Lock()
		previousState, exists := m.knownStates[link.ID]
		m.knownStates[link.ID] = currentState
		m.mu.Unlock()

		if !exists {
			slog.Info("Initial URL state",
				"short_code", link.ShortCode, "url", link.LongURL, "state", formatState(currentState))
			continue
		}

		if currentState != previousState {
			slog.Warn("URL state changed",
				"short_code", link.ShortCode, "url", link.LongURL,
				"from", formatState(previousState), "to", formatState(currentState))
		}
	}
}

// isURLAccessible performs an HTTP HEAD request to check if a URL responds.
// Returns true for 2xx and 3xx status codes.
func (m *URLMonitor) isURLAccessible(ctx context.Context, url string) bool {
	// Bound each probe so one slow target cannot stall the whole sweep
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, url, nil)
	if err != nil {
		slog.Debug("Error creating monitor request", "url", url, "error", err)
		return false
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		slog.Debug("Error probing URL", "url", url, "error", err)
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 400
}

// formatState converts the boolean accessibility state to a readable label.
func formatState(accessible bool) string {
	if accessible {
		return "ACCESSIBLE"
	}
	return "INACCESSIBLE"
}
