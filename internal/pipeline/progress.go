package pipeline

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Observer receives state transitions. Region callbacks arrive from worker
// goroutines and must be safe for concurrent use.
type Observer interface {
	OnPageState(pageID string, state State)
	OnRegionState(pageID string, region int, state State)
}

// NopObserver ignores all events.
type NopObserver struct{}

func (NopObserver) OnPageState(string, State)        {}
func (NopObserver) OnRegionState(string, int, State) {}

// LogObserver writes transitions to slog at debug level.
type LogObserver struct{}

func (LogObserver) OnPageState(pageID string, state State) {
	slog.Debug("Page state", "page_id", pageID, "state", state)
}

func (LogObserver) OnRegionState(pageID string, region int, state State) {
	slog.Debug("Region state", "page_id", pageID, "region", region, "state", state)
}

// ProgressCallback reports progress over a sequence of pages, such as a volume.
type ProgressCallback interface {
	OnStart(total int)
	OnProgress(current, total int)
	OnComplete()
	OnError(current int, err error)
}

// NoOpProgressCallback implements ProgressCallback but does nothing.
type NoOpProgressCallback struct{}

func (NoOpProgressCallback) OnStart(int)         {}
func (NoOpProgressCallback) OnProgress(int, int) {}
func (NoOpProgressCallback) OnComplete()         {}
func (NoOpProgressCallback) OnError(int, error)  {}

// ConsoleProgressCallback prints a progress bar to a writer.
type ConsoleProgressCallback struct {
	writer         io.Writer
	prefix         string
	width          int
	updateInterval time.Duration

	mutex      sync.Mutex
	lastUpdate time.Time
	startTime  time.Time
}

// NewConsoleProgressCallback creates a console reporter writing to w (stderr when nil).
func NewConsoleProgressCallback(w io.Writer, prefix string) *ConsoleProgressCallback {
	if w == nil {
		w = os.Stderr
	}
	return &ConsoleProgressCallback{
		writer:         w,
		prefix:         prefix,
		width:          40,
		updateInterval: 100 * time.Millisecond,
	}
}

func (c *ConsoleProgressCallback) OnStart(total int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.startTime = time.Now()
	c.lastUpdate = time.Time{}
	_, _ = fmt.Fprintf(c.writer, "%s0/%d pages\n", c.prefix, total)
}

func (c *ConsoleProgressCallback) OnProgress(current, total int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	if now.Sub(c.lastUpdate) < c.updateInterval && current < total {
		return
	}
	c.lastUpdate = now

	filled := 0
	if total > 0 {
		filled = c.width * current / total
	}
	bar := make([]byte, c.width)
	for i := range bar {
		if i < filled {
			bar[i] = '='
		} else {
			bar[i] = ' '
		}
	}
	_, _ = fmt.Fprintf(c.writer, "\r%s[%s] %d/%d", c.prefix, bar, current, total)
}

func (c *ConsoleProgressCallback) OnComplete() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	_, _ = fmt.Fprintf(c.writer, "\n%sCompleted in %v\n", c.prefix, time.Since(c.startTime).Round(time.Millisecond))
}

func (c *ConsoleProgressCallback) OnError(current int, err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	_, _ = fmt.Fprintf(c.writer, "\n%sError at page %d: %v\n", c.prefix, current, err)
}
