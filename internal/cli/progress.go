package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

// ─── Progress Bar ───────────────────────────────────────────────────────────
// A terminal progress bar for one upload batch, fed by manager events.
// Shows: [============>.................]  42% | 3/7 files | 45.2 MB/s | ETA 35s

const barWidth = 30 // Characters for the progress bar

// batchBar is a presenter that renders batch progress on one line and
// prints a line per finished or rejected file above it.
type batchBar struct {
	mu      sync.Mutex
	out     io.Writer
	now     func() time.Time
	started time.Time
	total   int64 // bytes across accepted files

	sizes    map[string]int64
	finished map[string]bool
	overall  float64
	tty      bool
}

func newBatchBar(out io.Writer, totalBytes int64, tty bool) *batchBar {
	return &batchBar{
		out:      out,
		now:      time.Now,
		started:  time.Now(),
		total:    totalBytes,
		sizes:    make(map[string]int64),
		finished: make(map[string]bool),
		tty:      tty,
	}
}

func (p *batchBar) TaskUpdated(u domain.TaskUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sizes[u.ID] = u.Size
	if u.BatchProgress > p.overall {
		p.overall = u.BatchProgress
	}
	if u.Status.IsTerminal() && !p.finished[u.ID] {
		p.finished[u.ID] = true
		p.clearLine()
		switch u.Status {
		case domain.TaskSucceeded:
			fmt.Fprintf(p.out, "[ok]     %s (%s)\n", u.DisplayName, domain.HumanSize(u.FinalSize))
		case domain.TaskFailed:
			fmt.Fprintf(p.out, "[failed] %s: %s\n", u.DisplayName, u.Error)
		case domain.TaskCancelled:
			fmt.Fprintf(p.out, "[cancel] %s\n", u.DisplayName)
		}
	}
	p.render()
}

func (p *batchBar) FileRejected(r domain.Rejection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearLine()
	fmt.Fprintf(p.out, "[skip]   %s: %s\n", r.DisplayName, r.Reason)
}

func (p *batchBar) BatchCompleted(domain.BatchSummary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.overall = 1
	p.render()
	if p.tty {
		fmt.Fprintln(p.out)
	}
}

func (p *batchBar) render() {
	if !p.tty {
		return
	}
	now := p.now()
	pct := p.overall * 100

	p.clearLine()
	fmt.Fprintf(p.out, "  %s %3.0f%% | %d/%d files | %s | %s",
		renderBar(pct), pct, len(p.finished), len(p.sizes),
		p.calculateSpeed(now), p.calculateETA(now))
}

func renderBar(pct float64) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	// [=======>............]
	filled := int(pct / 100 * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	empty := barWidth - filled

	switch {
	case filled == barWidth:
		return "[" + strings.Repeat("=", filled) + "]"
	case filled > 0:
		return "[" + strings.Repeat("=", filled-1) + ">" + strings.Repeat(".", empty) + "]"
	default:
		return "[" + strings.Repeat(".", barWidth) + "]"
	}
}

func (p *batchBar) calculateSpeed(now time.Time) string {
	elapsed := now.Sub(p.started).Seconds()
	if elapsed < 0.5 || p.total <= 0 {
		return "-- MB/s"
	}
	sent := float64(p.total) * p.overall
	return formatSpeed(int64(sent / elapsed))
}

func (p *batchBar) calculateETA(now time.Time) string {
	return formatETA(p.overall, now.Sub(p.started))
}

// formatETA estimates the time left from the fraction done so far.
func formatETA(fraction float64, elapsed time.Duration) string {
	if fraction <= 0 || fraction >= 1 || elapsed < time.Second {
		return "ETA --"
	}

	secs := elapsed.Seconds()
	remaining := secs/fraction - secs
	if remaining < 0 {
		remaining = 0
	}

	if remaining < 60 {
		return fmt.Sprintf("ETA %ds", int(remaining))
	}
	if remaining < 3600 {
		return fmt.Sprintf("ETA %dm%ds", int(remaining)/60, int(remaining)%60)
	}
	return fmt.Sprintf("ETA %dh%dm", int(remaining)/3600, (int(remaining)%3600)/60)
}

func formatSpeed(bytesPerSec int64) string {
	return domain.HumanSize(bytesPerSec) + "/s"
}

func (p *batchBar) clearLine() {
	if p.tty {
		fmt.Fprint(p.out, "\r\033[K")
	}
}
