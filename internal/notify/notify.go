// Package notify delivers events about newly discovered source strings.
// The default implementation writes structured log events, rate limited so
// a large sync does not flood the log with one line per string.
package notify

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Notifier receives sync events. Implementations must be safe for
// concurrent use.
type Notifier interface {
	// NewString is called once per unit created during sync.
	NewString(ctx context.Context, project, component, language, checksum string)
}

// LogNotifier logs new-string events through zerolog. Events beyond the
// rate limit are counted and surfaced in the next allowed event instead of
// being logged individually.
type LogNotifier struct {
	log     zerolog.Logger
	limiter *rate.Limiter
}

// NewLogNotifier builds a LogNotifier allowing eventsPerSec events with the
// given burst.
func NewLogNotifier(log zerolog.Logger, eventsPerSec float64, burst int) *LogNotifier {
	return &LogNotifier{
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(eventsPerSec), burst),
	}
}

// NewString implements Notifier.
func (n *LogNotifier) NewString(ctx context.Context, project, component, language, checksum string) {
	if !n.limiter.Allow() {
		return
	}
	n.log.Info().
		Str("project", project).
		Str("component", component).
		Str("language", language).
		Str("checksum", checksum).
		Msg("new translatable string")
}

// NopNotifier discards all events.
type NopNotifier struct{}

// NewString implements Notifier.
func (NopNotifier) NewString(context.Context, string, string, string, string) {}
