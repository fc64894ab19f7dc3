package infra

import (
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/site_block/internal/domain"
)

// LogNotifier implements domain.Notifier by writing each transition to
// the structured log. The desktop build would swap in a tray/badge
// notifier behind the same interface.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier backed by the given logger.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) BlockingChanged(active bool) {
	n.logger.Info("blocking state changed", zap.Bool("active", active))
}

func (n *LogNotifier) StatsUpdated(stats domain.Stats) {
	n.logger.Info("stats updated",
		zap.Int("sessions_blocked", stats.SessionsBlocked),
		zap.Int("total_time_saved_min", stats.TotalTimeSaved))
}

func (n *LogNotifier) TimerStarted(d time.Duration) {
	n.logger.Info("deactivation timer started", zap.Duration("remaining", d))
}

func (n *LogNotifier) Error(err error) {
	n.logger.Error("controller error", zap.Error(err))
}

var _ domain.Notifier = (*LogNotifier)(nil)
