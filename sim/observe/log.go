package observe

import (
	"github.com/sirupsen/logrus"

	"github.com/fleetsim/fleetsim/sim"
)

// LogSink writes progress reports to a logrus logger. Step reports are logged
// at debug level every Every steps; lifecycle reports are logged at info.
type LogSink struct {
	Logger logrus.FieldLogger
	Every  int
}

// NewLogSink logs through the standard logrus logger.
func NewLogSink(every int) *LogSink {
	return &LogSink{Logger: logrus.StandardLogger(), Every: every}
}

func (l *LogSink) Report(p sim.Progress) {
	entry := l.Logger.WithFields(logrus.Fields{
		"simulation": p.SimulationID.String(),
		"step":       p.Step,
		"open":       p.OpenOrders,
		"closed":     p.ClosedOrders,
	})
	switch {
	case p.Kind == sim.ProgressStep:
		if l.Every > 0 && p.Step%l.Every == 0 {
			entry.Debug(p.Status)
		}
	case p.Kind == sim.ProgressStalled:
		entry.Warn(p.Status)
	case p.Kind == sim.ProgressFailed:
		entry.Error(p.Status)
	default:
		entry.Info(p.Status)
	}
}
