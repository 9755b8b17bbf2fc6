package logger

import "github.com/go-logr/logr"

// Leveled adapts a logr.Logger to the Error/Warn/Info/Debug interface used
// by HTTP retry clients. Info and Debug map to V(1) and V(2) so request
// chatter stays hidden at the default level.
type Leveled struct {
	log logr.Logger
}

// NewLeveled wraps lgr.
func NewLeveled(lgr logr.Logger) *Leveled {
	return &Leveled{log: lgr}
}

func (l *Leveled) Error(msg string, keysAndValues ...any) {
	l.log.Error(nil, msg, keysAndValues...)
}

func (l *Leveled) Warn(msg string, keysAndValues ...any) {
	l.log.Info(msg, append(keysAndValues, "severity", "warn")...)
}

func (l *Leveled) Info(msg string, keysAndValues ...any) {
	l.log.V(1).Info(msg, keysAndValues...)
}

func (l *Leveled) Debug(msg string, keysAndValues ...any) {
	l.log.V(2).Info(msg, keysAndValues...)
}
