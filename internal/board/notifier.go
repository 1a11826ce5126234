package board

import "go.uber.org/zap"

// Level classifies a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Notifier surfaces transient messages to whoever drives the board.
type Notifier interface {
	Notify(level Level, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(level Level, message string)

// Notify calls f.
func (f NotifierFunc) Notify(level Level, message string) { f(level, message) }

type logNotifier struct {
	logger *zap.Logger
}

// LogNotifier writes notifications to a zap logger.
func LogNotifier(logger *zap.Logger) Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &logNotifier{logger: logger}
}

func (n *logNotifier) Notify(level Level, message string) {
	switch level {
	case LevelError:
		n.logger.Warn(message, zap.String("level", string(level)))
	default:
		n.logger.Info(message, zap.String("level", string(level)))
	}
}
