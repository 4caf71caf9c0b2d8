package vault

import "go.uber.org/zap"

// Notifier is the side-channel the vault uses to surface operation outcomes
// to the presentation layer. Implementations must be safe for concurrent use.
type Notifier interface {
	Success(msg string)
	Info(msg string)
	Error(msg string)
}

// logNotifier writes notifications to the application log.
type logNotifier struct {
	log *zap.Logger
}

// NewLogNotifier returns a Notifier backed by the given logger.
func NewLogNotifier(log *zap.Logger) Notifier {
	return &logNotifier{log: log}
}

func (n *logNotifier) Success(msg string) { n.log.Info(msg, zap.String("outcome", "success")) }
func (n *logNotifier) Info(msg string)    { n.log.Info(msg, zap.String("outcome", "info")) }
func (n *logNotifier) Error(msg string)   { n.log.Warn(msg, zap.String("outcome", "error")) }
