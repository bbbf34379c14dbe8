package monitor

import "go.uber.org/zap"

// Sink receives emitted alerts. The notification transport behind it
// (pager, chat webhook) belongs to the surrounding service layer.
type Sink interface {
	Notify(alert Alert) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(alert Alert) error

// Notify implements Sink.
func (f SinkFunc) Notify(alert Alert) error {
	return f(alert)
}

// LogSink writes alerts to the structured log. The default sink when no
// external notification channel is wired.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a log-backed alert sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Notify implements Sink.
func (s *LogSink) Notify(alert Alert) error {
	s.logger.Warn("cache alert",
		zap.String("alert_id", alert.ID),
		zap.String("type", string(alert.Type)),
		zap.String("severity", string(alert.Severity)),
		zap.String("region", alert.Region),
		zap.String("message", alert.Message),
		zap.Float64("current_value", alert.CurrentValue),
		zap.Float64("threshold", alert.Threshold),
	)
	return nil
}
