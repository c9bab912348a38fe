package transport

import applog "audiometry/internal/log"

// LoggingTransport implements Transport by writing progress updates to the
// application log. It is the fallback monitor when WebSocket broadcasting is
// disabled.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	return &LoggingTransport{}
}

// Send logs the received update at debug level.
func (lt *LoggingTransport) Send(data any) error {
	applog.Debugf("monitor: %+v", data)
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
