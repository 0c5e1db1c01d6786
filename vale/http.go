package vale

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// UserAgent is sent with every request; the GitHub API rejects requests
// without one.
const UserAgent = "vale-ls"

// restyLogger forwards resty's printf-style logging to slog.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) { l.logger.Error(fmt.Sprintf(format, v...)) }
func (l restyLogger) Warnf(format string, v ...any)  { l.logger.Warn(fmt.Sprintf(format, v...)) }
func (l restyLogger) Debugf(format string, v ...any) { l.logger.Debug(fmt.Sprintf(format, v...)) }

// NewHTTPClient returns the client shared by the installer and the package
// registry lookup.
func NewHTTPClient(logger *slog.Logger) *resty.Client {
	if logger == nil {
		logger = slog.Default()
	}
	return resty.New().
		SetLogger(restyLogger{logger: logger.With("component", "http")}).
		SetHeader("User-Agent", UserAgent).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		SetTimeout(2 * time.Minute)
}
