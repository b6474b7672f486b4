package logger

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/logging"
)

// GoogleCloudLogger sends structured entries to Google Cloud Logging
type GoogleCloudLogger struct {
	client *logging.Client
	logger *logging.Logger
}

// NewGoogleCloudLogger connects to Cloud Logging for the given project and log name
func NewGoogleCloudLogger(ctx context.Context, projectID string, logName string) (*GoogleCloudLogger, error) {
	client, err := logging.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}

	return &GoogleCloudLogger{
		client: client,
		logger: client.Logger(logName),
	}, nil
}

// Error is for throwing a log message with status Error
func (l *GoogleCloudLogger) Error(message string, err error) {
	l.logger.Log(logging.Entry{
		Severity: logging.Error,
		Payload: map[string]interface{}{
			"message": message,
			"error":   fmt.Sprintf("%v", err),
		},
	})
}

// Info is for throwing a log message with status Info
func (l *GoogleCloudLogger) Info(message string) {
	l.logger.Log(logging.Entry{Severity: logging.Info, Payload: message})
}

// Debug is for throwing a log message with status Debug
func (l *GoogleCloudLogger) Debug(message string) {
	l.logger.Log(logging.Entry{Severity: logging.Debug, Payload: message})
}

// Fatal logs synchronously, flushes the client and exits
func (l *GoogleCloudLogger) Fatal(err error) {
	_ = l.logger.LogSync(context.Background(), logging.Entry{
		Severity: logging.Critical,
		Payload:  fmt.Sprintf("%v", err),
	})
	_ = l.client.Close()
	os.Exit(1)
}

// Close flushes all buffered entries
func (l *GoogleCloudLogger) Close() error {
	return l.client.Close()
}
