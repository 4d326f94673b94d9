// Package logger provides the shared structured logger for every service,
// grounded on order/internal/.../middleware/auth.go's logger.Logger usage
// (sirupsen/logrus under the hood).
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a logrus.Logger configured for JSON output with the given
// service name attached to every entry.
func New(service string) *logrus.Entry {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{})

	level := logrus.InfoLevel
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if parsed, err := logrus.ParseLevel(v); err == nil {
			level = parsed
		}
	}
	l.SetLevel(level)

	return l.WithField("service", service)
}
