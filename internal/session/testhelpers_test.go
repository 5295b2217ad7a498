package session

import (
	"io"

	"github.com/sirupsen/logrus"
)

// newTestLogger returns a logrus.Logger with output discarded, so
// test runs stay quiet regardless of the Debug/Warn calls exercised.
func newTestLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
