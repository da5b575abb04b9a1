// Package logging builds the process logger.
package logging

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

// New returns a logger writing to w at the named level, formatted as JSON
// when asJSON is set and as timestamped text otherwise.
func New(w io.Writer, level string, asJSON bool) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(lvl)
	if asJSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			DisableColors:   true,
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	}
	return log, nil
}
