// Package xlog provides a small named-logger registry so every
// component of the pool can be filtered and leveled independently
// while still writing through a single process-wide format.
package xlog

import (
	"fmt"
	"os"
	"strings"
	"sync"

	plog "github.com/pingcap/log"
	"github.com/sirupsen/logrus"
)

var mu sync.Mutex
var loggers = make(map[string]*logHandle)

type logHandle struct {
	logrus.Logger

	name string
}

func (l *logHandle) Format(e *logrus.Entry) ([]byte, error) {
	const timeFormat = "2006/01/02 15:04:05.000000"
	timestamp := e.Time.Format(timeFormat)

	str := fmt.Sprintf("%v %s[%d] <%v>: %v",
		timestamp,
		l.name,
		os.Getpid(),
		strings.ToUpper(e.Level.String()),
		e.Message)

	if len(e.Data) != 0 {
		str += fmt.Sprintf(" %v", e.Data)
	}

	str += "\n"
	return []byte(str), nil
}

func newLogger(name string) *logHandle {
	l := &logHandle{name: name}
	l.Out = os.Stderr
	l.Formatter = l
	l.Level = logrus.InfoLevel
	l.Hooks = make(logrus.LevelHooks)
	return l
}

// GetLogger returns a logger registered under name, creating it on
// first use.
func GetLogger(name string) *logHandle {
	mu.Lock()
	defer mu.Unlock()

	if logger, ok := loggers[name]; ok {
		return logger
	}
	logger := newLogger(name)
	loggers[name] = logger
	return logger
}

// SetLevel sets lvl on every registered logger and re-derives the
// pingcap/log global level from it, one step less verbose (trace maps
// to debug, debug to info, info and warn to warn), so a single call
// governs both logging backends.
func SetLevel(lvl logrus.Level) {
	mu.Lock()
	for _, logger := range loggers {
		logger.Level = lvl
	}
	mu.Unlock()

	var plvl string
	switch lvl {
	case logrus.TraceLevel:
		plvl = "debug"
	case logrus.DebugLevel:
		plvl = "info"
	case logrus.InfoLevel:
		fallthrough
	case logrus.WarnLevel:
		plvl = "warn"
	case logrus.ErrorLevel:
		plvl = "error"
	default:
		plvl = "dpanic"
	}
	conf := &plog.Config{Level: plvl}
	l, p, err := plog.InitLogger(conf)
	if err == nil {
		plog.ReplaceGlobals(l, p)
	}
}
