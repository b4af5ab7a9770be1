// Package enginelog is structured logging for engine operations:
// split, merge, rotation, root promotion/collapse, and scheduled
// node deletion at Debug, operation aborts at Warn. It wraps
// logrus with the engine's own compact formatter rather than
// logrus's default text formatter.
package enginelog

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is one engine's structured log sink. Build one with New or
// Discard; the zero value has no logrus entry, and its methods panic.
type Logger struct {
	entry *logrus.Entry
}

// New builds a Logger writing to w at level (one of logrus's level
// names: "debug", "info", "warn", "error"), tagged with namespace so
// every line it emits can be attributed to the tree it came from.
func New(w io.Writer, level string, namespace string) *Logger {
	l := logrus.New()
	l.SetFormatter(&formatter{})
	l.SetLevel(parseLevel(level))
	l.SetOutput(w)
	return &Logger{entry: l.WithField("namespace", namespace)}
}

// Discard is a Logger that drops every line, for callers (tests,
// one-shot tools) that don't want engine operations to log at all.
func Discard() *Logger { return New(io.Discard, "error", "") }

func (lg *Logger) Split(nodeID, rightID string, at int) {
	lg.entry.WithField("right", rightID).WithField("at", at).Debugf("split node %s", nodeID)
}

func (lg *Logger) Merge(leftID, rightID string) {
	lg.entry.WithField("right", rightID).Debugf("merge node %s", leftID)
}

func (lg *Logger) Rotate(direction string, parentID, childID, siblingID string) {
	lg.entry.WithField("sibling", siblingID).WithField("child", childID).Debugf("rotate %s under %s", direction, parentID)
}

func (lg *Logger) RootPromoted(newRootID string) {
	lg.entry.Debugf("root promoted to %s", newRootID)
}

func (lg *Logger) RootCollapsed(newRootID string) {
	lg.entry.Debugf("root collapsed to %s", newRootID)
}

func (lg *Logger) ScheduledDeletion(nodeID string, childCount int) {
	lg.entry.WithField("children", childCount).Debugf("scheduled deletion of node %s", nodeID)
}

func (lg *Logger) OperationAborted(op string, err error) {
	lg.entry.WithError(err).Warnf("%s aborted", op)
}

func parseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// formatter is a single-line, caller-free rendering of level,
// namespace, message, and any structured fields, in the same
// timestamp-bracketed shape the teacher's logger used, trimmed of its
// per-call-site caller lookup (this package has few enough call sites
// that the message itself already says what happened).
type formatter struct{}

func (f *formatter) Format(e *logrus.Entry) ([]byte, error) {
	level := strings.ToUpper(e.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] %s", e.Time.Format("15:04:05.000"), level, e.Message)
	for k, v := range e.Data {
		if k == "namespace" && v == "" {
			continue
		}
		fmt.Fprintf(&b, " %s=%v", k, v)
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}
