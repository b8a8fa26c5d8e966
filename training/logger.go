package training

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ThreeDotsLabs/watermill"

	auth "github.com/goliatone/go-campus-auth"
)

// LoggerAdapter routes watermill logs to an auth.Logger
type LoggerAdapter struct {
	logger auth.Logger
	fields watermill.LogFields
}

var _ watermill.LoggerAdapter = (*LoggerAdapter)(nil)

func NewLoggerAdapter(logger auth.Logger) *LoggerAdapter {
	if logger == nil {
		logger = auth.NopLogger{}
	}
	return &LoggerAdapter{
		logger: logger,
		fields: watermill.LogFields{},
	}
}

func (l *LoggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	l.logger.Error("%s: %v%s", msg, err, l.format(fields))
}

func (l *LoggerAdapter) Info(msg string, fields watermill.LogFields) {
	l.logger.Info("%s%s", msg, l.format(fields))
}

func (l *LoggerAdapter) Debug(msg string, fields watermill.LogFields) {
	l.logger.Debug("%s%s", msg, l.format(fields))
}

func (l *LoggerAdapter) Trace(msg string, fields watermill.LogFields) {
	l.logger.Debug("%s%s", msg, l.format(fields))
}

func (l *LoggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &LoggerAdapter{
		logger: l.logger,
		fields: l.fields.Add(fields),
	}
}

func (l *LoggerAdapter) format(fields watermill.LogFields) string {
	all := l.fields.Add(fields)
	if len(all) == 0 {
		return ""
	}

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, all[k])
	}
	return b.String()
}
