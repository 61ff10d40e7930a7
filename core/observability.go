package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// observation captures one finished service operation before it is written
// to the logger and the metrics recorder.
type observation struct {
	operation string
	status    string
	duration  time.Duration
	err       error
	fields    map[string]any
}

func newObservation(operation string, startedAt time.Time, err error, fields map[string]any) observation {
	name := normalizeOperation(operation)
	if name == "" {
		name = "unknown"
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	return observation{
		operation: name,
		status:    status,
		duration:  time.Since(startedAt),
		err:       err,
		fields:    fields,
	}
}

func (o observation) logFields() map[string]any {
	out := cloneFields(o.fields)
	out["event_type"] = o.operation
	out["status"] = o.status
	out["duration_ms"] = o.duration.Milliseconds()
	if o.err != nil {
		out["error"] = o.err.Error()
	}
	return out
}

// metricTags promotes a fixed set of identifying fields into metric tags so
// cardinality stays bounded regardless of what the log fields carry.
func (o observation) metricTags() map[string]string {
	tags := map[string]string{
		"operation": o.operation,
		"status":    o.status,
	}
	for _, key := range []string{"form_id", "response_id", "notification"} {
		value := strings.TrimSpace(fmt.Sprint(o.fields[key]))
		if value != "" && value != "<nil>" {
			tags[key] = value
		}
	}
	return tags
}

func (s *Service) observeOperation(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	err error,
	fields map[string]any,
) {
	if s == nil {
		return
	}
	obs := newObservation(operation, startedAt, err, fields)
	tags := obs.metricTags()
	s.recordCounter(ctx, "forms."+obs.operation+".total", 1, tags)
	s.recordHistogram(ctx, "forms."+obs.operation+".duration_ms", float64(obs.duration.Milliseconds()), tags)

	logFields := obs.logFields()
	if err != nil {
		s.logError(ctx, obs.operation+" failed", logFields)
		return
	}
	s.logInfo(ctx, obs.operation+" succeeded", logFields)
}

func (s *Service) logInfo(ctx context.Context, message string, fields map[string]any) {
	s.logWithLevel(ctx, "info", message, fields)
}

func (s *Service) logError(ctx context.Context, message string, fields map[string]any) {
	s.logWithLevel(ctx, "error", message, fields)
}

func (s *Service) logWithLevel(ctx context.Context, level string, message string, fields map[string]any) {
	if s == nil || s.logger == nil {
		return
	}
	logger := s.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		logger.Error(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func (s *Service) recordCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	if s == nil || s.metricsRecorder == nil {
		return
	}
	s.metricsRecorder.IncCounter(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func (s *Service) recordHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	if s == nil || s.metricsRecorder == nil {
		return
	}
	s.metricsRecorder.ObserveHistogram(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func cloneFields(fields map[string]any) map[string]any {
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

// flattenFields renders fields as alternating key/value pairs in sorted key
// order so log lines stay stable.
func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}

func normalizeOperation(operation string) string {
	operation = strings.TrimSpace(strings.ToLower(operation))
	operation = strings.ReplaceAll(operation, " ", "_")
	return strings.ReplaceAll(operation, "-", "_")
}
