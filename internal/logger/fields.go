package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	FieldProvider = "ai_provider"
	FieldModel    = "ai_model"
	// FieldStage names the pipeline stage that emitted the entry.
	FieldStage  = "stage"
	FieldPostID = "post_id"
	FieldUser   = "user"
)

// StringFields builds zap string fields from key/value pairs, skipping pairs
// whose key or value is blank. Keys and values are trimmed.
func StringFields(pairs ...string) []zap.Field {
	result := make([]zap.Field, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		key := strings.TrimSpace(pairs[i])
		value := strings.TrimSpace(pairs[i+1])
		if key == "" || value == "" {
			continue
		}
		result = append(result, zap.String(key, value))
	}
	return result
}

// WithFields attaches fields to log. A nil logger becomes a no-op logger.
func WithFields(log *zap.Logger, fields ...zap.Field) *zap.Logger {
	if log == nil {
		log = zap.NewNop()
	}
	if len(fields) == 0 {
		return log
	}
	return log.With(fields...)
}

// WithCommonFields tags log with the reasoning provider and model.
func WithCommonFields(log *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(log, StringFields(FieldProvider, provider, FieldModel, model)...)
}

// ForStage tags log with a pipeline stage name.
func ForStage(log *zap.Logger, stage string) *zap.Logger {
	return WithFields(log, StringFields(FieldStage, stage)...)
}

// ForPost tags log with the acting user and the post being processed.
func ForPost(log *zap.Logger, postID, user string) *zap.Logger {
	return WithFields(log, StringFields(FieldPostID, postID, FieldUser, user)...)
}
