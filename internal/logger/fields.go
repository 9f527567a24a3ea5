package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	FieldProvider  = "ai_provider"
	FieldModel     = "ai_model"
	FieldJobID     = "job_id"
	FieldJobSource = "job_source"
	FieldRequestID = "request_id"
)

type StringField struct {
	Key   string
	Value string
}

// StringFields converts key/value pairs into zap fields, dropping entries
// whose key or value is blank.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		value := strings.TrimSpace(field.Value)
		if key == "" || value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to logger, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// CommonFields describe the generative provider and model.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}

// JobFields identify the job an analysis is about.
func JobFields(jobID, source string) []zap.Field {
	return StringFields(
		StringField{Key: FieldJobID, Value: jobID},
		StringField{Key: FieldJobSource, Value: source},
	)
}

func RequestID(id string) zap.Field {
	return zap.String(FieldRequestID, id)
}
