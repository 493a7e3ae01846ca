package config

import (
	"context"
	"errors"
	"os"
	"sort"

	"github.com/alexisbeaulieu97/deployline/internal/domain/deploy"
	"github.com/alexisbeaulieu97/deployline/internal/ports"
	apperrors "github.com/alexisbeaulieu97/deployline/pkg/errors"
)

// document is the on-disk shape shared by config/deploy.yaml and
// config/environment.yaml: environment name → settings.
type document map[string]map[string]any

// YAMLReader implements ports.ConfigReader over per-environment YAML files.
type YAMLReader struct {
	logger ports.Logger
}

// NewYAMLReader creates a reader that reports through logger.
func NewYAMLReader(logger ports.Logger) *YAMLReader {
	return &YAMLReader{logger: logger}
}

// Read returns the settings stored under environment in path.
func (r *YAMLReader) Read(ctx context.Context, environment, path string) (deploy.ConfigView, error) {
	if err := contextCheck(ctx); err != nil {
		return nil, err
	}

	r.logDebug(ctx, "reading configuration", map[string]interface{}{"path": path, "environment": environment})

	if err := Validator().Var(environment, "required,environment"); err != nil {
		return nil, domainError(deploy.ErrCodeValidation, "invalid environment name",
			apperrors.NewValidationError("environment", err.Error(), err),
			map[string]interface{}{"environment": environment})
	}

	var doc document
	if err := DecodeFile(path, &doc); err != nil {
		r.logError(ctx, "failed to parse configuration", err, map[string]interface{}{"path": path})
		return nil, convertError(err, path)
	}

	if err := contextCheck(ctx); err != nil {
		return nil, err
	}

	settings, ok := doc[environment]
	if !ok {
		err := domainError(deploy.ErrCodeValidation, "environment not configured", nil, map[string]interface{}{
			"path":        path,
			"environment": environment,
			"available":   environments(doc),
		})
		r.logError(ctx, "environment missing from configuration", err, map[string]interface{}{"path": path})
		return nil, err
	}

	view := NewView(environment, settings)
	r.logInfo(ctx, "configuration read", map[string]interface{}{"path": path, "environment": environment, "keys": len(view.Keys())})
	return view, nil
}

var _ ports.ConfigReader = (*YAMLReader)(nil)

func environments(doc document) []string {
	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConvertError maps loader failures onto domain error codes.
func ConvertError(err error, path string) error {
	return convertError(err, path)
}

func convertError(err error, path string) error {
	if err == nil {
		return nil
	}
	var parseErr *apperrors.ParseError
	if errors.As(err, &parseErr) {
		if errors.Is(parseErr.Err, os.ErrNotExist) {
			return domainError(deploy.ErrCodeNotFound, "configuration not found", parseErr.Err, map[string]interface{}{"path": path})
		}
		return domainError(deploy.ErrCodeValidation, "invalid configuration syntax", err, map[string]interface{}{"path": parseErr.Path, "line": parseErr.Line})
	}
	var valErr *apperrors.ValidationError
	if errors.As(err, &valErr) {
		context := map[string]interface{}{"path": path}
		if valErr.Field != "" {
			context["field"] = valErr.Field
		}
		return domainError(deploy.ErrCodeValidation, valErr.Message, valErr.Err, context)
	}
	if os.IsNotExist(err) {
		return domainError(deploy.ErrCodeNotFound, "configuration not found", err, map[string]interface{}{"path": path})
	}
	return domainError(deploy.ErrCodeInternal, "configuration load failed", err, map[string]interface{}{"path": path})
}

func contextCheck(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return domainError(deploy.ErrCodeCancelled, "operation cancelled", err, nil)
	}
	return nil
}

func domainError(code deploy.ErrorCode, message string, cause error, ctx map[string]interface{}) *deploy.DomainError {
	return &deploy.DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: ctx,
	}
}

func (r *YAMLReader) logDebug(ctx context.Context, msg string, fields map[string]interface{}) {
	if r.logger == nil {
		return
	}
	r.logger.Debug(ctx, msg, FlattenFields(fields)...)
}

func (r *YAMLReader) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if r.logger == nil {
		return
	}
	r.logger.Info(ctx, msg, FlattenFields(fields)...)
}

func (r *YAMLReader) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if r.logger == nil {
		return
	}
	payload := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		payload[k] = v
	}
	payload["error"] = err
	r.logger.Error(ctx, msg, FlattenFields(payload)...)
}

// FlattenFields turns a field map into sorted key/value pairs for ports.Logger.
func FlattenFields(fields map[string]interface{}) []interface{} {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]interface{}, 0, len(fields)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	return args
}
