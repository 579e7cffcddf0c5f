// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ErrValidation is returned for malformed input. It is always detected
// before any read or write.
var ErrValidation = errors.New("validation failed")

// ErrForbidden is returned when a management token does not match the
// booking or has expired.
var ErrForbidden = errors.New("invalid or expired management token")

// maxQueryDays caps the range of a month availability query.
const maxQueryDays = 62

// maxIntervalDays caps the span of a booking, reservation or availability
// interval. Longer spans would expand into an unbounded number of slots.
const maxIntervalDays = 62

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs the struct's validate tags and folds the field
// errors into one ErrValidation.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func validateInterval(start, end int64) error {
	if start <= 0 {
		return invalid("start must be a positive epoch millisecond timestamp")
	}
	if end <= start {
		return invalid("end must be after start")
	}
	if end-start > maxIntervalDays*24*int64(time.Hour/time.Millisecond) {
		return invalid("interval spans more than %d days", maxIntervalDays)
	}
	return nil
}

func validateTimezone(tz string) error {
	if tz == "" {
		return nil
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return invalid("unknown timezone %q", tz)
	}
	return nil
}

// newUID returns a public booking identifier: 32 lowercase hex digits.
func newUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// newToken returns 32 random bytes, URL-safe base64 encoded.
func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
