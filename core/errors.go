package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-topgg/snowflake"
)

const (
	ErrorInvalidIdentifier = snowflake.TextCodeInvalidIdentifier
	ErrorMalformedPayload  = "TOPGG_MALFORMED_PAYLOAD"
	ErrorUnauthorized      = "TOPGG_UNAUTHORIZED"
	ErrorBadInput          = "TOPGG_BAD_INPUT"
	ErrorNotFound          = "TOPGG_NOT_FOUND"
	ErrorRateLimited       = "TOPGG_RATE_LIMITED"
	ErrorUpstreamFailed    = "TOPGG_UPSTREAM_FAILED"
	ErrorInternal          = "TOPGG_INTERNAL_ERROR"
)

type ErrorMapper func(err error) *goerrors.Error

// NewError builds a go-errors envelope with a stable text code.
func NewError(
	message string,
	category goerrors.Category,
	code int,
	textCode string,
	metadata map[string]any,
) *goerrors.Error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func WrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	textCode string,
	metadata map[string]any,
) *goerrors.Error {
	if source == nil {
		return NewError(message, category, code, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func MalformedPayload(source error, metadata map[string]any) *goerrors.Error {
	return WrapError(
		source,
		goerrors.CategoryBadInput,
		"webhook: malformed vote payload",
		http.StatusBadRequest,
		ErrorMalformedPayload,
		metadata,
	)
}

func Unauthorized(message string, metadata map[string]any) *goerrors.Error {
	if strings.TrimSpace(message) == "" {
		message = "webhook: unauthorized"
	}
	return NewError(message, goerrors.CategoryAuth, http.StatusUnauthorized, ErrorUnauthorized, metadata)
}

func BadInput(message string, metadata map[string]any) *goerrors.Error {
	return NewError(message, goerrors.CategoryBadInput, http.StatusBadRequest, ErrorBadInput, metadata)
}

func Internal(message string, metadata map[string]any) *goerrors.Error {
	return NewError(message, goerrors.CategoryInternal, http.StatusInternalServerError, ErrorInternal, metadata)
}

func IsInvalidIdentifier(err error) bool {
	return HasTextCode(err, ErrorInvalidIdentifier)
}

func IsMalformedPayload(err error) bool {
	return HasTextCode(err, ErrorMalformedPayload)
}

func IsUnauthorized(err error) bool {
	return HasTextCode(err, ErrorUnauthorized)
}

func IsNotFound(err error) bool {
	return HasTextCode(err, ErrorNotFound)
}

func HasTextCode(err error, textCode string) bool {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	return rich.TextCode == textCode
}

// MapError normalizes any error into an envelope with a text code and HTTP
// status derived from its category.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return ensureErrorEnvelope(rich)
	}
	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = httpStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorBadInput
	case goerrors.CategoryNotFound:
		return ErrorNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ErrorUnauthorized
	case goerrors.CategoryRateLimit:
		return ErrorRateLimited
	case goerrors.CategoryExternal:
		return ErrorUpstreamFailed
	default:
		return ErrorInternal
	}
}

func httpStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
