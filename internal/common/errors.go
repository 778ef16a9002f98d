package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
)

// Media pipeline errors
var (
	// ErrSelectionInvalid: the selection was empty or reported before its data materialized.
	ErrSelectionInvalid = errors.New("selection invalid")
	// ErrConversionFailed: HEIC/HEIF could not be turned into JPEG.
	ErrConversionFailed = errors.New("conversion failed")
	// ErrDecodeFailed: a raster image could not be decoded.
	ErrDecodeFailed = errors.New("decode failed")
	// ErrUploadTimeout: the object store did not answer in time.
	ErrUploadTimeout = errors.New("upload timed out")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

func InternalErrorf(format string, args ...interface{}) error {
	return InternalError(fmt.Sprintf(format, args...))
}

// ToStatus maps pipeline errors onto gRPC status codes.
func ToStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrConversionFailed), errors.Is(err, ErrDecodeFailed),
		errors.Is(err, ErrSelectionInvalid), errors.Is(err, ErrInvalidInput):
		return InvalidArgumentError(err.Error())
	case errors.Is(err, ErrNotFound):
		return NotFoundError(err.Error())
	case errors.Is(err, ErrUploadTimeout):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return InternalError(err.Error())
	}
}
