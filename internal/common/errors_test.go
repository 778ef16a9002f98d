package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("%w: photo.heic", ErrConversionFailed), codes.InvalidArgument},
		{fmt.Errorf("%w: x.jpg", ErrDecodeFailed), codes.InvalidArgument},
		{ErrSelectionInvalid, codes.InvalidArgument},
		{fmt.Errorf("%w: photo", ErrNotFound), codes.NotFound},
		{fmt.Errorf("%w: k", ErrUploadTimeout), codes.DeadlineExceeded},
		{errors.New("disk on fire"), codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, status.Code(ToStatus(tt.err)), tt.err.Error())
	}
	assert.NoError(t, ToStatus(nil))
}

func TestAppError(t *testing.T) {
	err := NewAppError("CONFIG_ERROR", "bad value", ErrInvalidInput)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "CONFIG_ERROR: bad value: invalid input", err.Error())
	assert.Equal(t, "X: y", NewAppError("X", "y", nil).Error())

	assert.Nil(t, WrapError(nil, "ctx"))
	assert.ErrorIs(t, WrapError(ErrDatabase, "ctx"), ErrDatabase)
}
