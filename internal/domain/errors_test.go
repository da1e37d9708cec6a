package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFetchError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *FetchError
		contains []string
	}{
		{
			name:     "source rejected",
			err:      &FetchError{District: "111123", Kind: FetchSourceRejected, Code: "INFO-200", Message: "no data"},
			contains: []string{"111123", "source_rejected", "INFO-200", "no data"},
		},
		{
			name:     "malformed",
			err:      &FetchError{District: "111121", Kind: FetchMalformedResponse, Message: "missing payload"},
			contains: []string{"111121", "malformed_response", "missing payload"},
		},
		{
			name:     "transport",
			err:      &FetchError{District: "111131", Kind: FetchTransport, Err: context.DeadlineExceeded},
			contains: []string{"111131", "transport", "deadline exceeded"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, s := range tt.contains {
				assert.Contains(t, tt.err.Error(), s)
			}
		})
	}
}

func TestFetchError_Unwrap(t *testing.T) {
	var err error = &FetchError{District: "111123", Kind: FetchTransport, Err: context.DeadlineExceeded}
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var fe *FetchError
	assert.True(t, errors.As(err, &fe))
	assert.Equal(t, FetchTransport, fe.Kind)
}

func TestStoreError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &StoreError{Kind: StoreBatchFailure, Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "store batch_failure: connection refused", err.Error())

	docErr := &StoreError{Kind: StoreDocumentRejected, Key: "중구", Err: errors.New("mapper_parsing_exception")}
	assert.Contains(t, docErr.Error(), `"중구"`)
}

func TestDocumentError_Err(t *testing.T) {
	err := DocumentError{Key: "중구", Status: 400, Type: "mapper_parsing_exception", Reason: "failed to parse"}.Err()

	var se *StoreError
	if assert.True(t, errors.As(err, &se)) {
		assert.Equal(t, StoreDocumentRejected, se.Kind)
		assert.Equal(t, "중구", se.Key)
	}
	assert.Contains(t, err.Error(), "status 400: mapper_parsing_exception: failed to parse")
}
