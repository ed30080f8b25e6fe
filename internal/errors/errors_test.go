package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name      string
		err       *Error
		wantParts []string
	}{
		{
			name:      "with cause",
			err:       Wrap(EncodingFailure, "failed to encode query", stderrors.New("connection refused")),
			wantParts: []string{"ENCODING_FAILURE", "failed to encode query", "connection refused"},
		},
		{
			name:      "without cause",
			err:       New(NotIndexed, "no index loaded"),
			wantParts: []string{"NOT_INDEXED", "no index loaded"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			for _, part := range tt.wantParts {
				assert.True(t, strings.Contains(got, part), "%q missing %q", got, part)
			}
		})
	}
}

func TestCodeThroughWrapping(t *testing.T) {
	base := New(EmptyQuery, "query is empty")
	wrapped := fmt.Errorf("search: %w", base)

	assert.Equal(t, EmptyQuery, CodeOf(wrapped))
	assert.True(t, HasCode(wrapped, EmptyQuery))
	assert.False(t, HasCode(wrapped, NotIndexed))
	assert.Equal(t, ErrorCode(""), CodeOf(stderrors.New("plain")))
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(IndexFailure, "failed to save snapshot", cause)
	assert.ErrorIs(t, err, cause)
}

func TestMessageOf(t *testing.T) {
	coded := Wrap(IndexFailure, "failed to index /repo", stderrors.New("walk failed"))
	assert.Equal(t, "failed to index /repo", MessageOf(coded))
	assert.Equal(t, "failed to index /repo", MessageOf(fmt.Errorf("scan: %w", coded)))
	assert.Equal(t, "plain", MessageOf(stderrors.New("plain")))
}
