package wasmruntime

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsTrap(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "trap", err: ErrRuntimeUnreachable, expected: true},
		{name: "wrapped trap", err: fmt.Errorf("data[0]: %w", ErrRuntimeOutOfBoundsMemoryAccess), expected: true},
		{name: "arity mismatch", err: ErrRuntimeArityMismatch, expected: true},
		{name: "canceled", err: context.Canceled},
		{name: "other", err: errors.New("unreachable")},
		{name: "nil"},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, IsTrap(tc.err))
		})
	}
}
