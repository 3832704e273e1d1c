package wasi_snapshot_preview1

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArgsAndEnviron(t *testing.T) {
	s := newTestSysContext(t, NewConfig().WithArgs("a", "bc").WithEnv("K", "v"))

	tests := []struct {
		name            string
		sizesGet, get   *hostFunc
		expectedCount   uint32
		expectedBuf     []byte
		expectedOffsets []byte
	}{
		{
			name:            functionArgsGet,
			sizesGet:        argsSizesGet,
			get:             argsGet,
			expectedCount:   2,
			expectedBuf:     []byte{'a', 0, 'b', 'c', 0},
			expectedOffsets: []byte{32, 0, 0, 0, 34, 0, 0, 0},
		},
		{
			name:            functionEnvironGet,
			sizesGet:        environSizesGet,
			get:             environGet,
			expectedCount:   1,
			expectedBuf:     []byte{'K', '=', 'v', 0},
			expectedOffsets: []byte{32, 0, 0, 0},
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			mod := testModule()
			mem := mod.MemoryInstance

			require.Equal(t, ErrnoSuccess, call(s, tc.sizesGet, mod, 0, 4))
			count, _ := mem.ReadUint32Le(0)
			bufLen, _ := mem.ReadUint32Le(4)
			require.Equal(t, tc.expectedCount, count)
			require.Equal(t, uint32(len(tc.expectedBuf)), bufLen)

			require.Equal(t, ErrnoSuccess, call(s, tc.get, mod, 16, 32))
			require.Equal(t, tc.expectedOffsets, mem.Buffer[16:16+len(tc.expectedOffsets)])
			require.Equal(t, tc.expectedBuf, mem.Buffer[32:32+len(tc.expectedBuf)])

			// The values do not fit at the end of memory.
			require.Equal(t, ErrnoFault, call(s, tc.get, mod, 16, uint64(mem.Size()-2)))
			require.Equal(t, ErrnoFault, call(s, tc.sizesGet, mod, 0, uint64(mem.Size())))
		})
	}
}
