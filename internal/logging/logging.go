// Package logging holds the zap logger shared by the decoder, the store and the engine. It is in an independent
// package to avoid dependency cycles.
package logging

import (
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/treewasm/treewasm/api"
)

var (
	mu     sync.RWMutex
	logger *zap.Logger
)

// Logger returns the package-level logger. It uses a no-op logger by default.
func Logger() *zap.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// SetLogger replaces the package-level logger. A nil logger restores the no-op default.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

// Or returns l unless it is nil, in which case it returns Logger.
func Or(l *zap.Logger) *zap.Logger {
	if l != nil {
		return l
	}
	return Logger()
}

// ValueString formats an encoded value according to its type, for debug output of calls.
func ValueString(vt api.ValueType, v uint64) string {
	switch vt {
	case api.ValueTypeI32:
		return strconv.FormatInt(int64(int32(v)), 10)
	case api.ValueTypeI64:
		return strconv.FormatInt(int64(v), 10)
	case api.ValueTypeF32:
		return strconv.FormatFloat(float64(api.DecodeF32(v)), 'g', -1, 32)
	case api.ValueTypeF64:
		return strconv.FormatFloat(api.DecodeF64(v), 'g', -1, 64)
	case api.ValueTypeFuncref, api.ValueTypeExternref:
		if v == 0 {
			return "null"
		}
		return "0x" + strconv.FormatUint(v, 16)
	}
	return strconv.FormatUint(v, 10)
}

// ValuesString formats the values as a parenthesized, comma-separated list.
func ValuesString(types []api.ValueType, vals []uint64) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, v := range vals {
		if i > 0 {
			b.WriteByte(',')
		}
		if i < len(types) {
			b.WriteString(ValueString(types[i], v))
		} else {
			b.WriteString(strconv.FormatUint(v, 10))
		}
	}
	b.WriteByte(')')
	return b.String()
}
