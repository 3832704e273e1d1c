// Package spectest contains the "spectest" host module imported by the WebAssembly core test suite.
//
// See https://github.com/WebAssembly/spec/tree/main/interpreter#spectest-host-module
package spectest

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/treewasm/treewasm"
	"github.com/treewasm/treewasm/api"
)

// ModuleName is the module name the test suite imports.
const ModuleName = "spectest"

const (
	i32, i64, f32, f64 = api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeF32, api.ValueTypeF64
)

var (
	tableMax  = uint32(20)
	memoryMax = uint32(2)
)

// Instantiate instantiates ModuleName into the runtime. The print functions write their params to out, one line
// per call, or nowhere when nil.
func Instantiate(ctx context.Context, r treewasm.Runtime, out io.Writer) (api.Module, error) {
	if out == nil {
		out = io.Discard
	}
	b := r.NewHostModuleBuilder(ModuleName).
		ExportGlobal("global_i32", i32, false, api.EncodeI32(666)).
		ExportGlobal("global_i64", i64, false, api.EncodeI64(666)).
		ExportGlobal("global_f32", f32, false, api.EncodeF32(666.6)).
		ExportGlobal("global_f64", f64, false, api.EncodeF64(666.6)).
		ExportTable("table", api.ValueTypeFuncref, 10, &tableMax).
		ExportMemory("memory", 1, &memoryMax)

	for name, params := range map[string][]api.ValueType{
		"print":         nil,
		"print_i32":     {i32},
		"print_i64":     {i64},
		"print_f32":     {f32},
		"print_f64":     {f64},
		"print_i32_f32": {i32, f32},
		"print_f64_f64": {f64, f64},
	} {
		b.ExportFunction(name, printFunc(out, params), params, nil)
	}
	return b.Instantiate(ctx)
}

// printFunc formats each param like "42 : i32".
func printFunc(out io.Writer, params []api.ValueType) api.GoModuleFunc {
	return func(_ context.Context, _ api.Module, stack []uint64) {
		values := make([]string, len(params))
		for i, t := range params {
			values[i] = fmt.Sprintf("%s : %s", format(t, stack[i]), api.ValueTypeName(t))
		}
		_, _ = fmt.Fprintln(out, strings.Join(values, " "))
	}
}

func format(t api.ValueType, v uint64) string {
	switch t {
	case i32:
		return fmt.Sprint(api.DecodeI32(v))
	case i64:
		return fmt.Sprint(int64(v))
	case f32:
		return fmt.Sprint(api.DecodeF32(v))
	case f64:
		return fmt.Sprint(api.DecodeF64(v))
	}
	return fmt.Sprintf("%#x", v)
}
