// Package spectest runs the JSON scripts produced by wast2json from the WebAssembly core test suite.
//
// See https://github.com/WebAssembly/wabt/blob/main/docs/wast2json.md
package spectest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/treewasm/treewasm"
	"github.com/treewasm/treewasm/api"
	hostspectest "github.com/treewasm/treewasm/imports/spectest"
	"github.com/treewasm/treewasm/internal/wasmruntime"
)

// testCtx is an arbitrary, non-default context. Non-nil also prevents linter errors.
var testCtx = context.WithValue(context.Background(), struct{}{}, "arbitrary")

type (
	testbase struct {
		SourceFile string    `json:"source_filename"`
		Commands   []command `json:"commands"`
	}
	command struct {
		CommandType string `json:"type"`
		Line        int    `json:"line"`

		// Set when type == "module" || "register"
		Name string `json:"name,omitempty"`

		// Set when type == "module" || "assert_uninstantiable" || "assert_malformed"
		Filename string `json:"filename,omitempty"`

		// Set when type == "register"
		As string `json:"as,omitempty"`

		// Set when type == "assert_return" || "action"
		Action commandAction      `json:"action,omitempty"`
		Exps   []commandActionVal `json:"expected"`

		// Set when type == "assert_malformed"
		ModuleType string `json:"module_type"`

		// Set when type == "assert_trap"
		Text string `json:"text"`
	}

	commandAction struct {
		ActionType string             `json:"type"`
		Args       []commandActionVal `json:"args"`

		// Set when ActionType == "invoke"
		Field  string `json:"field,omitempty"`
		Module string `json:"module,omitempty"`
	}

	commandActionVal struct {
		ValType string `json:"type"`
		Value   string `json:"value"`
	}
)

const (
	f32CanonicalNaNBits  = uint32(0x7fc0_0000)
	f32CanonicalNaNMask  = uint32(0x7fff_ffff)
	f32ArithmeticNaNBits = uint32(0x7fc0_0000)
	f64CanonicalNaNBits  = uint64(0x7ff8_0000_0000_0000)
	f64CanonicalNaNMask  = uint64(0x7fff_ffff_ffff_ffff)
	f64ArithmeticNaNBits = uint64(0x7ff8_0000_0000_0000)
)

func (c commandActionVal) String() string {
	return fmt.Sprintf("{type: %s, value: %v}", c.ValType, c.Value)
}

func (c command) String() string {
	msg := fmt.Sprintf("line: %d, type: %s", c.Line, c.CommandType)
	switch c.CommandType {
	case "register":
		msg += fmt.Sprintf(", name: %s, as: %s", c.Name, c.As)
	case "module":
		msg += fmt.Sprintf(", name: %s, filename: %s", c.Name, c.Filename)
	case "assert_return", "action", "assert_trap", "assert_exhaustion":
		msg += fmt.Sprintf(", action type: %s", c.Action.ActionType)
		if c.Action.Module != "" {
			msg += fmt.Sprintf(", module: %s", c.Action.Module)
		}
		msg += fmt.Sprintf(", field: %s, args: %v, expected: %v", c.Action.Field, c.Action.Args, c.Exps)
		if c.Text != "" {
			msg += ", error text: " + c.Text
		}
	default:
		msg += fmt.Sprintf(", filename: %s, text: %s", c.Filename, c.Text)
	}
	return "{" + msg + "}"
}

// skip returns true when the value uses a feature outside of the scope of this runtime.
func (c commandActionVal) skip() bool {
	return c.ValType == "v128"
}

func (c commandActionVal) toUint64() (ret uint64) {
	switch {
	case strings.HasPrefix(c.Value, "nan:"):
		if c.ValType == "f32" {
			return uint64(f32CanonicalNaNBits)
		}
		return f64CanonicalNaNBits
	case c.ValType == "externref":
		if c.Value == "null" {
			return 0
		}
		// externref 0 is not null in the test suite, but it is here.
		original, _ := strconv.ParseUint(c.Value, 10, 64)
		return original + 1
	case c.ValType == "funcref":
		// The test suite cannot express a non-null funcref.
		return 0
	case strings.Contains(c.ValType, "32"):
		ret, _ = strconv.ParseUint(c.Value, 10, 32)
	default:
		ret, _ = strconv.ParseUint(c.Value, 10, 64)
	}
	return
}

func (c command) args() []uint64 {
	var args []uint64
	for _, arg := range c.Action.Args {
		args = append(args, arg.toUint64())
	}
	return args
}

func (c command) usesSIMD() bool {
	for _, v := range append(append([]commandActionVal{}, c.Action.Args...), c.Exps...) {
		if v.skip() {
			return true
		}
	}
	return false
}

// expectedErrors returns the traps which match the text of assert_trap. Several texts of the test suite map to the
// same trap, and the other way around.
func expectedErrors(text string) []error {
	switch {
	case text == "out of bounds memory access":
		return []error{wasmruntime.ErrRuntimeOutOfBoundsMemoryAccess}
	case strings.HasPrefix(text, "indirect call"):
		return []error{wasmruntime.ErrRuntimeIndirectCallTypeMismatch}
	case text == "undefined element", text == "undefined":
		return []error{wasmruntime.ErrRuntimeUndefinedElement}
	case text == "out of bounds table access":
		return []error{wasmruntime.ErrRuntimeInvalidTableAccess}
	case strings.HasPrefix(text, "uninitialized"):
		return []error{wasmruntime.ErrRuntimeUninitializedElement, wasmruntime.ErrRuntimeUndefinedElement}
	case text == "integer overflow":
		return []error{wasmruntime.ErrRuntimeIntegerOverflow}
	case text == "invalid conversion to integer":
		return []error{wasmruntime.ErrRuntimeInvalidConversionToInteger}
	case text == "integer divide by zero":
		return []error{wasmruntime.ErrRuntimeIntegerDivideByZero}
	case text == "unreachable":
		return []error{wasmruntime.ErrRuntimeUnreachable}
	case text == "call stack exhausted":
		return []error{wasmruntime.ErrRuntimeCallStackOverflow}
	}
	return nil
}

func requireTrap(t *testing.T, err error, text, msg string) {
	require.Error(t, err, msg)
	for _, expected := range expectedErrors(text) {
		if errors.Is(err, expected) {
			return
		}
	}
	require.Contains(t, err.Error(), text, msg)
}

// Run runs every JSON script in the root of testDataFS, resolving the module files relative to it.
func Run(t *testing.T, testDataFS fs.FS, config *treewasm.RuntimeConfig) {
	files, err := fs.ReadDir(testDataFS, ".")
	require.NoError(t, err)

	var jsonfiles []string
	for _, f := range files {
		if filename := f.Name(); strings.HasSuffix(filename, ".json") && !strings.Contains(filename, "simd") {
			jsonfiles = append(jsonfiles, filename)
		}
	}
	require.NotEmpty(t, jsonfiles, "no JSON scripts found")

	for _, f := range jsonfiles {
		raw, err := fs.ReadFile(testDataFS, f)
		require.NoError(t, err)

		var base testbase
		require.NoError(t, json.Unmarshal(raw, &base))

		wastName := basename(base.SourceFile)
		t.Run(wastName, func(t *testing.T) {
			r := treewasm.NewRuntimeWithConfig(testCtx, config.WithCheckedExecution(true))
			defer r.Close(testCtx)

			_, err := hostspectest.Instantiate(testCtx, r, nil)
			require.NoError(t, err)

			s := &script{t: t, fs: testDataFS, r: r, name: wastName}
			for _, c := range base.Commands {
				c := c
				t.Run(fmt.Sprintf("%s/line:%d", c.CommandType, c.Line), func(t *testing.T) {
					s.t = t
					s.run(c)
				})
			}
		})
	}
}

// script is the state of one JSON file.
type script struct {
	t    *testing.T
	fs   fs.FS
	r    treewasm.Runtime
	name string

	lastInstantiatedModuleName string
}

func (s *script) run(c command) {
	t := s.t
	msg := fmt.Sprintf("%s:%d %s", s.name, c.Line, c)
	if c.usesSIMD() {
		t.Skip("SIMD is not supported")
	}

	switch c.CommandType {
	case "module":
		moduleName := c.Name
		if moduleName == "" {
			// Use the file name as the name.
			moduleName = c.Filename
		}
		compiled, err := s.r.DecodeModule(s.readFile(c.Filename))
		require.NoError(t, err, msg)
		_, err = s.r.InstantiateModule(testCtx, compiled, treewasm.NewModuleConfig().WithName(moduleName).WithStartFunctions())
		require.NoError(t, err, msg)
		s.lastInstantiatedModuleName = moduleName
	case "register":
		src := c.Name
		if src == "" {
			src = s.lastInstantiatedModuleName
		}
		mod := s.r.Module(src)
		require.NotNil(t, mod, msg)
		require.NoError(t, s.r.RegisterAlias(mod, c.As), msg)
	case "assert_return", "action":
		switch c.Action.ActionType {
		case "invoke":
			results, types, err := s.invoke(c)
			require.NoError(t, err, msg)
			require.Equal(t, len(c.Exps), len(results), msg)
			for i, exp := range c.Exps {
				requireValueEq(t, results[i], exp, types[i], msg)
			}
		case "get":
			require.Equal(t, 1, len(c.Exps), msg)
			mod := s.r.Module(s.moduleName(c))
			require.NotNil(t, mod, msg)
			global := mod.ExportedGlobal(c.Action.Field)
			require.NotNil(t, global, msg)
			requireValueEq(t, global.Get(), c.Exps[0], global.Type(), msg)
		default:
			t.Fatalf("unsupported action type: %v", c)
		}
	case "assert_trap":
		if c.Action.ActionType != "invoke" {
			t.Fatalf("unsupported action type: %v", c)
		}
		_, _, err := s.invoke(c)
		requireTrap(t, err, c.Text, msg)
	case "assert_exhaustion":
		_, _, err := s.invoke(c)
		require.Error(t, err, msg)
		require.True(t, errors.Is(err, wasmruntime.ErrRuntimeCallStackOverflow), msg)
	case "assert_malformed", "assert_invalid":
		if c.ModuleType == "text" {
			// wast2json writes the text modules as is: there is no text decoder.
			t.Skip("text module")
		}
		_, err := s.r.DecodeModule(s.readFile(c.Filename))
		require.Error(t, err, msg)
	case "assert_unlinkable", "assert_uninstantiable":
		compiled, err := s.r.DecodeModule(s.readFile(c.Filename))
		if err != nil {
			return
		}
		_, err = s.r.InstantiateModule(testCtx, compiled, treewasm.NewModuleConfig().WithName(t.Name()).WithStartFunctions())
		require.Error(t, err, msg)
	default:
		t.Fatalf("unsupported command type: %s", c)
	}
}

func (s *script) readFile(name string) []byte {
	buf, err := fs.ReadFile(s.fs, name)
	require.NoError(s.t, err)
	return buf
}

func (s *script) moduleName(c command) string {
	if c.Action.Module != "" {
		return c.Action.Module
	}
	return s.lastInstantiatedModuleName
}

// invoke calls the function of the action, returning its result types to compare the results with.
func (s *script) invoke(c command) ([]uint64, []api.ValueType, error) {
	mod := s.r.Module(s.moduleName(c))
	require.NotNil(s.t, mod, c.String())
	fn := mod.ExportedFunction(c.Action.Field)
	require.NotNil(s.t, fn, c.String())
	results, err := fn.Call(testCtx, c.args()...)
	return results, fn.ResultTypes(), err
}

// basename avoids filepath.Base to ensure a forward slash is used even in Windows.
func basename(path string) string {
	lastSlash := strings.LastIndexByte(path, '/')
	return path[lastSlash+1:]
}

func requireValueEq(t *testing.T, actual uint64, exp commandActionVal, valType api.ValueType, msg string) {
	expected := exp.toUint64()
	switch valType {
	case api.ValueTypeI32:
		require.Equal(t, uint32(expected), uint32(actual), msg)
	case api.ValueTypeF32:
		require.True(t, f32Equal(exp.Value, uint32(actual), uint32(expected)), "%s: got %#x", msg, uint32(actual))
	case api.ValueTypeF64:
		require.True(t, f64Equal(exp.Value, actual, expected), "%s: got %#x", msg, actual)
	case api.ValueTypeFuncref:
		if exp.Value == "null" {
			require.Zero(t, actual, msg)
		} else {
			require.NotZero(t, actual, msg)
		}
	default:
		require.Equal(t, expected, actual, msg)
	}
}

// f32Equal compares the bits, except an expectation of "nan:canonical" or "nan:arithmetic".
func f32Equal(expValue string, actual, expected uint32) bool {
	switch expValue {
	case "nan:canonical":
		return actual&f32CanonicalNaNMask == f32CanonicalNaNBits
	case "nan:arithmetic":
		return actual&f32ArithmeticNaNBits == f32ArithmeticNaNBits
	}
	return actual == expected
}

// f64Equal is the same as f32Equal for f64.
func f64Equal(expValue string, actual, expected uint64) bool {
	switch expValue {
	case "nan:canonical":
		return actual&f64CanonicalNaNMask == f64CanonicalNaNBits
	case "nan:arithmetic":
		return actual&f64ArithmeticNaNBits == f64ArithmeticNaNBits
	}
	return actual == expected
}
