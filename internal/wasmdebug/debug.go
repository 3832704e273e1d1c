// Package wasmdebug builds the error returned by a call which trapped or panicked, with the stack of the wasm
// functions which were running.
package wasmdebug

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/treewasm/treewasm/api"
	"github.com/treewasm/treewasm/internal/wasmruntime"
	"github.com/treewasm/treewasm/sys"
)

// FuncName returns the name of the function for a stack trace: the module name, a dot and the function name, or
// "$" and its index when the function has no name.
//
// Ex. "math.add", "math.$2"
func FuncName(moduleName, funcName string, funcIdx uint32) string {
	var ret strings.Builder
	ret.WriteString(moduleName)
	ret.WriteByte('.')
	if funcName == "" {
		ret.WriteByte('$')
		ret.WriteString(strconv.Itoa(int(funcIdx)))
	} else {
		ret.WriteString(funcName)
	}
	return ret.String()
}

// signature returns a formatted signature similar to how it is defined in Go.
//
// * paramTypes should be from wasm.FunctionType
// * resultTypes should be from wasm.FunctionType
func signature(funcName string, paramTypes []api.ValueType, resultTypes []api.ValueType) string {
	var ret strings.Builder
	ret.WriteString(funcName)

	ret.WriteByte('(')
	for i, t := range paramTypes {
		if i > 0 {
			ret.WriteByte(',')
		}
		ret.WriteString(api.ValueTypeName(t))
	}
	ret.WriteByte(')')

	switch len(resultTypes) {
	case 0:
	case 1:
		ret.WriteByte(' ')
		ret.WriteString(api.ValueTypeName(resultTypes[0]))
	default:
		ret.WriteString(" (")
		for i, t := range resultTypes {
			if i > 0 {
				ret.WriteByte(',')
			}
			ret.WriteString(api.ValueTypeName(t))
		}
		ret.WriteByte(')')
	}
	return ret.String()
}

// ErrorBuilder helps build consistent errors, particularly adding a WASM stack trace.
//
// AddFrame should be called beginning at the frame that panicked until no more frames exist. Once done, call
// FromRecovered.
type ErrorBuilder interface {
	// AddFrame adds the next frame.
	//
	// * funcName should be from FuncName
	// * paramTypes should be from wasm.FunctionType
	// * resultTypes should be from wasm.FunctionType
	AddFrame(funcName string, paramTypes, resultTypes []api.ValueType)

	// FromRecovered returns an error with the wasm stack trace appended to it.
	FromRecovered(recovered interface{}) error
}

// NewErrorBuilder returns an ErrorBuilder with no frames.
func NewErrorBuilder() ErrorBuilder {
	return &stackTrace{}
}

// MaxFrames is the maximum number of frames in a stack trace. Deeper stacks, typically from unbounded recursion,
// are cut with a trailing note.
const MaxFrames = 30

type stackTrace struct {
	// frameCount is the number of frames added, at most MaxFrames.
	frameCount int
	lines      []string
}

// AddFrame implements ErrorBuilder.AddFrame
func (s *stackTrace) AddFrame(funcName string, paramTypes, resultTypes []api.ValueType) {
	if s.frameCount == MaxFrames {
		return
	}
	s.frameCount++
	s.lines = append(s.lines, signature(funcName, paramTypes, resultTypes))
	if s.frameCount == MaxFrames {
		s.lines = append(s.lines, "... maybe followed by omitted frames")
	}
}

// FromRecovered implements ErrorBuilder.FromRecovered
func (s *stackTrace) FromRecovered(recovered interface{}) error {
	// proc_exit and friends are not failures of the guest, so they are returned as is.
	if exitErr, ok := recovered.(*sys.ExitError); ok {
		return exitErr
	}

	stack := strings.Join(s.lines, "\n\t")

	// If the error was a runtime error, it means that the engine itself has a bug, or the module was not validated.
	// Include the Go stack trace so that it can be found.
	if runtimeErr, ok := recovered.(runtime.Error); ok {
		return fmt.Errorf("%w (recovered by treewasm)\nwasm stack trace:\n\t%s\n\nGo runtime stack trace:\n%s",
			runtimeErr, stack, debug.Stack())
	}

	if err, ok := recovered.(error); ok {
		if wasmruntime.IsTrap(err) {
			return fmt.Errorf("wasm error: %w\nwasm stack trace:\n\t%s", err, stack)
		}
		return fmt.Errorf("%w (recovered by treewasm)\nwasm stack trace:\n\t%s", err, stack)
	}
	return fmt.Errorf("%v (recovered by treewasm)\nwasm stack trace:\n\t%s", recovered, stack)
}
