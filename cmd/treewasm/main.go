package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/treewasm/treewasm"
	"github.com/treewasm/treewasm/api"
	"github.com/treewasm/treewasm/imports/wasi_snapshot_preview1"
	"github.com/treewasm/treewasm/internal/logging"
	"github.com/treewasm/treewasm/sys"
)

func main() {
	doMain(os.Stdout, os.Stderr, os.Exit)
}

// doMain is separated out for the purpose of unit testing.
func doMain(stdOut, stdErr io.Writer, exit func(code int)) {
	flag.CommandLine.SetOutput(stdErr)

	var help bool
	flag.BoolVar(&help, "h", false, "print usage")

	var checked bool
	flag.BoolVar(&checked, "checked", false, "check operand types and stack heights at runtime")

	var maxSteps uint64
	flag.Uint64Var(&maxSteps, "max-steps", 0, "trap after this many instructions. Zero is unlimited.")

	var stackLimit int
	flag.IntVar(&stackLimit, "stack-limit", 0, "maximum call depth. Zero uses the default.")

	var logLevel string
	flag.StringVar(&logLevel, "log-level", "error", "one of debug, info, warn or error")

	var envs sliceFlag
	flag.Var(&envs, "env", "key=value pair of environment variable to expose to the binary. "+
		"Can be specified multiple times.")

	var mount string
	flag.StringVar(&mount, "mount", "", "host directory to expose to the binary as \"/\"")

	var list bool
	flag.BoolVar(&list, "list", false, "list exported functions and exit")

	var interactive bool
	flag.BoolVar(&interactive, "i", false, "choose and call exported functions in a terminal UI")

	flag.Parse()

	if help {
		printUsage(stdErr)
		exit(0)
	}

	if flag.NArg() < 1 {
		fmt.Fprintln(stdErr, "missing path to wasm file")
		printUsage(stdErr)
		exit(1)
	}
	wasmPath := flag.Arg(0)

	// "--" passes the rest to _start as WASI arguments, otherwise an export name may follow.
	var exportName string
	var callArgs, wasmArgs []string
	if rest := flag.Args()[1:]; len(rest) > 0 {
		if rest[0] == "--" {
			wasmArgs = rest[1:]
		} else {
			exportName, callArgs = rest[0], rest[1:]
		}
	}

	// Don't use map to preserve order
	var env []string
	for _, e := range envs {
		fields := strings.SplitN(e, "=", 2)
		if len(fields) != 2 {
			fmt.Fprintf(stdErr, "invalid environment variable: %s\n", e)
			exit(1)
		}
		env = append(env, fields[0], fields[1])
	}

	logger, err := newLogger(logLevel, stdErr)
	if err != nil {
		fmt.Fprintf(stdErr, "invalid log level: %v\n", err)
		exit(1)
	}
	defer logger.Sync() //nolint

	if interactive && !isTerminal(stdOut) {
		fmt.Fprintln(stdErr, "interactive mode requires a terminal")
		exit(1)
	}

	wasm, err := os.ReadFile(wasmPath)
	if err != nil {
		fmt.Fprintf(stdErr, "error reading wasm binary: %v\n", err)
		exit(1)
	}

	ctx := context.Background()

	rtc := treewasm.NewRuntimeConfig().WithCheckedExecution(checked).WithLogger(logger)
	if maxSteps > 0 {
		rtc = rtc.WithInstructionLimit(maxSteps)
	}
	if stackLimit > 0 {
		rtc = rtc.WithCallStackLimit(stackLimit)
	}

	rt := treewasm.NewRuntimeWithConfig(ctx, rtc)
	defer rt.Close(ctx)

	code, err := rt.DecodeModule(wasm)
	if err != nil {
		fmt.Fprintf(stdErr, "error decoding wasm binary: %v\n", err)
		exit(1)
	}

	if list {
		printExports(stdOut, code.ExportedFunctions())
		exit(0)
	}

	// Because we are running a binary directly rather than embedding in an application,
	// we default to wiring up commonly used OS functionality.
	if needsWASI(code.ImportedFunctions()) {
		conf := wasi_snapshot_preview1.NewConfig().
			WithStdout(stdOut).
			WithStderr(stdErr).
			WithStdin(os.Stdin).
			WithRandSource(rand.Reader).
			WithLogger(logger).
			WithArgs(append([]string{filepath.Base(wasmPath)}, wasmArgs...)...)
		for i := 0; i < len(env); i += 2 {
			conf = conf.WithEnv(env[i], env[i+1])
		}
		if mount != "" {
			conf = conf.WithMount(mount)
		}
		if _, err = wasi_snapshot_preview1.Instantiate(ctx, rt, conf); err != nil {
			fmt.Fprintf(stdErr, "error instantiating WASI: %v\n", err)
			exit(1)
		}
	}

	mc := treewasm.NewModuleConfig()
	if exportName != "" || interactive {
		mc = mc.WithStartFunctions()
	}
	mod, err := rt.InstantiateModule(ctx, code, mc)
	if err != nil {
		exitOnError(stdErr, "error instantiating wasm binary", err, exit)
	}

	if interactive {
		if err = runInteractive(mod, filepath.Base(wasmPath), code.ExportedFunctions()); err != nil {
			fmt.Fprintf(stdErr, "error running interactive mode: %v\n", err)
			exit(1)
		}
		exit(0)
	}

	if exportName == "" {
		// We're done, _start was called as part of instantiating the module.
		exit(0)
	}

	fn := mod.ExportedFunction(exportName)
	if fn == nil {
		fmt.Fprintf(stdErr, "%q is not an exported function\n", exportName)
		exit(1)
	}

	params, err := parseArgs(fn.ParamTypes(), callArgs)
	if err != nil {
		fmt.Fprintf(stdErr, "invalid arguments to %s: %v\n", exportName, err)
		exit(1)
	}

	results, err := fn.Call(ctx, params...)
	if err != nil {
		exitOnError(stdErr, "error calling "+exportName, err, exit)
	}
	fmt.Fprint(stdOut, formatResults(fn.ResultTypes(), results))
	exit(0)
}

// exitOnError exits with the guest's code when it called proc_exit, or 1 otherwise.
func exitOnError(stdErr io.Writer, msg string, err error, exit func(code int)) {
	var exitErr *sys.ExitError
	if errors.As(err, &exitErr) {
		exit(int(exitErr.ExitCode()))
	}
	fmt.Fprintf(stdErr, "%s: %v\n", msg, err)
	exit(1)
}

func needsWASI(imports []treewasm.FunctionDefinition) bool {
	for _, f := range imports {
		if f.ModuleName == wasi_snapshot_preview1.ModuleName {
			return true
		}
	}
	return false
}

// newLogger writes human-readable entries at debug level and JSON otherwise.
func newLogger(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoder := zapcore.NewJSONEncoder(encoderConfig)
	if lvl == zapcore.DebugLevel {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(w), lvl)), nil
}

// parseArgs encodes each argument according to the corresponding parameter type.
func parseArgs(types []api.ValueType, args []string) ([]uint64, error) {
	if len(types) != len(args) {
		return nil, fmt.Errorf("expected %d arguments, but have %d", len(types), len(args))
	}
	params := make([]uint64, len(args))
	for i, arg := range args {
		v, err := parseArg(types[i], arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		params[i] = v
	}
	return params, nil
}

// parseArg accepts signed or unsigned integers in any base strconv understands. References are either "null" or
// the raw reference value.
func parseArg(vt api.ValueType, arg string) (uint64, error) {
	switch vt {
	case api.ValueTypeI32:
		if v, err := strconv.ParseInt(arg, 0, 32); err == nil {
			return api.EncodeI32(int32(v)), nil
		}
		v, err := strconv.ParseUint(arg, 0, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid i32 %q", arg)
		}
		return api.EncodeU32(uint32(v)), nil
	case api.ValueTypeI64:
		if v, err := strconv.ParseInt(arg, 0, 64); err == nil {
			return api.EncodeI64(v), nil
		}
		v, err := strconv.ParseUint(arg, 0, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid i64 %q", arg)
		}
		return v, nil
	case api.ValueTypeF32:
		v, err := strconv.ParseFloat(arg, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid f32 %q", arg)
		}
		return api.EncodeF32(float32(v)), nil
	case api.ValueTypeF64:
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid f64 %q", arg)
		}
		return api.EncodeF64(v), nil
	case api.ValueTypeExternref, api.ValueTypeFuncref:
		if arg == "null" {
			return 0, nil
		}
		v, err := strconv.ParseUint(arg, 0, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q", api.ValueTypeName(vt), arg)
		}
		return v, nil
	}
	return 0, fmt.Errorf("unsupported type %s", api.ValueTypeName(vt))
}

// formatResults writes one result per line.
func formatResults(types []api.ValueType, results []uint64) string {
	var b strings.Builder
	for i, r := range results {
		b.WriteString(logging.ValueString(types[i], r))
		b.WriteByte('\n')
	}
	return b.String()
}

func signature(f treewasm.FunctionDefinition) string {
	params := make([]string, len(f.ParamTypes))
	for i, p := range f.ParamTypes {
		params[i] = api.ValueTypeName(p)
	}
	ret := f.Name + "(" + strings.Join(params, ", ") + ")"
	switch len(f.ResultTypes) {
	case 0:
	case 1:
		ret += " -> " + api.ValueTypeName(f.ResultTypes[0])
	default:
		results := make([]string, len(f.ResultTypes))
		for i, r := range f.ResultTypes {
			results[i] = api.ValueTypeName(r)
		}
		ret += " -> (" + strings.Join(results, ", ") + ")"
	}
	return ret
}

func printExports(w io.Writer, exports []treewasm.FunctionDefinition) {
	for _, f := range exports {
		fmt.Fprintln(w, signature(f))
	}
}

func printUsage(stdErr io.Writer) {
	fmt.Fprintln(stdErr, "treewasm CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  treewasm <options> <path to wasm file> [<export> <args>...]\n  treewasm <options> <path to wasm file> -- <wasm args>")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Options:")
	flag.PrintDefaults()
}

type sliceFlag []string

func (f *sliceFlag) String() string {
	return strings.Join(*f, ",")
}

func (f *sliceFlag) Set(s string) error {
	*f = append(*f, s)
	return nil
}
