// Package wasi_snapshot_preview1 contains Go-defined functions to access system calls, such as opening a file,
// similar to Go's x/sys package. These are accessible from WebAssembly-defined functions via importing ModuleName.
// All WASI functions return a single Errno result: ErrnoSuccess on success.
//
// Ex. Call Instantiate before instantiating any wasm binary that imports "wasi_snapshot_preview1", Otherwise, it will
// error due to missing imports.
//
//	ctx := context.Background()
//	r := treewasm.NewRuntime(ctx)
//	defer r.Close(ctx) // This closes everything this Runtime created.
//
//	wasi_snapshot_preview1.MustInstantiate(ctx, r, wasi_snapshot_preview1.NewConfig().WithArgs("app"))
//	mod, _ := r.InstantiateModuleFromBinary(ctx, wasm)
//
// See https://github.com/WebAssembly/WASI
package wasi_snapshot_preview1

import (
	"context"
	"crypto/rand"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/treewasm/treewasm"
	"github.com/treewasm/treewasm/api"
	"github.com/treewasm/treewasm/internal/logging"
	"github.com/treewasm/treewasm/internal/wasm"
)

// ModuleName is the module name WASI functions are exported into.
//
// See https://github.com/WebAssembly/WASI/blob/snapshot-01/phases/snapshot/docs.md
const ModuleName = "wasi_snapshot_preview1"

const (
	i32, i64 = api.ValueTypeI32, api.ValueTypeI64
)

// Config configures the host resources visible to the guest. Each With* method returns a new instance.
type Config struct {
	args     []string
	environ  []string
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	mount    string
	walltime func() time.Time
	nanotime func() int64
	random   io.Reader
	logger   *zap.Logger
}

// NewConfig returns a configuration with no arguments, no environment, no file system, stdin at EOF and output
// discarded.
func NewConfig() *Config {
	start := time.Now()
	return &Config{
		walltime: time.Now,
		nanotime: func() int64 { return int64(time.Since(start)) },
		random:   rand.Reader,
	}
}

func (c *Config) clone() *Config {
	ret := *c
	return &ret
}

// WithArgs assigns command-line arguments, read by "args_get". Defaults to none.
//
// Similar to os.Args and exec.Cmd Env, many implementations would expect a program name to be argv[0].
func (c *Config) WithArgs(args ...string) *Config {
	ret := c.clone()
	ret.args = args
	return ret
}

// WithEnv adds an environment variable, read by "environ_get". Defaults to none.
func (c *Config) WithEnv(key, value string) *Config {
	ret := c.clone()
	ret.environ = append(append([]string(nil), c.environ...), key+"="+value)
	return ret
}

// WithStdin configures where standard input (file descriptor 0) is read. Defaults to return io.EOF.
//
// Note: This does not default to os.Stdin as that both violates sandboxing and prevents concurrent modules.
func (c *Config) WithStdin(stdin io.Reader) *Config {
	ret := c.clone()
	ret.stdin = stdin
	return ret
}

// WithStdout configures where standard output (file descriptor 1) is written. Defaults to io.Discard.
func (c *Config) WithStdout(stdout io.Writer) *Config {
	ret := c.clone()
	ret.stdout = stdout
	return ret
}

// WithStderr configures where standard error (file descriptor 2) is written. Defaults to io.Discard.
func (c *Config) WithStderr(stderr io.Writer) *Config {
	ret := c.clone()
	ret.stderr = stderr
	return ret
}

// WithMount preopens the host directory as "/", file descriptor 3. Paths opened by the guest cannot escape it.
// Defaults to no file system.
func (c *Config) WithMount(hostDir string) *Config {
	ret := c.clone()
	ret.mount = hostDir
	return ret
}

// WithClock replaces the sources of "clock_time_get", for reproducible tests.
func (c *Config) WithClock(walltime func() time.Time, nanotime func() int64) *Config {
	ret := c.clone()
	ret.walltime, ret.nanotime = walltime, nanotime
	return ret
}

// WithRandSource replaces the source of "random_get". Defaults to crypto/rand.
func (c *Config) WithRandSource(source io.Reader) *Config {
	ret := c.clone()
	ret.random = source
	return ret
}

// WithLogger logs each WASI call which fails, at debug level.
func (c *Config) WithLogger(logger *zap.Logger) *Config {
	ret := c.clone()
	ret.logger = logger
	return ret
}

// MustInstantiate calls Instantiate or panics on error.
//
// This is a simpler function for those who know the module ModuleName is not already instantiated, and don't need
// to unload it.
func MustInstantiate(ctx context.Context, r treewasm.Runtime, config *Config) api.Module {
	mod, err := Instantiate(ctx, r, config)
	if err != nil {
		panic(err)
	}
	return mod
}

// Instantiate instantiates the ModuleName module into the runtime. A nil config uses NewConfig.
//
// # Notes
//
//   - Failure cases are documented on treewasm.Runtime InstantiateModule.
//   - Closing the treewasm.Runtime has the same effect as closing the result.
//   - Files opened by the guest stay open until it calls "fd_close".
func Instantiate(ctx context.Context, r treewasm.Runtime, config *Config) (api.Module, error) {
	if config == nil {
		config = NewConfig()
	}
	s, err := newSysContext(config)
	if err != nil {
		return nil, err
	}
	b := r.NewHostModuleBuilder(ModuleName)
	for _, f := range functions() {
		b.ExportFunction(f.name, f.goFunc(s), f.params, f.results)
	}
	return b.Instantiate(ctx)
}

// hostFunc is a WASI function before it is bound to its sysContext.
type hostFunc struct {
	name    string
	params  []api.ValueType
	results []api.ValueType
	fn      func(s *sysContext, ctx context.Context, mod api.Module, params []uint64) Errno
}

// goFunc binds the function to s, writing its Errno as the only result.
func (f *hostFunc) goFunc(s *sysContext) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		errno := f.fn(s, ctx, mod, stack)
		if errno != ErrnoSuccess {
			s.logger.Debug("wasi call failed", zap.String("function", f.name), zap.String("errno", ErrnoName(errno)))
		}
		if len(f.results) > 0 {
			stack[0] = uint64(errno)
		}
	}
}

// wasiFunc declares a function of the params returning an Errno.
func wasiFunc(name string, fn func(s *sysContext, ctx context.Context, mod api.Module, params []uint64) Errno, params ...api.ValueType) *hostFunc {
	return &hostFunc{name: name, params: params, results: []api.ValueType{i32}, fn: fn}
}

// functions are the exports of ModuleName.
func functions() []*hostFunc {
	return []*hostFunc{
		argsGet, argsSizesGet, environGet, environSizesGet,
		clockResGet, clockTimeGet, randomGet,
		fdClose, fdFdstatGet, fdFilestatGet, fdPrestatGet, fdPrestatDirName, fdRead, fdSeek, fdWrite, pathOpen,
		pollOneoff, procExit, schedYield,
	}
}

// memory returns the memory of the caller, which WASI functions read their params from and write results to.
func memory(mod api.Module) api.Memory {
	if mem := mod.Memory(); mem != nil {
		return mem
	}
	// An empty memory makes any access fail with ErrnoFault.
	return &wasm.MemoryInstance{}
}

// newLogger returns the logger of the config, or the package-level one.
func newLogger(c *Config) *zap.Logger {
	return logging.Or(c.logger).Named(ModuleName)
}

// eofReader is the default stdin.
type eofReader struct{}

func (eofReader) Read([]byte) (int, error) {
	return 0, io.EOF
}
