// brio - optimizing Brainfuck interpreter and x86-64 JIT
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/brio/cache"
	"github.com/chazu/brio/compiler"
	"github.com/chazu/brio/ir"
	"github.com/chazu/brio/jit"
	"github.com/chazu/brio/manifest"
	"github.com/chazu/brio/optimize"
	"github.com/chazu/brio/vm"
)

var log = commonlog.GetLogger("brio")

func main() {
	m, err := manifest.Load(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	optLevel := flag.String("O", m.Optimize.Level, "Optimization level: none, normal")
	maxIter := flag.Int("max-iterations", m.Optimize.MaxIterations, "Optimizer iteration cap (0 = default)")
	dump := flag.Bool("dump", false, "Print the optimized IR as bytecode text instead of running")
	showInternal := flag.Bool("show-internal", m.Dump.ShowInternal, "Include internal fields as comments when dumping")
	indent := flag.String("indent", m.Dump.Indent, "Dump indentation per loop-nesting level")
	backend := flag.String("backend", m.Run.Backend, "Tape backend: paged, mapped")
	useJIT := flag.Bool("jit", m.Run.JIT, "Execute native code (linux/amd64 only)")
	eofMode := flag.String("eof", m.Run.EOFMode, "EOF policy: none (leave cell), substitute")
	eofByte := flag.Int("eof-byte", m.Run.EOFByte, "Byte stored on EOF in substitute mode")
	bang := flag.Bool("bang", m.Run.Bang, "Split source at the first '!' into program and input")
	cachePath := flag.String("cache", m.Cache.Path, "Optimized-program cache path (empty disables)")
	verbose := flag.Int("v", 0, "Log verbosity (0-2)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: brio [options] program\n\n")
		fmt.Fprintf(os.Stderr, "Runs a Brainfuck program (.b/.bf) or a bytecode-text program (.bt).\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  brio hello.b                # Interpret with normal optimization\n")
		fmt.Fprintf(os.Stderr, "  brio -O none hello.b        # Interpret the raw parse\n")
		fmt.Fprintf(os.Stderr, "  brio -dump hello.b          # Show the optimized bytecode\n")
		fmt.Fprintf(os.Stderr, "  brio -jit -eof substitute mandelbrot.b\n")
		fmt.Fprintf(os.Stderr, "  brio -bang 'prog.b'         # Source carries its input after '!'\n")
	}
	flag.Parse()

	commonlog.Configure(*verbose, nil)

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Parse.
	var prog *ir.Program
	var static []byte
	if strings.EqualFold(filepath.Ext(path), ".bt") {
		prog, err = compiler.ParseText(source)
	} else if *bang {
		prog, static, err = compiler.ParseBrainfuckBang(source)
	} else {
		prog, err = compiler.ParseBrainfuck(source)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log.Infof("parsed %s: %d instructions", path, prog.Len())

	// Optimize, consulting the cache when configured.
	level, ok := optimize.ParseLevel(*optLevel)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown optimization level %q\n", *optLevel)
		os.Exit(2)
	}
	prog = optimized(prog, optimize.Config{Level: level, MaxIterations: *maxIter}, *cachePath, m.Cache.MemEntries)

	if *dump {
		if err := prog.Dump(os.Stdout, ir.DumpOptions{Indent: *indent, ShowInternal: *showInternal}); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	mode, eb, err := eofPolicy(*eofMode, *eofByte)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if *useJIT {
		runJIT(prog, static, mode, eb)
		return
	}
	runInterpreter(prog, static, *backend, mode, eb)
}

// optimized returns the optimized program, going through the cache when a
// path is configured.
func optimized(prog *ir.Program, cfg optimize.Config, path string, memEntries int) *ir.Program {
	if path == "" || cfg.Level == optimize.LevelNone {
		return optimize.Optimize(prog, cfg)
	}
	store, err := cache.Open(path, memEntries)
	if err != nil {
		log.Warningf("cache disabled: %v", err)
		return optimize.Optimize(prog, cfg)
	}
	defer store.Close()

	key := prog.Hash()
	if hit, ok := store.Get(key); ok {
		log.Infof("cache hit for %x", key[:8])
		return hit
	}
	out := optimize.Optimize(prog, cfg)
	if err := store.Put(key, out); err != nil {
		log.Warningf("cache store failed: %v", err)
	}
	return out
}

func eofPolicy(mode string, b int) (vm.EOFMode, byte, error) {
	if b < 0 || b > 255 {
		return 0, 0, fmt.Errorf("eof-byte %d out of range", b)
	}
	switch mode {
	case "", "none":
		return vm.EOFNoChange, 0, nil
	case "substitute":
		return vm.EOFSubstitute, byte(b), nil
	}
	return 0, 0, fmt.Errorf("unknown eof mode %q", mode)
}

func runInterpreter(prog *ir.Program, static []byte, backend string, mode vm.EOFMode, eofByte byte) {
	var tape vm.Tape
	switch backend {
	case "", "paged":
		tape = vm.NewPagedTape()
	case "mapped":
		mt, err := vm.NewMappedTape()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		tape = mt
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown tape backend %q\n", backend)
		os.Exit(2)
	}
	defer tape.Release()

	var in io.Reader = os.Stdin
	if static != nil {
		in = bytes.NewReader(static)
	}
	it := vm.New(prog, tape, in, os.Stdout, vm.Options{EOFMode: mode, EOFByte: eofByte})
	for {
		st, err := it.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if st == vm.StatusBreakpoint {
			log.Noticef("breakpoint at pc=%d, head=%d", it.PC(), tape.Head())
			it.Advance()
			continue
		}
		return
	}
}

func runJIT(prog *ir.Program, static []byte, mode vm.EOFMode, eofByte byte) {
	if !jit.Supported() {
		fmt.Fprintf(os.Stderr, "Error: JIT not supported on this host\n")
		os.Exit(1)
	}
	in := os.Stdin
	if static != nil {
		r, w, err := os.Pipe()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		go func() {
			w.Write(static)
			w.Close()
		}()
		in = r
	}
	ret, err := jit.Run(prog, in, os.Stdout, mode, eofByte)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v (status %d)\n", err, ret)
		os.Exit(1)
	}
}
