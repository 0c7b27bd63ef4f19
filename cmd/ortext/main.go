package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/wippyai/ortext/config"
	"github.com/wippyai/ortext/ep"
	"github.com/wippyai/ortext/internal/refort"
	"github.com/wippyai/ortext/kernel"
	"github.com/wippyai/ortext/operator"
	"github.com/wippyai/ortext/session"
)

func main() {
	var sets settings
	var (
		platforms   = flag.Bool("platforms", false, "Print the CUDA platform table and exit")
		dryRun      = flag.Bool("dry-run", false, "Register against the in-process reference runtime and print the native calls")
		interactive = flag.Bool("i", false, "Interactive option editor")
		verbose     = flag.Bool("v", false, "Log bridge activity to stderr")
	)
	flag.Var(&sets, "set", "CUDA option key=value (repeatable, applied after ORTEXT_CUDA_* variables)")
	flag.Parse()

	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = l.Sync() }()
		session.SetLogger(l.Named("session"))
		ep.SetLogger(l.Named("ep"))
		operator.SetLogger(l.Named("operator"))
		kernel.SetLogger(l.Named("kernel"))
	}

	if *platforms {
		printPlatforms(os.Stdout)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cuda, err := buildCUDA(cfg.CUDA, sets)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if !isTerminal() {
			fmt.Fprintln(os.Stderr, "Error: -i needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(cuda); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	printOptions(os.Stdout, cuda.Options())
	if *dryRun {
		fmt.Println()
		if err := dryRunRegister(os.Stdout, cuda, cfg.ErrorOnProviderFailure); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

func buildCUDA(base config.CUDA, sets []string) (*ep.CUDA, error) {
	cuda, err := base.Provider()
	if err != nil {
		return nil, err
	}
	for _, kv := range sets {
		if err := applySetting(cuda, kv); err != nil {
			return nil, err
		}
	}
	return cuda, nil
}

func printOptions(w io.Writer, opts *ep.Options) {
	if opts.Len() == 0 {
		fmt.Fprintln(w, "# no options set, native defaults apply")
		return
	}
	opts.Each(func(k, v string) {
		fmt.Fprintf(w, "%s=%s\n", k, v)
	})
}

func printPlatforms(w io.Writer) {
	fmt.Fprintf(w, "%s platforms:\n", ep.CUDAName)
	for _, p := range ep.CUDAPlatforms {
		fmt.Fprintf(w, "  %s\n", p)
	}
	current := ep.Platform{OS: runtime.GOOS, Arch: runtime.GOARCH}
	fmt.Fprintf(w, "current: %s (supported: %t)\n", current, ep.Supported(ep.CUDAPlatforms, current.OS, current.Arch))
}

// dryRunRegister runs the full registration path against the reference
// runtime, which records every native call instead of touching a device.
func dryRunRegister(w io.Writer, cuda *ep.CUDA, failOnProvider bool) error {
	ffi, err := cuda.Options().ToFFI()
	if err != nil {
		return err
	}
	ffi.Release()

	r := refort.New()
	b, err := session.NewBuilder(r)
	if err != nil {
		return err
	}
	_, regErr := b.WithErrorOnProviderFailure(failOnProvider).WithExecutionProviders(cuda)
	for _, p := range r.Providers(b.Ptr()) {
		fmt.Fprintf(w, "attached %s (%d options)\n", p.Name, len(p.Keys))
	}
	b.Close()

	fmt.Fprintln(w, "native calls:")
	for _, c := range r.Calls() {
		fmt.Fprintf(w, "  %s\n", c)
	}
	switch {
	case regErr != nil:
		return regErr
	case len(b.RegisteredProviders()) == 0:
		fmt.Fprintf(w, "%s was skipped (platform %s/%s or build tags)\n", cuda.Name(), runtime.GOOS, runtime.GOARCH)
	}
	return nil
}
