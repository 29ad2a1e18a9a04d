// Command dseedconv detects and converts image and audio files.
//
// Usage:
//
//	dseedconv [-config dseed.yaml] [-to png] [-out dir] [-info] [-meta] [-v] files...
//
// Images are decoded with the configured codec registry and re-encoded as
// dib, png, jpeg, ico, cur or ktx2. WAV audio is resampled and downmixed
// per the audio section of the configuration and written back as wav.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/config"
	"github.com/daramkun/dseed/internal/parallel"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("dseedconv", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		cfgPath = fs.String("config", "", "YAML configuration file")
		to      = fs.String("to", "", "output format: dib, png, jpeg, ico, cur, ktx2 or wav")
		outDir  = fs.String("out", "", "output directory (default: next to the input)")
		info    = fs.Bool("info", false, "print what was detected")
		meta    = fs.Bool("meta", false, "write attributes as a msgpack .meta sidecar")
		verbose = fs.Bool("v", false, "debug logging")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "dseedconv: no input files")
		fs.Usage()
		return 2
	}

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			fmt.Fprintln(stderr, "dseedconv:", err)
			return 1
		}
	}
	log := cfg.Log.Logger(stderr, *verbose)
	dseed.SetLogger(log)
	defer dseed.SetLogger(nil)

	conv, err := newConverter(cfg, *to, *outDir, *info, *meta, stdout)
	if err != nil {
		fmt.Fprintln(stderr, "dseedconv:", err)
		return 2
	}

	pool := parallel.New(cfg.Workers)
	defer pool.Close()

	inputs := fs.Args()
	jobs := make([]parallel.Job, len(inputs))
	for i, in := range inputs {
		jobs[i] = func(ctx context.Context) error { return conv.convert(ctx, in) }
	}
	log.Info("dseedconv: start", "inputs", len(inputs), "workers", pool.Workers(), "to", *to)

	failed := 0
	for i, err := range pool.Run(ctx, jobs) {
		if err == nil {
			continue
		}
		failed++
		log.Error("dseedconv: failed", "input", inputs[i], "code", int32(dseed.CodeOf(err)), "err", err)
	}
	log.Info("dseedconv: done", "ok", len(inputs)-failed, "failed", failed)
	if failed > 0 {
		return 1
	}
	return 0
}
