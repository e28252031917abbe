// Command vkbootstrap brings up a Vulkan device and, with the sdl2 backend, a window
// and swapchain, logging every capability it negotiates along the way.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"

	"github.com/cockroachdb/errors"

	"github.com/vkngwrapper/bootstrap/bootstrap"
	"github.com/vkngwrapper/bootstrap/config"
	"github.com/vkngwrapper/bootstrap/logger"
)

type options struct {
	configPath string
	info       bool
}

func newFlagSet(cfg *config.Config, opts *options) *flag.FlagSet {
	fs := flag.NewFlagSet("vkbootstrap", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", opts.configPath, "path to a YAML config file")
	fs.BoolVar(&opts.info, "info", opts.info, "print the physical devices and exit")
	cfg.BindFlags(fs)
	return fs
}

// parseArgs finds -config first, loads it, then applies the remaining flags on top
// so the command line always wins over the file.
func parseArgs(args []string) (*config.Config, options, error) {
	var opts options
	if err := newFlagSet(config.Default(), &opts).Parse(args); err != nil {
		return nil, opts, err
	}

	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		cfg, err = config.Load(opts.configPath)
		if err != nil {
			return nil, opts, err
		}
	}

	if err := newFlagSet(cfg, &opts).Parse(args); err != nil {
		return nil, opts, err
	}
	return cfg, opts, cfg.Validate()
}

func printDevices(ctx context.Context, b *bootstrap.Bootstrap) error {
	defer b.Destroy()

	if err := b.Inspect(ctx); err != nil {
		return err
	}

	for i, snap := range b.Devices() {
		fmt.Printf("%d: %s\n", i, snap)
	}
	return nil
}

func run(args []string) error {
	cfg, opts, err := parseArgs(args)
	if err != nil {
		return err
	}

	logger.Init(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	b, err := bootstrap.New(cfg)
	if err != nil {
		return err
	}

	if opts.info {
		return printDevices(ctx, b)
	}

	slog.Info("starting", "backend", cfg.Backend, "validation", cfg.Validation)
	return b.Run(ctx)
}

func main() {
	// SDL and the Vulkan loader expect calls from the main thread.
	runtime.LockOSThread()

	err := run(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("%+v\n", err)
	}
}
