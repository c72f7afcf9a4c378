package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/bsrc/internal/frame"
	"github.com/srg/bsrc/internal/registry"
	"github.com/srg/bsrc/internal/transport"
	"github.com/srg/bsrc/pkg/config"
	"github.com/srg/bsrc/pkg/stream"
)

// catCmd represents the cat command
var catCmd = &cobra.Command{
	Use:   "cat <target>...",
	Short: "Stream one or more sources to stdout",
	Long: fmt.Sprintf(`Opens every target at once and prefetches each into its own bounded buffer,
then writes them to stdout in order. Output is drained once per frame and never
waits on a source; a source that is slow only leaves its frame empty.

Targets: %s

Examples:
  # Concatenate a file and a TCP feed
  bsrc cat ./header.bin tcp://127.0.0.1:9000

  # Small buffer, live status line on stderr
  bsrc cat --capacity 4096 --status ws://localhost:8080/feed

  # Keep only the last 256 bytes of a command's output
  bsrc cat --tail=256 "exec:dmesg"

  # Report per-stream counters as JSON on stderr
  bsrc cat --stats - < capture.bin > /dev/null`, supportedTargets),
	Args: cobra.MinimumNArgs(1),
	RunE: runCat,
}

const tailFromConfig = -1

var (
	catCapacity int
	catFrame    string
	catBudget   int
	catStatus   bool
	catStats    bool
	catTail     int
)

func init() {
	def := config.DefaultConfig()
	catCmd.Flags().IntVar(&catCapacity, "capacity", def.Capacity, "Max unread bytes buffered per source")
	catCmd.Flags().StringVar(&catFrame, "frame", def.FrameInterval.String(), "Frame interval (e.g., 16ms, 1s)")
	catCmd.Flags().IntVar(&catBudget, "budget", def.FrameBudget, "Max bytes drained per frame")
	catCmd.Flags().BoolVar(&catStatus, "status", false, "Show a live status line on stderr")
	catCmd.Flags().BoolVar(&catStats, "stats", false, "Print per-stream statistics as JSON on stderr when done")
	catCmd.Flags().IntVar(&catTail, "tail", 0, "Print only the last N bytes; history_size from the config if no value given")
	catCmd.Flags().Lookup("tail").NoOptDefVal = fmt.Sprint(tailFromConfig)
}

// catTarget pairs a registered stream with the target it was opened from.
type catTarget struct {
	name   string
	target string
}

func runCat(cmd *cobra.Command, args []string) error {
	logger, cfg, err := configureLogger(cmd)
	if err != nil {
		return err
	}
	if err := applyCatFlags(cmd, cfg); err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	reg := registry.New(logger)
	defer reg.CloseAll()

	targets, err := openTargets(ctx, cmd, args, cfg, logger, reg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var history *frame.History
	if cmd.Flags().Changed("tail") {
		history = frame.NewHistory(cfg.HistorySize)
		out = io.Discard
	}

	var reports []*streamReport
	runErr := func() error {
		for _, t := range targets {
			src, ok := reg.Get(t.name)
			if !ok {
				return fmt.Errorf("%s: stream vanished from registry", t.target)
			}

			pump, err := frame.NewPump(src, out, &frame.Options{
				Name:         t.target,
				Interval:     cfg.FrameInterval,
				Budget:       cfg.FrameBudget,
				History:      history,
				StatusEvents: cfg.StatusEvents,
				Logger:       logger,
			})
			if err != nil {
				return err
			}

			err = drainTarget(ctx, cmd, pump)
			reports = append(reports, newStreamReport(t.name, t.target, src.Stats(), pump))
			if err != nil {
				return fmt.Errorf("%s: %w", t.target, err)
			}

			if err := reg.Remove(t.name); err != nil {
				logger.WithError(err).Warn("failed to remove stream")
			}
		}
		return nil
	}()

	if history != nil && runErr == nil {
		if _, err := cmd.OutOrStdout().Write(history.Bytes()); err != nil {
			return fmt.Errorf("failed to write tail: %w", err)
		}
	}
	if catStats {
		if err := writeStats(cmd.ErrOrStderr(), reports); err != nil {
			return errors.Join(runErr, err)
		}
	}
	return runErr
}

func applyCatFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("capacity") {
		cfg.Capacity = catCapacity
	}
	if flags.Changed("frame") {
		interval, err := time.ParseDuration(catFrame)
		if err != nil {
			return fmt.Errorf("invalid frame interval: %w", err)
		}
		cfg.FrameInterval = interval
	}
	if flags.Changed("budget") {
		cfg.FrameBudget = catBudget
	}
	if flags.Changed("tail") {
		switch {
		case catTail == tailFromConfig:
		case catTail <= 0:
			return fmt.Errorf("invalid --tail %d: must be > 0", catTail)
		default:
			cfg.HistorySize = catTail
		}
		if cfg.HistorySize <= 0 {
			return fmt.Errorf("--tail needs a size: history_size is %d", cfg.HistorySize)
		}
	}
	return cfg.Validate()
}

// openTargets dials every target concurrently and registers a prefetching
// stream for each. On failure, everything opened so far is closed.
func openTargets(ctx context.Context, cmd *cobra.Command, args []string, cfg *config.Config, logger *logrus.Logger, reg *registry.Registry) ([]catTarget, error) {
	readers := make([]io.ReadCloser, len(args))
	errs := make([]error, len(args))

	var wg sync.WaitGroup
	for i, target := range args {
		wg.Add(1)
		go func() {
			defer wg.Done()
			readers[i], errs[i] = transport.Open(ctx, target, &transport.Options{
				DialTimeout: cfg.DialTimeout,
				Logger:      logger,
				Stdin:       cmd.InOrStdin(),
			})
		}()
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		for _, rc := range readers {
			if rc != nil {
				_ = rc.Close()
			}
		}
		return nil, err
	}

	targets := make([]catTarget, 0, len(args))
	for i, target := range args {
		name := fmt.Sprintf("%d:%s", i, target)
		src, err := stream.New(readers[i], cfg.Capacity, &stream.Options{
			Name:        name,
			Logger:      logger,
			CloseSource: cfg.CloseSource,
		})
		if err == nil {
			err = reg.Add(src)
		}
		if err != nil {
			if src != nil {
				// the producer may be parked in readers[i].Read
				if !cfg.CloseSource {
					_ = readers[i].Close()
				}
				_ = src.Close()
			} else {
				_ = readers[i].Close()
			}
			for _, rc := range readers[i+1:] {
				_ = rc.Close()
			}
			return nil, fmt.Errorf("%s: %w", target, err)
		}
		targets = append(targets, catTarget{name: name, target: target})
	}
	return targets, nil
}

func drainTarget(ctx context.Context, cmd *cobra.Command, pump *frame.Pump) error {
	if !catStatus {
		return pump.Run(ctx)
	}
	status := NewStatusPrinter(cmd.ErrOrStderr(), pump.Latest)
	status.Start()
	defer status.Stop()
	return pump.Run(ctx)
}
