package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/srg/bsrc/internal/transport"
	"github.com/srg/bsrc/pkg/stream"
)

// probeCmd represents the probe command
var probeCmd = &cobra.Command{
	Use:   "probe <target>",
	Short: "Hex-dump the first bytes of a source",
	Long: fmt.Sprintf(`Opens a target, waits until enough bytes are buffered (or the source ends, or
the timeout elapses) and prints a hex dump of what arrived. Waiting polls the
buffer; the read itself never blocks.

Targets: %s

Examples:
  # First 16 bytes of a file
  bsrc probe ./firmware.bin

  # Wait up to 2s for 64 bytes from a TCP service
  bsrc probe --bytes 64 --timeout 2s tcp://127.0.0.1:9000`, supportedTargets),
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

const probePollInterval = 5 * time.Millisecond

var (
	probeBytes   int
	probeTimeout time.Duration
)

func init() {
	probeCmd.Flags().IntVar(&probeBytes, "bytes", 16, "Number of bytes to wait for")
	probeCmd.Flags().DurationVar(&probeTimeout, "timeout", 5*time.Second, "Max time to wait for the bytes")
}

func runProbe(cmd *cobra.Command, args []string) error {
	target := args[0]
	if probeBytes <= 0 {
		return fmt.Errorf("invalid --bytes %d: must be > 0", probeBytes)
	}
	if probeTimeout <= 0 {
		return fmt.Errorf("invalid --timeout %v: must be > 0", probeTimeout)
	}

	logger, cfg, err := configureLogger(cmd)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rc, err := transport.Open(ctx, target, &transport.Options{
		DialTimeout: cfg.DialTimeout,
		Logger:      logger,
		Stdin:       cmd.InOrStdin(),
	})
	if err != nil {
		return err
	}

	src, err := stream.New(rc, max(cfg.Capacity, probeBytes), &stream.Options{
		Name:        target,
		Logger:      logger,
		CloseSource: true,
	})
	if err != nil {
		_ = rc.Close()
		return err
	}
	defer src.Close()

	if err := waitForBytes(ctx, src, probeBytes, probeTimeout); err != nil {
		return err
	}

	data, terminal := takeBytes(src, probeBytes)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "target:   %s\n", target)
	fmt.Fprintf(out, "received: %d of %d bytes\n", len(data), probeBytes)
	fmt.Fprintf(out, "source:   %s\n", terminalLabel(src.Err()))
	if len(data) > 0 {
		fmt.Fprint(out, hex.Dump(data))
	}

	if terminal != nil && !isCleanFinish(terminal) {
		return fmt.Errorf("%s: %w", target, terminal)
	}
	return nil
}

// waitForBytes polls until want bytes are buffered, the source stops, or the
// timeout elapses. Only ctx cancellation is reported as an error.
func waitForBytes(ctx context.Context, src *stream.BufferedSource, want int, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(probePollInterval)
	defer ticker.Stop()

	for {
		ok, err := src.HasAtLeast(want)
		if ok || err != nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return nil
		case <-ticker.C:
		}
	}
}

// takeBytes reads up to want buffered bytes: the first with ReadByte, the
// rest with ReadInto. It returns the terminal error if the buffer ran dry
// after the producer stopped.
func takeBytes(src *stream.BufferedSource, want int) ([]byte, error) {
	first, err := src.ReadByte()
	if err != nil {
		if errors.Is(err, stream.ErrNoData) {
			return nil, nil
		}
		return nil, err
	}

	buf := make([]byte, want)
	buf[0] = first
	n := 1
	for n < want {
		got, err := src.ReadInto(buf, n, want-n)
		if err != nil {
			return buf[:n], err
		}
		if got == 0 {
			break
		}
		n += got
	}

	if n < want {
		if _, err := src.AvailableCount(); err != nil {
			return buf[:n], err
		}
	}
	return buf[:n], nil
}
