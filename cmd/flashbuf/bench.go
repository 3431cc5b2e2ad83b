package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/bietkhonhungvandi212/flashbuf/internal/metrics"
	util "github.com/bietkhonhungvandi212/flashbuf/internal/utils"
	"github.com/bietkhonhungvandi212/flashbuf/internal/workload"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
)

func newBenchCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := util.DefaultOptions()
	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "Replay a request stream against every selected policy.",
		Long: `bench generates (or reads from a trace) one page request stream and replays it
against an independent buffer manager and device per policy, then prints
cache and device counters for each.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runBench(ctx, opts, stdout, stderr)
		},
	}
	benchFlags(benchCmd.Flags(), &opts)
	return benchCmd
}

func benchFlags(flags *pflag.FlagSet, opts *util.Options) {
	flags.IntVar(&opts.PageSize, "page-size", opts.PageSize, "Device page size in bytes.")
	flags.IntVar(&opts.BufferPoolSize, "buffer-pool-size", opts.BufferPoolSize, "Frames per buffer manager.")
	flags.IntVar(&opts.CFLRUWindow, "cflru-window", opts.CFLRUWindow, "CFLRU protected positions; negative derives it from the ratio.")
	flags.Float64Var(&opts.WindowRatio, "cflru-window-ratio", opts.WindowRatio, "CFLRU protected fraction of the pool.")
	flags.StringSliceVar(&opts.Policies, "policies", opts.Policies, "Policies to compare (lru, cflru, lruwsr, frame, trivial).")

	flags.IntVar(&opts.Requests, "requests", opts.Requests, "Number of synthetic requests.")
	flags.Uint64Var(&opts.MaxPageID, "max-page-id", opts.MaxPageID, "Largest synthetic page id.")
	flags.Float64Var(&opts.WriteRatio, "write-ratio", opts.WriteRatio, "Fraction of synthetic requests that are writes.")
	flags.Int64Var(&opts.Seed, "seed", opts.Seed, "Random seed.")
	flags.StringVar(&opts.Distribution, "distribution", opts.Distribution, "Synthetic page distribution (uniform, zipf).")
	flags.StringVar(&opts.Trace, "trace", opts.Trace, "Page trace file to replay instead of a synthetic stream.")

	flags.StringVar(&opts.Device, "device", opts.Device, "Block device (trivial, memory, file).")
	flags.StringVar(&opts.DataDir, "data-dir", opts.DataDir, "Directory for file devices.")
	flags.Float64Var(&opts.ReadCost, "read-cost", opts.ReadCost, "Cost of one device page read.")
	flags.Float64Var(&opts.WriteCost, "write-cost", opts.WriteCost, "Cost of one device page write.")
	flags.BoolVar(&opts.Verify, "verify", opts.Verify, "Check every read and the final device content against the writes issued.")

	flags.StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "Log level (trace, debug, info, warn, error).")
	flags.StringVar(&opts.MetricsOut, "metrics-out", opts.MetricsOut, "Write prometheus metrics to this file, or - for stdout.")
}

func runBench(ctx context.Context, opts util.Options, stdout, stderr io.Writer) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	logger, err := util.NewLogger(opts.LogLevel, stderr)
	if err != nil {
		return err
	}
	if err := checkHostMemory(opts, logger); err != nil {
		return err
	}

	reqs, err := workload.Generate(opts)
	if err != nil {
		return err
	}
	stats := workload.Summarize(reqs)
	logger.WithFields(logrus.Fields{
		"requests": stats.Requests,
		"writes":   stats.Writes,
		"pages":    stats.UniquePages,
	}).Info("request stream ready")

	if opts.Device == util.DeviceFile {
		if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
			return errors.Wrap(err, "create data dir")
		}
	}

	reg := prometheus.NewRegistry()
	rec, err := metrics.NewPrometheus(reg)
	if err != nil {
		return err
	}

	runner := &workload.Runner{Verify: opts.Verify, Logger: logger}
	// an interrupted or failed run still writes back whatever it buffered
	atexit.Register(func() {
		if err := runner.Close(); err != nil {
			logger.WithError(err).Error("final flush failed")
		}
	})
	for _, p := range opts.Policies {
		t, err := workload.NewTarget(strings.ToLower(p), opts, logger, rec)
		if err != nil {
			return err
		}
		runner.Targets = append(runner.Targets, t)
	}

	results, err := runner.Run(ctx, reqs)
	if err != nil {
		return err
	}
	workload.Render(stdout, results)

	if err := writeMetrics(opts.MetricsOut, reg, stdout); err != nil {
		return err
	}
	return runner.Close()
}

// checkHostMemory rejects pools that cannot fit in the memory available now.
func checkHostMemory(opts util.Options, logger logrus.FieldLogger) error {
	need := uint64(opts.BufferPoolSize) * uint64(opts.PageSize) * uint64(len(opts.Policies))
	vm, err := mem.VirtualMemory()
	if err != nil {
		logger.WithError(err).Warn("cannot read host memory, skipping pool size check")
		return nil
	}
	if need > vm.Available {
		return util.InvalidConfiguration("buffer pools need %s but only %s is available",
			humanize.IBytes(need), humanize.IBytes(vm.Available))
	}
	logger.WithField("pools", humanize.IBytes(need)).Debug("host memory check passed")
	return nil
}

func writeMetrics(path string, g prometheus.Gatherer, stdout io.Writer) error {
	switch path {
	case "":
		return nil
	case "-":
		return metrics.WriteText(stdout, g)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create metrics file")
	}
	if err := metrics.WriteText(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
