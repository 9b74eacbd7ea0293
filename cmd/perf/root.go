package perf

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/adaptive/cmd/util"
	"github.com/ValentinKolb/adaptive/lib/adaptive"
	libutil "github.com/ValentinKolb/adaptive/lib/adaptive/util"
	"github.com/VictoriaMetrics/metrics"
	"github.com/cockroachdb/errors"
	"github.com/lni/dragonboat/v4/logger"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// LoggerName is the name of the perf command logger
const LoggerName = "perf"

var (
	Logger = logger.GetLogger(LoggerName)

	// PerfCmd runs the benchmarks
	PerfCmd = &cobra.Command{
		Use:   "perf",
		Short: "Performance testing tool for the adaptive containers",
		Long: `Runs every selected container kind in every selected mode against a set of
workloads and prints the throughput and the latency percentiles of each run.
Writes overwrite existing elements, so the container size stays constant
and the cost of a FAST write is the cost of cloning a container of that size.`,
		PreRunE: processPerfConfig,
		RunE:    run,
	}

	perfKinds     []string
	perfModes     []adaptive.Mode
	perfWorkloads []workload
	perfThreads   = 8
	perfSize      = 1000
	perfSample    = 64
)

func init() {
	util.SetupSelectionFlags(PerfCmd)

	// add flags
	key := "workloads"
	PerfCmd.Flags().String(key, "read,mixed,write", util.WrapString("Comma-separated list of workloads to run (read = 5% writes, mixed = 50% writes, write = 90% writes)"))
	key = "size"
	PerfCmd.Flags().Int(key, 1000, util.WrapString("Number of elements every container is filled with before a run"))
	key = "sample"
	PerfCmd.Flags().Int(key, 64, util.WrapString("Every n-th operation is timed for the latency percentiles"))
	key = "csv"
	PerfCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
	key = "metrics"
	PerfCmd.Flags().Bool(key, false, util.WrapString("Print the container metrics in Prometheus text format after all runs"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	if perfKinds, err = util.GetKinds(); err != nil {
		return err
	}
	if perfModes, err = util.GetModes(); err != nil {
		return err
	}
	if perfWorkloads, err = parseWorkloads(viper.GetString("workloads")); err != nil {
		return err
	}

	perfThreads = util.GetThreads()
	perfSize = max(viper.GetInt("size"), 1)
	perfSample = max(viper.GetInt("sample"), 1)

	return nil
}

func run(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for the adaptive containers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("Kinds: %s\n", strings.Join(perfKinds, ", "))
	fmt.Printf("Modes: %v\n", perfModes)
	fmt.Printf("Threads: %d\n", perfThreads)
	fmt.Printf("Size: %d\n", perfSize)
	fmt.Println()

	fmt.Println("starting tests...")

	set := metrics.NewSet()
	var results []result

	for _, kind := range perfKinds {
		for _, mode := range perfModes {
			for _, w := range perfWorkloads {
				r, err := runOne(set, kind, mode, w)
				if err != nil {
					return errors.Wrapf(err, "%s/%s/%s", kind, mode, w.name)
				}
				results = append(results, r)
				printResult(r)
			}
		}
	}

	printSummary(results)

	if path := viper.GetString("csv"); path != "" {
		if err := writeResultsToCSV(path, results); err != nil {
			return err
		}
		fmt.Printf("\nresults written to %s\n", path)
	}

	if viper.GetBool("metrics") {
		fmt.Println()
		set.WritePrometheus(os.Stdout)
	}

	return nil
}

// --------------------------------------------------------------------------
// Benchmark
// --------------------------------------------------------------------------

type result struct {
	kind     string
	mode     adaptive.Mode
	workload string
	bench    testing.BenchmarkResult
	p50      time.Duration
	p99      time.Duration
	info     adaptive.Info
}

func (r result) name() string {
	return fmt.Sprintf("%s/%s/%s", r.kind, r.mode, r.workload)
}

// runOne benchmarks a single kind in a single mode with one workload
func runOne(set *metrics.Set, kind string, mode adaptive.Mode, w workload) (result, error) {
	opts := adaptive.DefaultOptions().WithMode(mode).WithName(w.name)
	opts.Metrics = set
	opts.CollectStats = true

	t, err := newTarget(kind, opts, perfSize)
	if err != nil {
		return result{}, err
	}

	timer := gometrics.NewTimer()
	defer timer.Stop()

	bench := testing.Benchmark(func(b *testing.B) {
		b.SetParallelism(perfThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := libutil.GenerateSeed() % uint64(perfSize)
			for pb.Next() {
				i := int(counter % uint64(perfSize))
				timed := counter%uint64(perfSample) == 0

				var start time.Time
				if timed {
					start = time.Now()
				}
				if int(counter%100) < w.writePercent {
					t.write(i)
				} else {
					t.read(i)
				}
				if timed {
					timer.UpdateSince(start)
				}
				counter++
			}
		})
	})

	ps := timer.Percentiles([]float64{0.5, 0.99})
	r := result{
		kind:     kind,
		mode:     mode,
		workload: w.name,
		bench:    bench,
		p50:      time.Duration(ps[0]),
		p99:      time.Duration(ps[1]),
		info:     t.container.Info(),
	}
	Logger.Debugf("%s finished after %d iterations (%d publications)", r.name(), bench.N, r.info.Stats.Publications)
	return r, nil
}

// printSummary compares the modes per kind and workload
func printSummary(results []result) {
	if len(perfModes) < 2 {
		return
	}

	fmt.Println()
	fmt.Println("Summary (ns/op across kinds):")
	for _, w := range perfWorkloads {
		for _, mode := range perfModes {
			var values []float64
			for _, r := range results {
				if r.workload == w.name && r.mode == mode {
					values = append(values, float64(r.bench.NsPerOp()))
				}
			}
			s := libutil.NewStats(values)
			fmt.Printf("%-8s%-6s mean %8.0f  min %8.0f  max %8.0f  stddev %8.0f\n", w.name, mode, s.Mean, s.Min, s.Max, s.StdDeviation)
		}
	}
}
