package stress

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ValentinKolb/adaptive/cmd/util"
	"github.com/ValentinKolb/adaptive/lib/adaptive"
	libutil "github.com/ValentinKolb/adaptive/lib/adaptive/util"
	"github.com/cockroachdb/errors"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// LoggerName is the name of the stress command logger
const LoggerName = "stress"

var (
	Logger = logger.GetLogger(LoggerName)

	// StressCmd runs the concurrent checks
	StressCmd = &cobra.Command{
		Use:   "stress",
		Short: "Check the container guarantees under concurrent load",
		Long: `Runs the selected container kinds in the selected modes with many goroutines
and checks that no update is lost, that readers only observe complete writes
and that iterators behave as documented for their mode. The command exits
with an error if any violation was observed.`,
		PreRunE: processStressConfig,
		RunE:    run,
	}

	stressKinds    []string
	stressModes    []adaptive.Mode
	stressThreads  = 8
	stressDuration = 2 * time.Second
	stressBatch    = 16
	stressWrites   = 1000
	stressToggle   = false
	stressSeed     uint64
)

func init() {
	util.SetupSelectionFlags(StressCmd)

	// add flags
	key := "duration"
	StressCmd.Flags().Duration(key, 2*time.Second, util.WrapString("How long the atomicity and iterator checks run per kind and mode"))
	key = "batch"
	StressCmd.Flags().Int(key, 16, util.WrapString("Number of elements written by every bulk write"))
	key = "writes"
	StressCmd.Flags().Int(key, 1000, util.WrapString("Number of unique elements every goroutine adds in the lost update check"))
	key = "toggle"
	StressCmd.Flags().Bool(key, false, util.WrapString("Switch the mode back and forth while the atomicity check runs"))
	key = "seed"
	StressCmd.Flags().Uint64(key, 0, util.WrapString("Seed for the random choices of the readers (0 = random)"))
}

func processStressConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	if stressKinds, err = util.GetKinds(); err != nil {
		return err
	}
	if stressModes, err = util.GetModes(); err != nil {
		return err
	}

	stressThreads = util.GetThreads()
	stressDuration = viper.GetDuration("duration")
	stressBatch = max(viper.GetInt("batch"), 1)
	stressWrites = max(viper.GetInt("writes"), 1)
	stressToggle = viper.GetBool("toggle")
	if stressSeed = viper.GetUint64("seed"); stressSeed == 0 {
		stressSeed = libutil.GenerateSeed()
	}

	return nil
}

func run(cmd *cobra.Command, _ []string) error {
	fmt.Println("Stress testing tool for the adaptive containers")
	fmt.Println()
	fmt.Printf("Threads: %d, Duration: %s, Batch: %d, Toggle: %v, Seed: %d\n",
		stressThreads, stressDuration, stressBatch, stressToggle, stressSeed)
	fmt.Println()

	// all workers report to a single collector through the queue
	queue := libutil.NewQueue[observation]()
	tallies := make(map[string]*tally)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for o := range queue.Recv() {
			key := o.key()
			t, ok := tallies[key]
			if !ok {
				t = &tally{}
				tallies[key] = t
			}
			t.add(o)
		}
	}()

	for _, kind := range stressKinds {
		for _, mode := range stressModes {
			Logger.Infof("checking %s in %s mode", kind, mode)

			if err := checkLostUpdates(queue, kind, mode); err != nil {
				queue.Close()
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), stressDuration)
			err := checkAtomicity(ctx, queue, kind, mode)
			cancel()
			if err != nil {
				queue.Close()
				return err
			}
		}
	}

	queue.Close()
	<-collected

	return report(tallies)
}

// --------------------------------------------------------------------------
// Observations
// --------------------------------------------------------------------------

// observation is the result of one check step reported by a worker
type observation struct {
	check     string
	kind      string
	mode      adaptive.Mode
	ops       int64
	invalid   int64  // fail-fast iterators that were invalidated
	violation string // empty if the step passed
}

func (o *observation) key() string {
	return fmt.Sprintf("%s/%s/%s", o.kind, o.mode, o.check)
}

type tally struct {
	ops        int64
	invalid    int64
	violations []string
}

func (t *tally) add(o *observation) {
	t.ops += o.ops
	t.invalid += o.invalid
	if o.violation != "" {
		t.violations = append(t.violations, o.violation)
	}
}

// report prints the tallies and fails if any violation was observed
func report(tallies map[string]*tally) error {
	keys := make([]string, 0, len(tallies))
	for k := range tallies {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var total int
	for _, k := range keys {
		t := tallies[k]
		status := "ok"
		if len(t.violations) > 0 {
			status = fmt.Sprintf("FAILED (%d violations)", len(t.violations))
		}
		fmt.Printf("%-36s%10d ops %8d invalidated   %s\n", k, t.ops, t.invalid, status)

		for i, v := range t.violations {
			if i == 5 {
				fmt.Printf("    ... %d more\n", len(t.violations)-i)
				break
			}
			fmt.Printf("    %s\n", v)
		}
		total += len(t.violations)
	}

	if total > 0 {
		return errors.Newf("%d violations observed (seed %d)", total, stressSeed)
	}
	fmt.Println()
	fmt.Println("no violations observed")
	return nil
}
