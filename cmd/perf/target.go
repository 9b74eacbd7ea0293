package perf

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/adaptive/lib/adaptive"
	"github.com/ValentinKolb/adaptive/lib/adaptive/kinds/hashmap"
	"github.com/ValentinKolb/adaptive/lib/adaptive/kinds/list"
	"github.com/ValentinKolb/adaptive/lib/adaptive/kinds/sortedmap"
	"github.com/cockroachdb/errors"
)

// target hides the element type of a container behind two index based operations
type target struct {
	container adaptive.Container
	read      func(i int)
	write     func(i int)
}

// newTarget creates a container of the given kind holding size elements
func newTarget(kind string, opts *adaptive.Options, size int) (*target, error) {
	keys := make([]string, size)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%08d", i)
	}

	switch kind {
	case "list":
		l := list.NewFrom(keys, opts)
		return &target{
			container: l,
			read:      func(i int) { _, _ = l.Get(i) },
			write:     func(i int) { _, _ = l.Set(i, keys[(i+1)%size]) },
		}, nil

	case "hashmap":
		m := hashmap.New[string, int](opts)
		for i, k := range keys {
			m.Put(k, i)
		}
		return &target{
			container: m,
			read:      func(i int) { m.Get(keys[i]) },
			write:     func(i int) { m.Put(keys[i], -i) },
		}, nil

	case "sortedmap":
		m := sortedmap.NewOrdered[string, int](opts)
		entries := make([]adaptive.Entry[string, int], size)
		for i, k := range keys {
			entries[i] = adaptive.Entry[string, int]{Key: k, Value: i}
		}
		if err := m.PutAll(entries...); err != nil {
			return nil, err
		}
		return &target{
			container: m,
			read:      func(i int) { m.Floor(keys[i]) },
			write:     func(i int) { _, _, _ = m.Put(keys[i], -i) },
		}, nil

	default:
		return nil, errors.Newf("unknown kind %q", kind)
	}
}

// --------------------------------------------------------------------------
// Workloads
// --------------------------------------------------------------------------

type workload struct {
	name         string
	writePercent int
}

var workloads = map[string]workload{
	"read":  {name: "read", writePercent: 5},
	"mixed": {name: "mixed", writePercent: 50},
	"write": {name: "write", writePercent: 90},
}

func parseWorkloads(s string) ([]workload, error) {
	var out []workload
	for _, name := range splitNames(s) {
		w, ok := workloads[name]
		if !ok {
			return nil, errors.Newf("invalid workload %q", name)
		}
		out = append(out, w)
	}
	if len(out) == 0 {
		return nil, errors.New("no workload selected")
	}
	return out, nil
}

func splitNames(s string) []string {
	var out []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, strings.ToLower(name))
		}
	}
	return out
}

// --------------------------------------------------------------------------
// Output
// --------------------------------------------------------------------------

// printResult prints the result of a benchmark run in a formatted way
func printResult(r result) {
	if r.bench.NsPerOp() == 0 {
		fmt.Printf("%-28sskipped\n", r.name())
		return
	}

	nsPerOp := math.Max(float64(r.bench.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	fmt.Printf("%-28s%.0fns/op (%s/op)\t%.0f ops/sec\tp50 %s\tp99 %s\n",
		r.name(), nsPerOp, time.Duration(nsPerOp), opsPerSec, r.p50, r.p99)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []result) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return errors.Wrap(err, "failed to create CSV file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	// Write header
	header := []string{
		"Kind", "Mode", "Workload", "NsPerOp", "DurationPerOp", "OpsPerSec",
		"P50Ns", "P99Ns", "Publications", "DiscardedClones", "ClonedElements",
		"Threads", "Size",
	}
	if err := writer.Write(header); err != nil {
		return errors.Wrap(err, "failed to write CSV header")
	}

	for _, r := range results {
		nsPerOp := math.Max(float64(r.bench.NsPerOp()), 1)

		var publications, discarded, cloned int64
		if r.info.Stats != nil {
			publications = r.info.Stats.Publications
			discarded = r.info.Stats.DiscardedClones
			cloned = r.info.Stats.ClonedElements
		}

		row := []string{
			r.kind,
			r.mode.String(),
			r.workload,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", 1.0/(nsPerOp/1e9)),
			strconv.FormatInt(r.p50.Nanoseconds(), 10),
			strconv.FormatInt(r.p99.Nanoseconds(), 10),
			strconv.FormatInt(publications, 10),
			strconv.FormatInt(discarded, 10),
			strconv.FormatInt(cloned, 10),
			strconv.Itoa(perfThreads),
			strconv.Itoa(perfSize),
		}

		if err := writer.Write(row); err != nil {
			return errors.Wrapf(err, "failed to write row for %s", r.name())
		}
	}

	writer.Flush()
	return writer.Error()
}
