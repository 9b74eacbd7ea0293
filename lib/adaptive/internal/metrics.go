package internal

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// Metrics exports container activity in Prometheus format on a caller
// supplied metrics.Set. A nil *Metrics is valid and records nothing.
type Metrics struct {
	publications  *metrics.Counter
	modeSwitches  *metrics.Counter
	cloneElements *metrics.Histogram
}

// NewMetrics registers the container metrics labeled with kind and name.
// Containers with the same kind and name share their series.
func NewMetrics(set *metrics.Set, kind, name string, fast func() bool) *Metrics {
	labels := fmt.Sprintf(`{kind=%q,name=%q}`, kind, name)

	set.GetOrCreateGauge("adaptive_fast_mode"+labels, func() float64 {
		if fast() {
			return 1
		}
		return 0
	})

	return &Metrics{
		publications:  set.GetOrCreateCounter("adaptive_publications_total" + labels),
		modeSwitches:  set.GetOrCreateCounter("adaptive_mode_switches_total" + labels),
		cloneElements: set.GetOrCreateHistogram("adaptive_clone_elements" + labels),
	}
}

func (m *Metrics) published() {
	if m != nil {
		m.publications.Inc()
	}
}

func (m *Metrics) switched() {
	if m != nil {
		m.modeSwitches.Inc()
	}
}

func (m *Metrics) cloned(n int) {
	if m != nil {
		m.cloneElements.Update(float64(n))
	}
}
