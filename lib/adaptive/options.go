package adaptive

import "github.com/VictoriaMetrics/metrics"

// Options configures a container during initialization.
// A nil *Options passed to a constructor means DefaultOptions().
type Options struct {
	Mode         Mode         // Initial mode (default: ModeSlow)
	Name         string       // Name used in log lines and metric labels
	Metrics      *metrics.Set // Optional set to register Prometheus metrics on (nil = no metrics)
	CollectStats bool         // Collect per container statistics returned by Info()
	Capacity     int          // Initial capacity hint for the backing structure
}

// DefaultOptions returns the default container options
func DefaultOptions() *Options {
	return &Options{
		Mode:         ModeSlow,
		Name:         "",
		Metrics:      nil,
		CollectStats: false,
		Capacity:     0,
	}
}

// Resolve returns opts or the defaults if opts is nil. A negative capacity is treated as 0.
func (opts *Options) Resolve() *Options {
	if opts == nil {
		return DefaultOptions()
	}
	o := *opts
	if o.Capacity < 0 {
		o.Capacity = 0
	}
	return &o
}

// WithMode returns a copy of opts with the initial mode set.
func (opts *Options) WithMode(mode Mode) *Options {
	o := opts.Resolve()
	o.Mode = mode
	return o
}

// WithName returns a copy of opts with the container name set.
func (opts *Options) WithName(name string) *Options {
	o := opts.Resolve()
	o.Name = name
	return o
}
