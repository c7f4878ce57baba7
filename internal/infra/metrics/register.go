package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once       sync.Once
	collectors []prometheus.Collector
)

// register queues collectors from the init func of each metrics file.
func register(cs ...prometheus.Collector) {
	collectors = append(collectors, cs...)
}

// MustRegister adds the queued collectors to reg, or to the default
// registry when none is given. Only the first call has an effect.
func MustRegister(reg ...prometheus.Registerer) {
	once.Do(func() {
		r := prometheus.DefaultRegisterer
		if len(reg) > 0 && reg[0] != nil {
			r = reg[0]
		}
		r.MustRegister(collectors...)
	})
}
