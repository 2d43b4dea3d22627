package vm

import "github.com/prometheus/client_golang/prometheus"

// Metrics wires VM execution counters into prometheus, exposed by cmd/qbi's
// --metrics-addr flag via promhttp. A VM with a nil Metrics field simply
// skips instrumentation; tests and the disassembler never need one.
type Metrics struct {
	instructions *prometheus.CounterVec
	runtimeErr   prometheus.Counter
	steps        prometheus.Histogram
}

// NewMetrics registers the VM's counters with reg and returns a Metrics
// ready to attach to one or more VM instances.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		instructions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qbi",
			Subsystem: "vm",
			Name:      "instructions_executed_total",
			Help:      "Instructions executed, partitioned by opcode.",
		}, []string{"op"}),
		runtimeErr: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "qbi",
			Subsystem: "vm",
			Name:      "runtime_errors_total",
			Help:      "Unhandled runtime errors raised during execution.",
		}),
		steps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "qbi",
			Subsystem: "vm",
			Name:      "program_steps",
			Help:      "Total instructions executed per completed program run.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}),
	}
	reg.MustRegister(m.instructions, m.runtimeErr, m.steps)
	return m
}

func (m *Metrics) ObserveInstruction(op Op) {
	if m == nil {
		return
	}
	m.instructions.WithLabelValues(op.String()).Inc()
}

func (m *Metrics) ObserveRuntimeError() {
	if m == nil {
		return
	}
	m.runtimeErr.Inc()
}

func (m *Metrics) ObserveProgramSteps(steps int64) {
	if m == nil {
		return
	}
	m.steps.Observe(float64(steps))
}
