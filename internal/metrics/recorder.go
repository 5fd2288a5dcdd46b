package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Generation results reported through ObserveGeneration.
const (
	ResultAdmitted  = "admitted"
	ResultDuplicate = "duplicate"
	ResultExhausted = "exhausted"
)

var knownResults = map[string]bool{
	ResultAdmitted:  true,
	ResultDuplicate: true,
	ResultExhausted: true,
}

// Recorder receives search progress. Implementations must tolerate being
// called once per generation.
type Recorder interface {
	ObserveGeneration(result string)
	ObserveCull()
	ObserveBest(fitness float64, states int)
	ObservePopulation(size int)
}

type NoopRecorder struct{}

func (NoopRecorder) ObserveGeneration(string) {}
func (NoopRecorder) ObserveCull()             {}
func (NoopRecorder) ObserveBest(float64, int) {}
func (NoopRecorder) ObservePopulation(int)    {}

// PrometheusRecorder exports search progress under the dfaevo_search_*
// namespace.
type PrometheusRecorder struct {
	generations    *prometheus.CounterVec
	culls          prometheus.Counter
	bestUpdates    prometheus.Counter
	bestFitness    prometheus.Gauge
	bestStates     prometheus.Gauge
	populationSize prometheus.Gauge
}

// NewPrometheusRecorder registers the search collectors on reg. A nil reg
// falls back to the default registerer.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		generations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dfaevo",
			Subsystem: "search",
			Name:      "generations_total",
			Help:      "Generations executed by result",
		}, []string{"result"}),
		culls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dfaevo",
			Subsystem: "search",
			Name:      "culls_total",
			Help:      "Population members removed to enforce the size bound",
		}),
		bestUpdates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dfaevo",
			Subsystem: "search",
			Name:      "best_updates_total",
			Help:      "Distinct best-so-far snapshots reported",
		}),
		bestFitness: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "dfaevo",
			Subsystem: "search",
			Name:      "best_fitness",
			Help:      "Fitness of the current best DFA",
		}),
		bestStates: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "dfaevo",
			Subsystem: "search",
			Name:      "best_states",
			Help:      "State count of the current best DFA",
		}),
		populationSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "dfaevo",
			Subsystem: "search",
			Name:      "population_size",
			Help:      "Current population size",
		}),
	}
}

func (r *PrometheusRecorder) ObserveGeneration(result string) {
	if !knownResults[result] {
		result = "unknown"
	}
	r.generations.WithLabelValues(result).Inc()
}

func (r *PrometheusRecorder) ObserveCull() {
	r.culls.Inc()
}

func (r *PrometheusRecorder) ObserveBest(fitness float64, states int) {
	r.bestUpdates.Inc()
	r.bestFitness.Set(fitness)
	r.bestStates.Set(float64(states))
}

func (r *PrometheusRecorder) ObservePopulation(size int) {
	r.populationSize.Set(float64(size))
}
