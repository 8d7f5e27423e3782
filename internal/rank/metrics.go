package rank

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// allocationsTotal counts placements by mode and entry point.
	// Labels: mode ("sparse", "dense"), op ("insert", "update", "move", "transition").
	allocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ranked_allocations_total",
		Help: "Rank placements by mode and operation",
	}, []string{"mode", "op"})

	// shiftsTotal counts local range shifts.
	// Labels: direction ("up", "down").
	shiftsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ranked_shifts_total",
		Help: "Local rank shifts by direction",
	}, []string{"direction"})

	shiftRows = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ranked_shift_rows",
		Help:    "Rows touched per rank shift",
		Buckets: []float64{1, 2, 5, 10, 50, 100, 1000, 10000},
	})

	rebalancesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ranked_rebalances_total",
		Help: "Full scope rebalances",
	})

	rebalanceRows = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ranked_rebalance_rows",
		Help:    "Rows rewritten per rebalance",
		Buckets: []float64{1, 10, 100, 1000, 10000, 100000},
	})

	capacityExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ranked_capacity_exhausted_total",
		Help: "Mutations aborted because a scope ran out of rank space",
	})
)
