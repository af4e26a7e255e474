package ranking

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// rankingsCalculated counts stored ranking calculations.
var rankingsCalculated = promauto.NewCounter(prometheus.CounterOpts{
	Name: "rankings_calculated_total",
	Help: "Total number of ranking calculations written",
})
