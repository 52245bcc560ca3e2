package app

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"folio/api/internal/comments"
)

var (
	commentMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_comment_mutations_total",
		Help: "Comment mutations by operation and outcome",
	}, []string{"op", "outcome"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_http_requests_total",
		Help: "HTTP requests by method and status code",
	}, []string{"method", "status"})
)

// observeMutation counts one comment mutation. The outcome is "ok" or the
// error kind.
func observeMutation(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if kind := comments.KindOf(err); kind != "" {
			outcome = string(kind)
		}
	}
	commentMutationsTotal.WithLabelValues(op, outcome).Inc()
}

func observeRequest(method string, status int) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
}
