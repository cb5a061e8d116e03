// Package metrics содержит коллекторы Prometheus сервиса.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmeshcher/foodrescue/internal/apperr"
)

const namespace = "foodrescue"

var (
	transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Donation lifecycle transitions by edge and outcome.",
	}, []string{"transition", "outcome"})

	pickedUp = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "picked_up_donations_total",
		Help:      "Donations moved to picked_up by pickup confirmation.",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route pattern and status code.",
	}, []string{"method", "route", "code"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Outcome возвращает метку исхода операции.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(string(apperr.KindOf(err)))
}

// ObserveTransition учитывает попытку перехода жизненного цикла.
func ObserveTransition(edge string, err error) {
	transitions.WithLabelValues(edge, Outcome(err)).Inc()
}

// ObservePickedUp учитывает пожертвования, переданные волонтёру.
func ObservePickedUp(n int64) {
	if n > 0 {
		pickedUp.Add(float64(n))
	}
}

// ObserveHTTP учитывает обработанный HTTP-запрос.
func ObserveHTTP(method, route string, code int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler возвращает обработчик экспозиции метрик.
func Handler() http.Handler {
	return promhttp.Handler()
}
