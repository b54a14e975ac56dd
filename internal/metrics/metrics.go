package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	promhttppkg "github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	FieldErrorCode = "error_code"
	FieldTrigger   = "trigger"

	ValueNoError = ""

	Namespace    = "doorlog"
	SubIngestion = "ingestion"
	SubQuery     = "query"
	SubHTTP      = "http"
)

// CounterOpts is a type alias for prometheus.CounterOpts.
type CounterOpts = prometheus.CounterOpts

// HistogramOpts is a type alias for prometheus.HistogramOpts.
type HistogramOpts = prometheus.HistogramOpts

// DefBuckets is a re-export of prometheus.DefBuckets.
var DefBuckets = prometheus.DefBuckets

// NewCounter creates a Counter registered with the default registry.
var NewCounter = promauto.NewCounter

// NewCounterVec creates a CounterVec registered with the default registry.
var NewCounterVec = promauto.NewCounterVec

// NewHistogramVec creates a HistogramVec registered with the default registry.
var NewHistogramVec = promauto.NewHistogramVec

// promHTTP wraps the promhttp package to provide access via metrics.PromHTTP.
type promHTTP struct{}

// Handler returns an http.Handler for the Prometheus metrics endpoint.
func (promHTTP) Handler() http.Handler {
	return promhttppkg.Handler()
}

// PromHTTP is an instance that wraps the promhttp package functionality.
var PromHTTP = promHTTP{}
