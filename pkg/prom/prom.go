package prom

import (
	"fmt"
	"sync"

	xhttp "github.com/nimasrn/cash-ledger/pkg/http"
	"github.com/nimasrn/cash-ledger/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const (
	SystemLedger   = "ledger"
	SystemActivity = "activity"
	SystemAuth     = "auth"
)

const (
	MetricCustomersCreated    = "customers_created_total"
	MetricCustomersDeleted    = "customers_deleted_total"
	MetricTransactionsAdded   = "transactions_added_total"
	MetricEventsPublishFailed = "events_publish_failed_total"
	MetricEventsProcessed     = "events_processed_total"
	MetricProcessingDuration  = "processing_duration_seconds"
	MetricLoginFailures       = "login_failures_total"
	MetricLoginLockouts       = "login_lockouts_total"
)

const (
	TypeCounter      = "counter"
	TypeCounterVec   = "counterVec"
	TypeHistogram    = "histogram"
	TypeHistogramVec = "histogramVec"
	TypeGaugeVec     = "gaugeVec"
)

var (
	mu        sync.RWMutex
	namespace = "none"
	registry  = prometheus.NewRegistry()
	enabled   bool

	defaultLabels prometheus.Labels

	counters      = make(map[string]prometheus.Counter)
	counterVecs   = make(map[string]*prometheus.CounterVec)
	gaugeVecs     = make(map[string]*prometheus.GaugeVec)
	histograms    = make(map[string]prometheus.Histogram)
	histogramVecs = make(map[string]*prometheus.HistogramVec)
)

// Create resets the registry and registers every ledger metric under the
// given namespace, labelled with env and instance.
func Create(host string, env string, nameSpace string) error {
	mu.Lock()
	defaultLabels = prometheus.Labels{"env": env, "instance": host}
	namespace = nameSpace
	registry = prometheus.NewRegistry()
	counters = make(map[string]prometheus.Counter)
	counterVecs = make(map[string]*prometheus.CounterVec)
	gaugeVecs = make(map[string]*prometheus.GaugeVec)
	histograms = make(map[string]prometheus.Histogram)
	histogramVecs = make(map[string]*prometheus.HistogramVec)
	enabled = true
	mu.Unlock()

	var err error
	hasError := func(e error) {
		if err == nil && e != nil {
			err = e
		}
	}

	hasError(CreateMetric(TypeCounter, SystemLedger, MetricCustomersCreated))
	hasError(CreateMetric(TypeCounter, SystemLedger, MetricCustomersDeleted))
	hasError(CreateMetric(TypeCounterVec, SystemLedger, MetricTransactionsAdded, "type", "method"))
	hasError(CreateMetric(TypeCounterVec, SystemLedger, MetricEventsPublishFailed, "event"))
	hasError(CreateMetric(TypeCounterVec, SystemActivity, MetricEventsProcessed, "event", "status"))
	hasError(CreateMetric(TypeHistogramVec, SystemActivity, MetricProcessingDuration, "event"))
	hasError(CreateMetric(TypeCounter, SystemAuth, MetricLoginFailures))
	hasError(CreateMetric(TypeCounter, SystemAuth, MetricLoginLockouts))

	return err
}

func CreateMetric(metricType, metricSubsystem, metricName string, labels ...string) error {
	mu.Lock()
	defer mu.Unlock()

	key := metricSubsystem + metricName
	var c prometheus.Collector
	switch metricType {
	case TypeCounter:
		m := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: metricSubsystem, Name: metricName, ConstLabels: defaultLabels,
			Help: metricName,
		})
		counters[key], c = m, m
	case TypeCounterVec:
		m := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: metricSubsystem, Name: metricName, ConstLabels: defaultLabels,
			Help: metricName,
		}, labels)
		counterVecs[key], c = m, m
	case TypeHistogram:
		m := prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: metricSubsystem, Name: metricName, ConstLabels: defaultLabels,
			Help: metricName, Buckets: prometheus.DefBuckets,
		})
		histograms[key], c = m, m
	case TypeHistogramVec:
		m := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: metricSubsystem, Name: metricName, ConstLabels: defaultLabels,
			Help: metricName, Buckets: prometheus.DefBuckets,
		}, labels)
		histogramVecs[key], c = m, m
	case TypeGaugeVec:
		m := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: metricSubsystem, Name: metricName, ConstLabels: defaultLabels,
			Help: metricName,
		}, labels)
		gaugeVecs[key], c = m, m
	default:
		return fmt.Errorf("metric type %s is not defined", metricType)
	}
	return registry.Register(c)
}

// Gatherer exposes the current registry, mostly for tests.
func Gatherer() prometheus.Gatherer {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

func Handler() xhttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(Gatherer(), promhttp.HandlerOpts{}))
}

func ListenAndServer(addr string, url string) {
	s := xhttp.CreateServer()
	s.GET(url, Handler())
	logger.Info("[metrics-server] listening...", "addr", addr, "url", url)
	if err := s.ListenAndServe(addr); err != nil {
		logger.Panic("[metrics-server] http listen error", "error", err)
	}
}

func IncCounter(subsystem, name string) {
	AddCounter(subsystem, name, 1)
}

func AddCounter(subsystem, name string, number float64) {
	mu.RLock()
	defer mu.RUnlock()
	if !enabled {
		return
	}
	if v, ok := counters[subsystem+name]; ok {
		v.Add(number)
		return
	}
	logger.Warn("[metrics-server] counter not found", "subsystem", subsystem, "name", name)
}

func IncCounterVec(subsystem, name string, labelValues ...string) {
	AddCounterVec(subsystem, name, 1, labelValues...)
}

func AddCounterVec(subsystem, name string, num float64, labelValues ...string) {
	mu.RLock()
	defer mu.RUnlock()
	if !enabled {
		return
	}
	if v, ok := counterVecs[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Add(num)
		return
	}
	logger.Warn("[metrics-server] counter vec not found", "subsystem", subsystem, "name", name)
}

func AddGaugeVec(subsystem, name string, num float64, labelValues ...string) {
	mu.RLock()
	defer mu.RUnlock()
	if !enabled {
		return
	}
	if v, ok := gaugeVecs[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Add(num)
		return
	}
	logger.Warn("[metrics-server] gauge not found", "subsystem", subsystem, "name", name)
}

func AddHistogram(subsystem, name string, number float64) {
	mu.RLock()
	defer mu.RUnlock()
	if !enabled {
		return
	}
	if v, ok := histograms[subsystem+name]; ok {
		v.Observe(number)
		return
	}
	logger.Warn("[metrics-server] histogram not found", "subsystem", subsystem, "name", name)
}

func AddHistogramVec(subsystem, name string, number float64, labelValues ...string) {
	mu.RLock()
	defer mu.RUnlock()
	if !enabled {
		return
	}
	if v, ok := histogramVecs[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Observe(number)
		return
	}
	logger.Warn("[metrics-server] histogram vec not found", "subsystem", subsystem, "name", name)
}

func IncCustomerCreated() {
	IncCounter(SystemLedger, MetricCustomersCreated)
}

func IncCustomerDeleted() {
	IncCounter(SystemLedger, MetricCustomersDeleted)
}

func IncTransactionAdded(txType, method string) {
	IncCounterVec(SystemLedger, MetricTransactionsAdded, txType, method)
}

func IncEventPublishFailed(event string) {
	IncCounterVec(SystemLedger, MetricEventsPublishFailed, event)
}

func IncEventProcessed(event, status string) {
	IncCounterVec(SystemActivity, MetricEventsProcessed, event, status)
}

func AddProcessingDuration(seconds float64, event string) {
	AddHistogramVec(SystemActivity, MetricProcessingDuration, seconds, event)
}

func IncLoginFailure() {
	IncCounter(SystemAuth, MetricLoginFailures)
}

func IncLoginLockout() {
	IncCounter(SystemAuth, MetricLoginLockouts)
}
