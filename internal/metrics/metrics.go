package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	packetCounter *prometheus.CounterVec
	decodeCounter *prometheus.CounterVec
	beaconGauge   prometheus.Gauge

	registry = prometheus.NewRegistry()
	once     sync.Once
)

// Decode results.
const (
	DecodeOK         = "ok"
	DecodeAuthFailed = "auth_failed"
	DecodeUnknown    = "unknown_device"
	DecodeMalformed  = "malformed"
	DecodeNoKey      = "no_key"
)

func initialize() {
	once.Do(func() {
		packetCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hubblescan",
			Name:      "packets_total",
			Help:      "BLE advertisements observed, by backend.",
		}, []string{"source"})
		decodeCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hubblescan",
			Name:      "decode_total",
			Help:      "Hubble frames processed, by decode result.",
		}, []string{"result"})
		beaconGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hubblescan",
			Name:      "beacons",
			Help:      "Distinct advertiser addresses seen this session.",
		})
		registry.MustRegister(packetCounter, decodeCounter, beaconGauge)
	})
}

func RecordPacket(source string) {
	initialize()
	packetCounter.With(prometheus.Labels{"source": source}).Inc()
}

func RecordDecode(result string) {
	initialize()
	decodeCounter.With(prometheus.Labels{"result": result}).Inc()
}

func SetBeacons(n int) {
	initialize()
	beaconGauge.Set(float64(n))
}

// Gatherer exposes the registry, mainly for tests.
func Gatherer() prometheus.Gatherer {
	initialize()
	return registry
}

// Serve starts a /metrics endpoint on addr in the background.
func Serve(addr string) *http.Server {
	initialize()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Errorf("metrics server on %s: %v", addr, err)
		}
	}()
	logrus.Infof("serving metrics on %s/metrics", addr)
	return server
}
