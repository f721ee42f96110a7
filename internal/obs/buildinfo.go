package obs

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "medsys_build_info",
			Help: "Build of the running medsysd binary, always 1.",
		},
		[]string{"version", "commit", "goversion"},
	)

	startTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "medsys_start_time_seconds",
		Help: "Unix time the process started serving.",
	})

	buildOnce sync.Once
)

// InitBuildInfo publishes the build gauge and the start time. Blank
// version or commit are reported as "dev" and "unknown".
func InitBuildInfo(version, commit string, started time.Time) {
	buildOnce.Do(func() {
		prometheus.MustRegister(buildInfo, startTime)
	})
	if version == "" {
		version = "dev"
	}
	if commit == "" {
		commit = "unknown"
	}
	buildInfo.Reset()
	buildInfo.WithLabelValues(version, commit, runtime.Version()).Set(1)
	startTime.Set(float64(started.Unix()))
}
