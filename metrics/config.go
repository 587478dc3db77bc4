package metrics

import (
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/log"
	gethmetrics "github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/metrics/prometheus"
)

// Path is where the Prometheus exposition is served.
const Path = "/debug/metrics/prometheus"

// Config contains the configuration for the metric collection.
type Config struct {
	Enabled bool   `toml:",omitempty"`
	HTTP    string `toml:",omitempty"`
	Port    int    `toml:",omitempty"`
}

// DefaultConfig is the default config for metrics used in counterctl.
var DefaultConfig = Config{
	Enabled: false,
	HTTP:    "",
	Port:    6060,
}

// Addr returns the listen address of the stand-alone endpoint, or an empty
// string when metrics are only served by the API gateway.
func (c Config) Addr() string {
	if !c.Enabled || c.HTTP == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.HTTP, c.Port)
}

// Setup turns on metric collection when enabled. It must run before meters
// are marked for them to record anything.
func Setup(c Config) {
	if !c.Enabled {
		return
	}
	log.Info("Enabling metrics collection")
	gethmetrics.Enable()
}

// Handler serves every registered metric in the Prometheus text format.
func Handler() http.Handler {
	return prometheus.Handler(gethmetrics.DefaultRegistry)
}

// StartServer serves Handler on the configured stand-alone address. The
// returned server is nil when no address is configured.
func StartServer(c Config) *http.Server {
	addr := c.Addr()
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle(Path, Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	log.Info("Starting metrics server", "addr", fmt.Sprintf("http://%s%s", addr, Path))
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Failure in running metrics server", "err", err)
		}
	}()
	return srv
}
