package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port             string
	NATSURL          string        // optional; tap-to-pay events are forwarded when set
	OperationTimeout time.Duration // per-request wait for a correlated result
	SimulatedDelay   time.Duration // simulated host screens complete after this
	Development      bool
}

func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	opTimeout := 90 * time.Second
	if v := os.Getenv("OPERATION_TIMEOUT_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			opTimeout = time.Duration(secs) * time.Second
		}
	}

	simDelay := 50 * time.Millisecond
	if v := os.Getenv("SIMULATED_DELAY_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			simDelay = time.Duration(ms) * time.Millisecond
		}
	}

	return &Config{
		Port:             port,
		NATSURL:          os.Getenv("NATS_URL"),
		OperationTimeout: opTimeout,
		SimulatedDelay:   simDelay,
		Development:      os.Getenv("ENV") == "development",
	}
}
