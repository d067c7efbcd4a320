// Package config provides environment configuration for go-orbitarm commands.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Defaults used when the environment does not say otherwise.
const (
	DefaultBaudRate      = 9600
	DefaultCamera        = 0
	DefaultDashboardPort = "8181"
	DefaultTelemetryDB   = "orbitarm.db"
	DefaultLogLevel      = "info"
)

// Env is the environment-derived configuration of the binaries.
// Command-line flags override these values.
type Env struct {
	SerialPort    string // ARM_SERIAL_PORT, empty disables the servo link
	BaudRate      int    // ARM_BAUD_RATE
	Camera        int    // ARM_CAMERA device index
	DashboardPort string // ARM_DASHBOARD_PORT, "off" disables the dashboard
	TelemetryDB   string // ARM_TELEMETRY_DB, "off" disables telemetry
	LogLevel      string // ARM_LOG_LEVEL
}

// Defaults returns the configuration with no environment applied
func Defaults() Env {
	return Env{
		BaudRate:      DefaultBaudRate,
		Camera:        DefaultCamera,
		DashboardPort: DefaultDashboardPort,
		TelemetryDB:   DefaultTelemetryDB,
		LogLevel:      DefaultLogLevel,
	}
}

// Load reads the ARM_* variables from the process environment
func Load() (Env, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads the ARM_* variables through lookup.
// Malformed numbers are reported, not silently defaulted.
func LoadFrom(lookup func(string) (string, bool)) (Env, error) {
	env := Defaults()

	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("ARM_SERIAL_PORT"); ok {
		env.SerialPort = v
	}
	if v, ok := get("ARM_BAUD_RATE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return env, fmt.Errorf("ARM_BAUD_RATE: invalid value %q", v)
		}
		env.BaudRate = n
	}
	if v, ok := get("ARM_CAMERA"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return env, fmt.Errorf("ARM_CAMERA: invalid device %q", v)
		}
		env.Camera = n
	}
	if v, ok := get("ARM_DASHBOARD_PORT"); ok {
		env.DashboardPort = v
	}
	if v, ok := get("ARM_TELEMETRY_DB"); ok {
		env.TelemetryDB = v
	}
	if v, ok := get("ARM_LOG_LEVEL"); ok {
		env.LogLevel = v
	}
	return env, nil
}

// Disabled reports whether a value switches its feature off
func Disabled(v string) bool {
	switch strings.ToLower(v) {
	case "", "off", "none", "false", "0":
		return true
	}
	return false
}

// DashboardAddr returns the listen address for the dashboard port
func (e Env) DashboardAddr() string {
	if strings.Contains(e.DashboardPort, ":") {
		return e.DashboardPort
	}
	return ":" + e.DashboardPort
}
