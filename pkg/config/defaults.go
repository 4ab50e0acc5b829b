package config

import "time"

// API defaults.
const (
	DefaultBaseURL    = "http://127.0.0.1:8000"
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 2
	DefaultRateLimit  = 0.0
	DefaultBurst      = 1
)

// Hotspot defaults.
const (
	DefaultThreshold   = 0.5
	DefaultHotspotOnly = false
)

// Scene defaults.
const (
	DefaultColorMode    = "churn"
	DefaultFOV          = 70.0
	DefaultRotationStep = 0.005
	DefaultSkipVendor   = false
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = LogFormatText
)

// Server defaults.
const (
	DefaultHost        = "127.0.0.1"
	DefaultPort        = 8090
	DefaultPrometheus  = true
	DefaultReadTimeout = 15 * time.Second
)
