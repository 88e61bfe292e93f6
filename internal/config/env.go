// Package config provides environment helpers for kiosk commands.
package config

import "os"

// Default service addresses.
const (
	DefaultDashboardAddr = ":3000"
	DefaultSignalAddr    = ":8765"
	DefaultMetricsAddr   = ":9090"
)

// ConfigPath returns the config file path from KIOSK_CONFIG, falling
// back to the provided default.
func ConfigPath(defaultPath string) string {
	if p := os.Getenv("KIOSK_CONFIG"); p != "" {
		return p
	}
	return defaultPath
}

// CameraIndexEnv returns the KIOSK_CAMERA override, or "" if unset.
// The value is parsed by the caller so flag handling stays in one place.
func CameraIndexEnv() string {
	return os.Getenv("KIOSK_CAMERA")
}

// CatalogURL returns the catalog URL from KIOSK_CATALOG_URL or default.
func CatalogURL(defaultURL string) string {
	if u := os.Getenv("KIOSK_CATALOG_URL"); u != "" {
		return u
	}
	return defaultURL
}

// ModelPath returns the detector model path from KIOSK_MODEL or default.
func ModelPath(defaultPath string) string {
	if p := os.Getenv("KIOSK_MODEL"); p != "" {
		return p
	}
	return defaultPath
}
