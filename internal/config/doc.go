// Package config provides configuration structures and utilities for voiceline.
// It defines the scrape options, the optional .voiceline configuration file,
// the default source list, and service-account credential loading.
package config
