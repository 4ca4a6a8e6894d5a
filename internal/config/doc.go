// Package config loads slotguard settings from YAML.
package config
