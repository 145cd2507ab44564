// Package config loads, normalizes, and validates airchart configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and validates the scoring rules the chart
// pipeline treats as business contracts. Always obtain settings through this
// package so downstream code receives sanitized paths and canonical values.
package config
