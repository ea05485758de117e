// Package config loads hushpayd settings from an optional JSON file, a .env
// file and the process environment, in that order of precedence.
package config
