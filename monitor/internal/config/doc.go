// Package config loads and validates the monitor's YAML configuration:
// which server to talk to, which sensors to watch, and the analysis
// thresholds. Validation is strict at startup — a malformed thresholds
// block refuses to run rather than produce meaningless verdicts. Watch
// provides fsnotify-based hot reload for threshold tuning.
package config
