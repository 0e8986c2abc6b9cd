// Package window builds the bounded, time-ordered reading window the
// analysis cycle operates on. A Window is a pure value: Build sorts and
// truncates a raw query result and nothing owns it across cycles.
package window
