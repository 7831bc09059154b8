//go:build linux

package dispatch

// Latency feedback tracks compositor desyncs only on linux; elsewhere high
// latency samples have other causes and a resync does not help.
const detectDesyncByDefault = true
