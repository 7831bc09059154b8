//go:build !linux

package dispatch

const detectDesyncByDefault = false
