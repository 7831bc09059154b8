package main

import "testing"

func TestInProcessHost(t *testing.T) {
	h := &inProcessHost{}
	if h.callbacks() != nil {
		t.Error("callbacks before Register should be nil")
	}
	cb := &fakeCallbacks{}
	h.Register(cb)
	if h.callbacks() != cb {
		t.Error("callbacks should return the registered value")
	}
}
