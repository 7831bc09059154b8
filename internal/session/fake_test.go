package session

import (
	"sync"
	"time"
)

// fakeContext is a minimal Context for cell tests.
type fakeContext struct {
	mu       sync.Mutex
	started  int
	haptics  []Haptics
	closed   int
	restarts int
}

func (f *fakeContext) StartConnection() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
}

func (f *fakeContext) PollEvent() (Event, bool) { return nil, false }

func (f *fakeContext) SendHaptics(h Haptics) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.haptics = append(f.haptics, h)
}

func (f *fakeContext) DurationUntilNextVsync() (time.Duration, bool) {
	return 4 * time.Millisecond, true
}

func (f *fakeContext) Restart() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restarts++
}

func (f *fakeContext) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}
