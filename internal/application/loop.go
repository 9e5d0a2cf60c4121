package application

import "sync"

// eventLoop serializes routing steps. A step holds the loop for its whole
// duration and releases it only around blocking I/O through suspend, so
// other steps can run while a fetch is in flight.
type eventLoop struct {
	mu sync.Mutex
}

func (l *eventLoop) run(step func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	step()
}

// suspend must be called from inside run.
func (l *eventLoop) suspend(io func()) {
	l.mu.Unlock()
	defer l.mu.Lock()
	io()
}
