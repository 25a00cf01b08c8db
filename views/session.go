package views

import (
	"sync"

	"scribe/models"
)

// SessionObserver owns the current auth state. Views get one injected and
// read Current at the moment an action runs.
type SessionObserver struct {
	mu      sync.RWMutex
	current *models.Session
	nextID  int
	subs    map[int]func(*models.Session)
}

func NewSessionObserver(initial *models.Session) *SessionObserver {
	return &SessionObserver{current: initial, subs: make(map[int]func(*models.Session))}
}

func (o *SessionObserver) Current() *models.Session {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.current
}

// Set replaces the session and notifies subscribers. nil means signed out.
func (o *SessionObserver) Set(s *models.Session) {
	o.mu.Lock()
	o.current = s
	fns := make([]func(*models.Session), 0, len(o.subs))
	for _, fn := range o.subs {
		fns = append(fns, fn)
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// Subscribe calls fn on every change until the returned func is called.
func (o *SessionObserver) Subscribe(fn func(*models.Session)) (unsubscribe func()) {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.subs[id] = fn
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			o.mu.Unlock()
		})
	}
}
