package stores

import (
	"context"
	"sync"
)

// MemorySignal is an in-process roles-changed broadcast. Subscribers that are
// not keeping up miss events rather than block the publisher; a missed event
// only delays a reload until the next one.
type MemorySignal struct {
	mu   sync.Mutex
	subs []chan struct{}
}

func NewMemorySignal() *MemorySignal { return &MemorySignal{} }

func (s *MemorySignal) Publish(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

func (s *MemorySignal) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		for i, sub := range s.subs {
			if sub == ch {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}
