package log

import (
	"bytes"
	"sync"
	"sync/atomic"
)

const defaultBufferSize = 64

// Publisher is an [io.Writer] that splits written output into lines and fans
// each line out to subscribers.
//
// A trailing line without a newline is held until a later Write completes it
// or [Publisher.Close] flushes it. Lines are delivered without their line
// ending. Each [Subscription] receives lines on a buffered channel with
// ring-buffer semantics: when it is full the oldest line is dropped, so Write
// never blocks. Safe for concurrent use.
//
// Create instances with [NewPublisher].
type Publisher struct {
	subscribers []*Subscription
	partial     []byte
	bufSize     int
	mu          sync.Mutex
	closed      bool
}

// NewPublisher creates a [Publisher] with the given options.
// The default buffer size is 64 lines.
func NewPublisher(opts ...PublisherOption) *Publisher {
	p := &Publisher{
		bufSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// PublisherOption configures a [Publisher].
type PublisherOption func(*Publisher)

// WithBufferSize sets the number of lines buffered per subscription.
// Values less than 1 are clamped to 1.
func WithBufferSize(n int) PublisherOption {
	return func(p *Publisher) {
		p.bufSize = max(n, 1)
	}
}

// Write delivers every complete line in b to all active subscribers. Write
// always returns len(b), nil.
func (p *Publisher) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return len(b), nil
	}

	p.partial = append(p.partial, b...)

	for {
		i := bytes.IndexByte(p.partial, '\n')
		if i < 0 {
			break
		}

		line := string(bytes.TrimSuffix(p.partial[:i], []byte{'\r'}))
		p.partial = p.partial[i+1:]

		p.publish(line)
	}

	// Release the consumed prefix.
	p.partial = append([]byte(nil), p.partial...)

	return len(b), nil
}

// publish sends line to every subscriber and compacts closed ones. Callers
// must hold p.mu.
func (p *Publisher) publish(line string) {
	alive := p.subscribers[:0]
	for _, sub := range p.subscribers {
		if sub.closed.Load() {
			close(sub.ch)
			continue
		}

		select {
		case sub.ch <- line:
		default:
			<-sub.ch

			sub.ch <- line
		}

		alive = append(alive, sub)
	}

	clear(p.subscribers[len(alive):])
	p.subscribers = alive
}

// Subscribe creates and registers a new [Subscription]. If the Publisher is
// already closed the returned subscription's channel is immediately closed.
func (p *Publisher) Subscribe() *Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()

	sub := &Subscription{
		ch: make(chan string, p.bufSize),
	}

	if p.closed {
		close(sub.ch)
		return sub
	}

	p.subscribers = append(p.subscribers, sub)

	return sub
}

// Close flushes any pending partial line, closes all subscription channels
// and releases the subscriber list. Idempotent.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	if len(p.partial) > 0 {
		p.publish(string(p.partial))
		p.partial = nil
	}

	p.closed = true
	for _, sub := range p.subscribers {
		close(sub.ch)
	}

	p.subscribers = nil

	return nil
}

// Subscription receives log lines from a [Publisher].
type Subscription struct {
	ch     chan string
	closed atomic.Bool
}

// C returns the channel that delivers log lines.
func (s *Subscription) C() <-chan string {
	return s.ch
}

// Close marks the subscription as closed. The Publisher closes the
// underlying channel on its next delivery or Close. Idempotent.
func (s *Subscription) Close() {
	s.closed.Store(true)
}
