package transport

import "sync"

// InMemory is a Transport backed by a buffered channel to its paired peer.
// It is the one concrete transport this module ships (spec.md §1: the
// core otherwise only specifies the Transport contract); tests and the
// example client/server use a NewInMemoryPair to exercise the protocol
// core end to end without a real byte stream.
type InMemory struct {
	out chan Message
	in  chan Message

	mu       sync.Mutex
	started  bool
	closed   bool
	onMsg    func(Message)
	onErr    func(error)
	onClose  func()
	sessID   string
	protoVer string

	stop chan struct{}
}

// NewInMemoryPair returns two Transports, each delivering what the other
// sends. Frames are copied through unbuffered-enough channels so send
// order from one side is preserved on the other (spec §4.B).
func NewInMemoryPair() (a, b *InMemory) {
	ab := make(chan Message, 64)
	ba := make(chan Message, 64)
	a = &InMemory{out: ab, in: ba, stop: make(chan struct{})}
	b = &InMemory{out: ba, in: ab, stop: make(chan struct{})}
	return a, b
}

// WithSessionID sets the reconnect marker this transport reports, letting
// a test simulate a peer that skips re-initialization (spec §3, §9).
func (t *InMemory) WithSessionID(id string) *InMemory {
	t.mu.Lock()
	t.sessID = id
	t.mu.Unlock()
	return t
}

func (t *InMemory) Start() error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return nil
	}
	t.started = true
	t.mu.Unlock()

	go func() {
		for {
			select {
			case msg, ok := <-t.in:
				if !ok {
					t.fireClose()
					return
				}
				t.fireMessage(msg)
			case <-t.stop:
				return
			}
		}
	}()
	return nil
}

func (t *InMemory) Send(msg Message) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return errClosed
	}
	select {
	case t.out <- msg:
		return nil
	case <-t.stop:
		return errClosed
	}
}

func (t *InMemory) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.mu.Unlock()
	close(t.stop)
	close(t.out)
}

func (t *InMemory) SetOnMessage(f func(Message)) { t.mu.Lock(); t.onMsg = f; t.mu.Unlock() }
func (t *InMemory) SetOnError(f func(error))      { t.mu.Lock(); t.onErr = f; t.mu.Unlock() }
func (t *InMemory) SetOnClose(f func())           { t.mu.Lock(); t.onClose = f; t.mu.Unlock() }

func (t *InMemory) SessionID() string { t.mu.Lock(); defer t.mu.Unlock(); return t.sessID }

func (t *InMemory) SetProtocolVersion(v string) {
	t.mu.Lock()
	t.protoVer = v
	t.mu.Unlock()
}

// ProtocolVersion reports the version most recently handed to
// SetProtocolVersion, for assertions in tests.
func (t *InMemory) ProtocolVersion() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.protoVer
}

func (t *InMemory) fireMessage(msg Message) {
	t.mu.Lock()
	f := t.onMsg
	t.mu.Unlock()
	if f != nil {
		f(msg)
	}
}

func (t *InMemory) fireClose() {
	t.mu.Lock()
	f := t.onClose
	t.mu.Unlock()
	if f != nil {
		f()
	}
}

var errClosed = transportClosedError{}

type transportClosedError struct{}

func (transportClosedError) Error() string { return "transport: closed" }
