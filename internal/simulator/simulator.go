// Package simulator hands network descriptions to a spiking-network
// simulator. Each run happens inside a Session: opening one resets all
// simulator state, closing it tears that state down, so no neuron or
// synapse state can leak from one parameter combination into the next.
package simulator

import (
	"context"
	"errors"
	"sync"

	"github.com/ludo67100/MFDeltaLat/internal/network"
)

// ErrSessionClosed is returned when a closed session is used.
var ErrSessionClosed = errors.New("simulator session is closed")

// ErrSessionUsed is returned when a session is asked to run a second network.
var ErrSessionUsed = errors.New("simulator session already ran a network")

// Kernel opens simulator sessions.
type Kernel interface {
	// Open starts from a freshly reset simulator.
	Open(ctx context.Context) (Session, error)
}

// Session is one simulator lifetime. It runs exactly one network.
type Session interface {
	// Run configures the network and simulates it for n.Duration ms.
	// Traces are written by the simulator; nothing is returned.
	Run(ctx context.Context, n *network.Network) error
	// Close releases the session. It is safe to call more than once.
	Close() error
}

// sessionState tracks the one-shot lifecycle shared by all backends.
type sessionState struct {
	mu     sync.Mutex
	used   bool
	closed bool
}

// begin marks the session as used, or reports why it can't run.
func (s *sessionState) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.used {
		return ErrSessionUsed
	}
	s.used = true
	return nil
}

// close reports whether this call is the one that closed the session.
func (s *sessionState) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	return true
}

// With opens a session, passes it to fn, and always closes it.
func With(ctx context.Context, k Kernel, fn func(Session) error) (err error) {
	sess, err := k.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(sess)
}
