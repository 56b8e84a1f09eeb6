package simulator

import (
	"context"
	"sync"

	"github.com/ludo67100/MFDeltaLat/internal/network"
)

// RecordingKernel keeps every network it is asked to run instead of
// simulating it. FailOn, when set, is consulted before each run and its
// error returned.
type RecordingKernel struct {
	FailOn func(n *network.Network) error

	mu     sync.Mutex
	opened int
	closed int
	runs   []*network.Network
}

func (k *RecordingKernel) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k.mu.Lock()
	k.opened++
	k.mu.Unlock()
	return &recordingSession{kernel: k}, nil
}

// Runs returns the networks run so far, in order.
func (k *RecordingKernel) Runs() []*network.Network {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]*network.Network, len(k.runs))
	copy(out, k.runs)
	return out
}

// Opened and Closed count session lifecycle calls.
func (k *RecordingKernel) Opened() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.opened
}

func (k *RecordingKernel) Closed() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.closed
}

type recordingSession struct {
	state  sessionState
	kernel *RecordingKernel
}

func (s *recordingSession) Run(ctx context.Context, n *network.Network) error {
	if err := s.state.begin(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.kernel.FailOn != nil {
		if err := s.kernel.FailOn(n); err != nil {
			return err
		}
	}
	s.kernel.mu.Lock()
	s.kernel.runs = append(s.kernel.runs, n)
	s.kernel.mu.Unlock()
	return nil
}

func (s *recordingSession) Close() error {
	if s.state.close() {
		s.kernel.mu.Lock()
		s.kernel.closed++
		s.kernel.mu.Unlock()
	}
	return nil
}
