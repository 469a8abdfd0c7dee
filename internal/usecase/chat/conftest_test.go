package chat

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/kailas-cloud/tourguide/internal/domain"
	"github.com/kailas-cloud/tourguide/internal/usecase/assemble"
	"github.com/kailas-cloud/tourguide/internal/usecase/intent"
)

var errUpstream = errors.New("upstream 503")

type mockRouter struct {
	plan  intent.Plan
	err   error
	calls int
}

func (m *mockRouter) Route(context.Context, string) (intent.Plan, error) {
	m.calls++
	return m.plan, m.err
}

type mockAssembler struct {
	bundle assemble.Bundle
	got    assemble.Request
}

func (m *mockAssembler) Build(_ context.Context, req assemble.Request) assemble.Bundle {
	m.got = req
	return m.bundle
}

// scriptedStream yields frags, then endErr (io.EOF when nil). With hold set it
// blocks after the last fragment until closed.
type scriptedStream struct {
	frags  []string
	endErr error
	hold   bool

	mu     sync.Mutex
	i      int
	once   sync.Once
	closed chan struct{}
}

func newStream(frags ...string) *scriptedStream {
	return &scriptedStream{frags: frags, closed: make(chan struct{})}
}

func (s *scriptedStream) Recv() (string, error) {
	s.mu.Lock()
	if s.i < len(s.frags) {
		f := s.frags[s.i]
		s.i++
		s.mu.Unlock()
		return f, nil
	}
	s.mu.Unlock()
	if s.hold {
		<-s.closed
		return "", errors.New("stream closed")
	}
	if s.endErr != nil {
		return "", s.endErr
	}
	return "", io.EOF
}

func (s *scriptedStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func (s *scriptedStream) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

type mockStreamer struct {
	stream   *scriptedStream
	err      error
	messages []domain.ChatMessage
	params   domain.GenerationParams
	calls    int
}

func (m *mockStreamer) Stream(
	_ context.Context, messages []domain.ChatMessage, params domain.GenerationParams,
) (domain.FragmentStream, error) {
	m.calls++
	m.messages = messages
	m.params = params
	if m.err != nil {
		return nil, m.err
	}
	return m.stream, nil
}

// recorder collects frames. onWrite runs after each recorded event.
type recorder struct {
	events  []any
	done    int
	failAt  int // 1-based event index that fails; 0 never fails
	onWrite func(n int)
}

func (r *recorder) WriteEvent(v any) error {
	if r.failAt > 0 && len(r.events)+1 == r.failAt {
		return errors.New("broken pipe")
	}
	r.events = append(r.events, v)
	if r.onWrite != nil {
		r.onWrite(len(r.events))
	}
	return nil
}

func (r *recorder) WriteDone() error {
	r.done++
	return nil
}

func (r *recorder) frames() []Frame {
	var out []Frame
	for _, e := range r.events {
		if f, ok := e.(Frame); ok {
			out = append(out, f)
		}
	}
	return out
}

func (r *recorder) errorFrames() []ErrorFrame {
	var out []ErrorFrame
	for _, e := range r.events {
		if f, ok := e.(ErrorFrame); ok {
			out = append(out, f)
		}
	}
	return out
}

// text concatenates chunk frames after the opening frame.
func (r *recorder) text() string {
	var s string
	for i, f := range r.frames() {
		if i == 0 {
			continue
		}
		s += f.Chunk
	}
	return s
}
