package kernel

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Status is the session's view of the kernel's execution state.
type Status string

const (
	StatusUnknown  Status = "unknown"
	StatusStarting Status = "starting"
	StatusIdle     Status = "idle"
	StatusBusy     Status = "busy"
	StatusDead     Status = "dead"
)

var (
	// ErrNotConnected reports a send attempted without a live transport.
	ErrNotConnected = errors.New("kernel: not connected")
	// ErrKernelDead reports that the transport dropped; pending callbacks
	// receive it exactly once.
	ErrKernelDead = errors.New("kernel: disconnected")
	// ErrKernelUnresponsive reports a bounded wait that timed out.
	ErrKernelUnresponsive = errors.New("kernel: unresponsive")
	// ErrClosed reports an operation on a closed session.
	ErrClosed = errors.New("kernel: session closed")
)

// ReplyHandler receives the reply matched to a request, or an error when the
// session dies first. It fires at most once, on the session's delivery
// goroutine; UI owners must hand results off to their own loop.
type ReplyHandler func(msg Message, err error)

// Hook receives broadcast messages of one kind, on the delivery goroutine.
type Hook func(msg Message)

// DefaultStartTimeout bounds Start(wait=true) and restart handshakes.
const DefaultStartTimeout = 30 * time.Second

type statusWaiter struct {
	target Status
	ch     chan struct{}
}

// Session owns one kernel conversation. A single goroutine (the delivery
// loop) exclusively owns the pending-callback map, the hook table, and
// status transitions; public methods funnel work to it over channels, so no
// lock covers that state. Only the status snapshot read by the render loop
// sits behind a mutex.
type Session struct {
	transport Transport
	log       *zap.Logger

	recvCh  chan Message
	cmdCh   chan func()
	done    chan struct{}
	stopped chan struct{}

	// Owned by the delivery loop.
	pending map[string]ReplyHandler
	hooks   map[string]Hook
	waiters []statusWaiter
	status  Status

	statusMu     sync.Mutex
	statusSnap   Status
	closeOnce    sync.Once
	startTimeout time.Duration
}

// NewSession wraps an already-connected transport. The delivery loop starts
// immediately; the kernel is not considered started until Start runs the
// kernel-info handshake.
func NewSession(t Transport, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{
		transport:    t,
		log:          log,
		recvCh:       make(chan Message, 64),
		cmdCh:        make(chan func()),
		done:         make(chan struct{}),
		stopped:      make(chan struct{}),
		pending:      make(map[string]ReplyHandler),
		hooks:        make(map[string]Hook),
		status:       StatusUnknown,
		statusSnap:   StatusUnknown,
		startTimeout: DefaultStartTimeout,
	}
	if t != nil {
		t.OnReceive(s.enqueue)
		t.OnDisconnect(func(err error) {
			s.post(func() { s.onDisconnect(err) })
		})
	}
	go s.loop()
	return s
}

// Status returns the last observed kernel status. Safe from any goroutine.
func (s *Session) Status() Status {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return s.statusSnap
}

// Hook registers the passive handler for one broadcast message kind. The
// owning tab registers its hooks once, before the kernel starts producing
// traffic; a second registration for the same kind replaces the first.
func (s *Session) Hook(kind string, fn Hook) {
	s.post(func() { s.hooks[kind] = fn })
}

// Start launches the kernel handshake. With wait=false it returns
// immediately and onStarted fires from the delivery loop once the kernel
// reports ready (or with the failure). With wait=true it blocks the caller
// until ready, a failure, or the start timeout.
func (s *Session) Start(onStarted func(error), wait bool) error {
	ready := make(chan error, 1)
	s.post(func() {
		s.setStatus(StatusStarting)
		s.sendLocked(Message{Kind: KindKernelInfoRequest}, func(msg Message, err error) {
			if err == nil {
				s.setStatus(StatusIdle)
			}
			if onStarted != nil {
				onStarted(err)
			}
			ready <- err
		})
	})
	if !wait {
		return nil
	}
	select {
	case err := <-ready:
		return err
	case <-time.After(s.startTimeout):
		return ErrKernelUnresponsive
	case <-s.done:
		return ErrClosed
	}
}

// Send transmits a request and registers onReply against its fresh id.
// Transport problems are logged, surfaced to onReply, and never panic into
// the caller.
func (s *Session) Send(msg Message, onReply ReplyHandler) {
	s.post(func() { s.sendLocked(msg, onReply) })
}

// Interrupt asks the kernel to interrupt whatever it is executing. Safe to
// call in any status; no acknowledgement is awaited.
func (s *Session) Interrupt() {
	s.post(func() { s.sendLocked(Message{Kind: KindInterruptRequest}, nil) })
}

// Restart sends shutdown-with-restart. When the kernel confirms, status
// resets through starting back to idle and onRestarted fires. Confirmation
// gating is the caller's responsibility.
func (s *Session) Restart(onRestarted func(error)) {
	s.post(func() {
		req := Message{Kind: KindShutdownRequest, Content: map[string]any{"restart": true}}
		s.sendLocked(req, func(msg Message, err error) {
			if err != nil {
				if onRestarted != nil {
					onRestarted(err)
				}
				return
			}
			s.setStatus(StatusStarting)
			s.sendLocked(Message{Kind: KindKernelInfoRequest}, func(msg Message, err error) {
				if err == nil {
					s.setStatus(StatusIdle)
				}
				if onRestarted != nil {
					onRestarted(err)
				}
			})
		})
	})
}

// WaitForStatus blocks until the session reaches target, returning
// immediately when already there. The wait is bounded: on timeout it returns
// ErrKernelUnresponsive rather than hanging.
func (s *Session) WaitForStatus(target Status, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = s.startTimeout
	}
	if s.Status() == target {
		return nil
	}
	ch := make(chan struct{})
	s.post(func() {
		if s.status == target {
			close(ch)
			return
		}
		s.waiters = append(s.waiters, statusWaiter{target: target, ch: ch})
	})
	select {
	case <-ch:
		return nil
	case <-time.After(timeout):
		return ErrKernelUnresponsive
	case <-s.done:
		return ErrClosed
	}
}

// Close stops the delivery loop, fails every pending callback with
// ErrKernelDead, and releases the transport. It does not return until the
// loop has exited, so no hook runs after Close. Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
	<-s.stopped
}

// post runs fn on the delivery loop; it is dropped when the session is
// closed.
func (s *Session) post(fn func()) {
	select {
	case s.cmdCh <- fn:
	case <-s.done:
	}
}

func (s *Session) enqueue(msg Message) {
	select {
	case s.recvCh <- msg:
	case <-s.done:
	}
}

func (s *Session) loop() {
	for {
		select {
		case msg := <-s.recvCh:
			s.dispatch(msg)
		case fn := <-s.cmdCh:
			fn()
		case <-s.done:
			s.teardown()
			close(s.stopped)
			return
		}
	}
}

// sendLocked runs on the delivery loop only.
func (s *Session) sendLocked(msg Message, onReply ReplyHandler) {
	if s.transport == nil || s.status == StatusDead {
		s.log.Warn("send dropped: kernel not connected", zap.String("kind", msg.Kind))
		if onReply != nil {
			onReply(Message{}, ErrNotConnected)
		}
		return
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	id, err := s.transport.Send(msg)
	if err != nil {
		s.log.Warn("transport send failed", zap.String("kind", msg.Kind), zap.Error(err))
		if onReply != nil {
			onReply(Message{}, err)
		}
		return
	}
	if onReply != nil {
		s.pending[id] = onReply
	}
}

// dispatch runs on the delivery loop only. Replies are matched by parent id
// and their callback fires exactly once; an unmatched id is dropped with a
// log line because kernels emit unsolicited traffic. Broadcast kinds go to
// the registered hooks.
func (s *Session) dispatch(msg Message) {
	if msg.Kind == KindStatus {
		switch msg.ContentString("execution_state") {
		case "busy":
			s.setStatus(StatusBusy)
		case "idle":
			s.setStatus(StatusIdle)
		case "starting":
			s.setStatus(StatusStarting)
		}
	}

	if msg.ParentID != "" {
		if cb, ok := s.pending[msg.ParentID]; ok && isReplyKind(msg.Kind) {
			delete(s.pending, msg.ParentID)
			cb(msg, nil)
		} else if !ok && isReplyKind(msg.Kind) {
			s.log.Debug("reply for unknown request dropped",
				zap.String("kind", msg.Kind), zap.String("parent_id", msg.ParentID))
		}
	}

	if hook, ok := s.hooks[msg.Kind]; ok {
		hook(msg)
	}
}

func isReplyKind(kind string) bool {
	switch kind {
	case KindKernelInfoReply, KindExecuteReply, KindShutdownReply, KindInputReply:
		return true
	}
	return false
}

// setStatus runs on the delivery loop only.
func (s *Session) setStatus(next Status) {
	if s.status == next {
		return
	}
	s.status = next
	s.statusMu.Lock()
	s.statusSnap = next
	s.statusMu.Unlock()

	remaining := s.waiters[:0]
	for _, w := range s.waiters {
		if w.target == next {
			close(w.ch)
		} else {
			remaining = append(remaining, w)
		}
	}
	s.waiters = remaining

	if hook, ok := s.hooks["status_changed"]; ok {
		hook(Message{Kind: "status_changed", Content: map[string]any{"status": string(next)}})
	}
}

// onDisconnect runs on the delivery loop only.
func (s *Session) onDisconnect(err error) {
	if s.status == StatusDead {
		return
	}
	s.log.Warn("kernel transport disconnected", zap.Error(err))
	s.setStatus(StatusDead)
	s.failPending()
}

func (s *Session) teardown() {
	s.setStatus(StatusDead)
	// Remaining waiters unblock through the done channel; dropping them here
	// keeps a closed session from pinning their channels.
	s.waiters = nil
	s.failPending()
	if s.transport != nil {
		_ = s.transport.Close()
	}
}

func (s *Session) failPending() {
	for id, cb := range s.pending {
		delete(s.pending, id)
		cb(Message{}, ErrKernelDead)
	}
}
