package kernel

import (
	"go.uber.org/zap"
)

// Comm is the client side of one bidirectional sub-channel. Process is
// called for every comm_msg addressed to it; Close is called once when the
// kernel closes the channel or the owning tab shuts down.
type Comm interface {
	TargetName() string
	Process(data map[string]any, buffers [][]byte)
	Close()
}

// CommSender is the slice of Session a comm needs to talk back to the
// kernel.
type CommSender interface {
	Send(msg Message, onReply ReplyHandler)
}

// CommConstructor builds the comm handler for one target name. The open
// payload is passed through so stateful widgets can seed themselves.
type CommConstructor func(commID, target string, sender CommSender, data map[string]any, buffers [][]byte) Comm

// Registry multiplexes comms by id on top of one session. It is mutated only
// from the session's delivery goroutine (the comm_* hooks run there), per
// the single-owner rule.
type Registry struct {
	sender       CommSender
	log          *zap.Logger
	constructors map[string]CommConstructor
	open         map[string]Comm
}

// NewRegistry returns an empty registry sending replies through sender.
func NewRegistry(sender CommSender, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		sender:       sender,
		log:          log,
		constructors: make(map[string]CommConstructor),
		open:         make(map[string]Comm),
	}
}

// RegisterTarget installs the constructor for a comm target name. Targets
// without a constructor fall back to a generic passthrough comm.
func (r *Registry) RegisterTarget(target string, ctor CommConstructor) {
	r.constructors[target] = ctor
}

// Len reports how many comms are open.
func (r *Registry) Len() int { return len(r.open) }

// OnOpen instantiates the comm for target and stores it under commID.
// Reopening an id the kernel already opened replaces the previous instance;
// its state is discarded after its Close runs.
func (r *Registry) OnOpen(commID, target string, data map[string]any, buffers [][]byte) {
	if commID == "" {
		r.log.Debug("comm_open without comm_id dropped")
		return
	}
	if prev, ok := r.open[commID]; ok {
		r.log.Debug("comm reopened, replacing", zap.String("comm_id", commID))
		prev.Close()
	}
	ctor, ok := r.constructors[target]
	if !ok {
		ctor = newGenericComm
	}
	r.open[commID] = ctor(commID, target, r.sender, data, buffers)
}

// OnMessage forwards data to the open comm. Messages for unknown ids are
// dropped silently: the kernel may race a message against our close.
func (r *Registry) OnMessage(commID string, data map[string]any, buffers [][]byte) {
	comm, ok := r.open[commID]
	if !ok {
		r.log.Debug("comm_msg for unknown comm dropped", zap.String("comm_id", commID))
		return
	}
	comm.Process(data, buffers)
}

// OnClose removes and releases the comm. Double close is a no-op.
func (r *Registry) OnClose(commID string, data map[string]any, buffers [][]byte) {
	comm, ok := r.open[commID]
	if !ok {
		return
	}
	delete(r.open, commID)
	comm.Close()
}

// CloseAll releases every open comm; called when the owning tab closes.
func (r *Registry) CloseAll() {
	for id, comm := range r.open {
		delete(r.open, id)
		comm.Close()
	}
}

// genericComm is the fallback handler for unknown targets: it keeps the last
// state payload and acknowledges nothing. Widgets the editor does not model
// still get open/close bookkeeping this way.
type genericComm struct {
	id     string
	target string
	sender CommSender
	state  map[string]any
}

func newGenericComm(commID, target string, sender CommSender, data map[string]any, buffers [][]byte) Comm {
	c := &genericComm{id: commID, target: target, sender: sender, state: map[string]any{}}
	c.merge(data)
	return c
}

func (c *genericComm) TargetName() string { return c.target }

func (c *genericComm) Process(data map[string]any, buffers [][]byte) {
	c.merge(data)
}

func (c *genericComm) Close() {}

func (c *genericComm) merge(data map[string]any) {
	state, ok := data["state"].(map[string]any)
	if !ok {
		return
	}
	for k, v := range state {
		c.state[k] = v
	}
}

// Reply sends a comm_msg back over this comm's channel.
func (c *genericComm) Reply(data map[string]any) {
	c.sender.Send(Message{
		Kind:    KindCommMsg,
		CommID:  c.id,
		Content: map[string]any{"comm_id": c.id, "data": data},
	}, nil)
}
