// Package kernel owns the live conversation with a compute kernel: the
// session actor that correlates asynchronous replies with requests, tracks
// execution status, and multiplexes comm sub-channels. UI code talks to it
// through fire-and-forget calls plus callbacks; the two blocking entry points
// (Start with wait, WaitForStatus) carry timeouts.
package kernel

// Message kinds. The set is open ended; these are the ones the session and
// tab route specially.
const (
	KindKernelInfoRequest = "kernel_info_request"
	KindKernelInfoReply   = "kernel_info_reply"
	KindExecuteRequest    = "execute_request"
	KindExecuteReply      = "execute_reply"
	KindInterruptRequest  = "interrupt_request"
	KindShutdownRequest   = "shutdown_request"
	KindShutdownReply     = "shutdown_reply"
	KindStatus            = "status"
	KindStream            = "stream"
	KindExecuteResult     = "execute_result"
	KindDisplayData       = "display_data"
	KindError             = "error"
	KindInputRequest      = "input_request"
	KindInputReply        = "input_reply"
	KindCommOpen          = "comm_open"
	KindCommMsg           = "comm_msg"
	KindCommClose         = "comm_close"
)

// Message is one protocol envelope. ID identifies the message itself;
// ParentID links a reply or side-effect back to the request that caused it;
// CommID names the comm sub-channel for comm_* kinds.
type Message struct {
	Kind     string         `json:"kind"`
	ID       string         `json:"id,omitempty"`
	ParentID string         `json:"parent_id,omitempty"`
	CommID   string         `json:"comm_id,omitempty"`
	Content  map[string]any `json:"content,omitempty"`
	Buffers  [][]byte       `json:"buffers,omitempty"`
}

// ContentString fetches a string content field, or "".
func (m Message) ContentString(key string) string {
	s, _ := m.Content[key].(string)
	return s
}

// ContentMap fetches a nested map content field, or an empty map.
func (m Message) ContentMap(key string) map[string]any {
	if v, ok := m.Content[key].(map[string]any); ok {
		return v
	}
	return map[string]any{}
}

// NewExecuteRequest builds an execute_request for the given source.
func NewExecuteRequest(source string, allowStdin bool) Message {
	return Message{
		Kind: KindExecuteRequest,
		Content: map[string]any{
			"code":          source,
			"allow_stdin":   allowStdin,
			"stop_on_error": true,
		},
	}
}

// Transport is the point-to-point boundary to a kernel process. Send
// transmits an envelope and returns the message id used on the wire.
// OnReceive installs the inbound handler; OnDisconnect installs the handler
// invoked once when the connection drops. Both handlers run on the
// transport's delivery goroutine.
type Transport interface {
	Send(Message) (string, error)
	OnReceive(func(Message))
	OnDisconnect(func(error))
	Close() error
}
