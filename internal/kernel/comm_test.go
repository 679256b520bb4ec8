package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingComm struct {
	target    string
	processed []map[string]any
	closed    int
	replies   CommSender
}

func (c *recordingComm) TargetName() string { return c.target }
func (c *recordingComm) Process(data map[string]any, buffers [][]byte) {
	c.processed = append(c.processed, data)
}
func (c *recordingComm) Close() { c.closed++ }

type nullSender struct{ sent []Message }

func (s *nullSender) Send(msg Message, onReply ReplyHandler) { s.sent = append(s.sent, msg) }

func newTestRegistry() (*Registry, *nullSender, *recordingComm) {
	sender := &nullSender{}
	r := NewRegistry(sender, nil)
	last := &recordingComm{}
	r.RegisterTarget("test.widget", func(commID, target string, sender CommSender, data map[string]any, buffers [][]byte) Comm {
		*last = recordingComm{target: target, replies: sender}
		return last
	})
	return r, sender, last
}

func TestCommLifecycleOpenCloseThenMessageIsDropped(t *testing.T) {
	r, _, comm := newTestRegistry()
	before := r.Len()

	r.OnOpen("c1", "test.widget", map[string]any{"state": map[string]any{}}, nil)
	require.Equal(t, before+1, r.Len())

	r.OnClose("c1", nil, nil)
	require.Equal(t, before, r.Len())
	require.Equal(t, 1, comm.closed)

	// A message racing against our close is dropped, not an error.
	r.OnMessage("c1", map[string]any{"x": 1}, nil)
	require.Empty(t, comm.processed)
	require.Equal(t, before, r.Len())
}

func TestCommMessagesReachTheOpenComm(t *testing.T) {
	r, _, comm := newTestRegistry()
	r.OnOpen("c1", "test.widget", nil, nil)
	r.OnMessage("c1", map[string]any{"value": 42}, nil)
	r.OnMessage("c1", map[string]any{"value": 43}, nil)
	require.Len(t, comm.processed, 2)
	require.Equal(t, 43, comm.processed[1]["value"])
}

func TestReopenReplacesPreviousInstance(t *testing.T) {
	r, _, comm := newTestRegistry()
	r.OnOpen("c1", "test.widget", nil, nil)
	r.OnMessage("c1", map[string]any{"gen": 1}, nil)

	// Reopening the same id discards the previous instance's state.
	r.OnOpen("c1", "test.widget", nil, nil)
	require.Equal(t, 1, r.Len())
	require.Empty(t, comm.processed)

	r.OnMessage("c1", map[string]any{"gen": 2}, nil)
	require.Len(t, comm.processed, 1)
	require.Equal(t, 2, comm.processed[0]["gen"])
}

func TestDoubleCloseIsNoop(t *testing.T) {
	r, _, comm := newTestRegistry()
	r.OnOpen("c1", "test.widget", nil, nil)
	r.OnClose("c1", nil, nil)
	r.OnClose("c1", nil, nil)
	require.Equal(t, 1, comm.closed)
}

func TestUnknownTargetFallsBackToGenericComm(t *testing.T) {
	r, _, _ := newTestRegistry()
	r.OnOpen("c9", "mystery.target", map[string]any{"state": map[string]any{"a": 1}}, nil)
	require.Equal(t, 1, r.Len())
	// The generic comm absorbs state updates without error.
	r.OnMessage("c9", map[string]any{"state": map[string]any{"b": 2}}, nil)
	r.OnClose("c9", nil, nil)
	require.Equal(t, 0, r.Len())
}

func TestCloseAllReleasesEverything(t *testing.T) {
	r, _, _ := newTestRegistry()
	r.OnOpen("c1", "test.widget", nil, nil)
	r.OnOpen("c2", "mystery", nil, nil)
	r.CloseAll()
	require.Equal(t, 0, r.Len())
}

func TestGenericCommCanReplyThroughSession(t *testing.T) {
	sender := &nullSender{}
	r := NewRegistry(sender, nil)
	r.OnOpen("c1", "unknown", nil, nil)
	// Reach the generic comm through the registry's open table indirectly:
	// generic comms reply on demand in widget code; here we exercise the
	// plumbing directly.
	g := newGenericComm("c1", "unknown", sender, nil, nil).(*genericComm)
	g.Reply(map[string]any{"ack": true})
	require.Len(t, sender.sent, 1)
	require.Equal(t, KindCommMsg, sender.sent[0].Kind)
	require.Equal(t, "c1", sender.sent[0].CommID)
}

func TestOpenWithoutCommIDIsDropped(t *testing.T) {
	r, _, _ := newTestRegistry()
	r.OnOpen("", "test.widget", nil, nil)
	require.Equal(t, 0, r.Len())
}
