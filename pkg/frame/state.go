package frame

// State is the dispatcher phase.
type State int32

const (
	StateIdle State = iota
	StatePollTransport
	StateDrainInbound
	StateDrainOutbound
	StateRenderFrame
	StateInvokeDeferred
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePollTransport:
		return "poll_transport"
	case StateDrainInbound:
		return "drain_inbound"
	case StateDrainOutbound:
		return "drain_outbound"
	case StateRenderFrame:
		return "render_frame"
	case StateInvokeDeferred:
		return "invoke_deferred"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}
