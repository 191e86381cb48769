package manager

// state is the manager's connection lifecycle position (§4.5).
type state int

const (
	stateUninitialized state = iota
	stateHosting
	stateConnecting
	stateConnected
)

func (s state) String() string {
	switch s {
	case stateHosting:
		return "hosting"
	case stateConnecting:
		return "connecting"
	case stateConnected:
		return "connected"
	default:
		return "uninitialized"
	}
}
