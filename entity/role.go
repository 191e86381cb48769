package entity

// Role is the local peer's position in the session, as seen by the
// interceptor decision table (§4.3).
type Role int

const (
	// RoleDisconnected means no session is active; server-bound calls
	// are suppressed outright and nothing is sent.
	RoleDisconnected Role = iota
	// RoleHost means this process owns the authoritative registry.
	RoleHost
	// RoleClient means this process is connected to exactly one host.
	RoleClient
)

func (r Role) String() string {
	switch r {
	case RoleHost:
		return "host"
	case RoleClient:
		return "client"
	default:
		return "disconnected"
	}
}
