package entity

import "github.com/SilvaMendes/netrpc/rpcattr"

// Network is the thin facade an entity's interceptor uses to reach the
// manager without entity importing manager (which itself imports
// entity) — the only plumbing an entity needs: its own role and
// client-id for ownership checks, and a way to hand an encoded frame to
// the transport. *manager.Manager implements this.
type Network interface {
	Role() Role
	LocalClientID() uint32
	SendToServer(data []byte, mode rpcattr.DeliveryMode)
	Broadcast(data []byte, mode rpcattr.DeliveryMode)
}
