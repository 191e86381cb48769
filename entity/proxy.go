package entity

import (
	"reflect"

	"github.com/SilvaMendes/netrpc/registry"
)

// NewProxy is the only supported construction path for a networked
// entity (§6: "Instantiate networked entities only via the proxy
// factory"). It builds (or reuses) the type's cached RPC descriptor
// table via reg, then wires the entity's identity.
//
// There is no separate wrapper value standing between the caller and
// the entity it gets back — §9 notes the source's dynamic-proxy
// interception "has no direct equivalent without runtime codegen"; here
// the entity's own Route method (promoted from Base) plays that role,
// called explicitly by each RPC method's body instead of interposed by
// a generated subclass.
func NewProxy(reg *registry.Registry, net Network, construct func() Entity, id, owner uint32) (Entity, error) {
	e := construct()
	typ := reflect.TypeOf(e)
	descriptors, err := reg.CacheDescriptors(typ, e.RPCTable())
	if err != nil {
		return nil, err
	}
	e.Init(net, typ, id, owner, descriptors)
	return e, nil
}
