package guest

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/crossbind/seqbridge"
	"github.com/crossbind/seqbridge/bridge"
)

// Namespace is the import module name guests use for the bridge surface.
const Namespace = "seqbridge"

// Host registers a bridge's boundary operations as a wazero host module.
// Guests import them as:
//
//	(import "seqbridge" "init"    (func))
//	(import "seqbridge" "inc_ref" (func (param i32)))
//	(import "seqbridge" "dec_ref" (func (param i32)))
type Host struct {
	bridge *bridge.Bridge
}

// NewHost wraps b for exposure to guests. A nil b selects bridge.Default.
func NewHost(b *bridge.Bridge) *Host {
	if b == nil {
		b = bridge.Default()
	}
	return &Host{bridge: b}
}

// Instantiate builds and instantiates the host module on r. Must be called
// before any guest module importing Namespace is instantiated.
func (h *Host) Instantiate(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	return r.NewHostModuleBuilder(Namespace).
		NewFunctionBuilder().WithFunc(h.init).Export("init").
		NewFunctionBuilder().WithFunc(h.incRef).Export("inc_ref").
		NewFunctionBuilder().WithFunc(h.decRef).Export("dec_ref").
		Instantiate(ctx)
}

func (h *Host) init(context.Context) {
	h.bridge.Init()
}

func (h *Host) incRef(_ context.Context, ref int32) {
	if err := h.bridge.IncRef(seqbridge.Refnum(ref)); err != nil {
		Logger().Error("guest inc_ref", zap.Int32("refnum", ref), zap.Error(err))
		panic(err) // trap: a miscount is unrecoverable for the guest too
	}
}

func (h *Host) decRef(_ context.Context, ref int32) {
	if err := h.bridge.DecRef(seqbridge.Refnum(ref)); err != nil {
		Logger().Error("guest dec_ref", zap.Int32("refnum", ref), zap.Error(err))
		panic(err)
	}
}
