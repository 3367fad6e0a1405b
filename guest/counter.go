package guest

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/crossbind/seqbridge"
)

// Counter adapts a guest instance's exported inc_ref/dec_ref functions into
// a seqbridge.RefCounter, so the guest can own the accounting for objects it
// allocated. Install it with bridge.SetCounter before handle traffic begins.
type Counter struct {
	ctx context.Context
	inc api.Function
	dec api.Function
}

// NewCounter resolves the inc_ref and dec_ref exports of mod. The context is
// captured because RefCounter calls carry none; it bounds every forwarded
// call.
func NewCounter(ctx context.Context, mod api.Module) (*Counter, error) {
	inc := mod.ExportedFunction("inc_ref")
	if inc == nil {
		return nil, fmt.Errorf("guest module %q does not export inc_ref", mod.Name())
	}
	dec := mod.ExportedFunction("dec_ref")
	if dec == nil {
		return nil, fmt.Errorf("guest module %q does not export dec_ref", mod.Name())
	}
	return &Counter{ctx: ctx, inc: inc, dec: dec}, nil
}

func (c *Counter) IncRef(ref seqbridge.Refnum) {
	if _, err := c.inc.Call(c.ctx, api.EncodeI32(int32(ref))); err != nil {
		Logger().Error("forwarded inc_ref", zap.Int32("refnum", int32(ref)), zap.Error(err))
		panic(err)
	}
}

func (c *Counter) DecRef(ref seqbridge.Refnum) {
	if _, err := c.dec.Call(c.ctx, api.EncodeI32(int32(ref))); err != nil {
		Logger().Error("forwarded dec_ref", zap.Int32("refnum", int32(ref)), zap.Error(err))
		panic(err)
	}
}
