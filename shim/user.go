package shim

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-emscripten/guest"
	"github.com/wippyai/wasm-emscripten/host"
	"github.com/wippyai/wasm-emscripten/layout"
)

// Getpwuid looks uid up on the host and returns a freshly allocated guest
// passwd struct, or 0 (NULL) when the host has no entry or the lookup fails.
func Getpwuid(ctx context.Context, c *guest.Context, uid uint32) uint32 {
	log(c).Debug("getpwuid", zap.Uint32("uid", uid))

	pw, err := c.Host.LookupUID(uid)
	if err != nil {
		if !errors.Is(err, host.ErrNoSuchUser) {
			log(c).Debug("getpwuid lookup failed", zap.Uint32("uid", uid), zap.Error(err))
		}
		return 0
	}
	return layout.WritePasswd(ctx, c, pw)
}
