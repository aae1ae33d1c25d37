package bridge

import (
	"go.uber.org/zap"

	"github.com/devlas/sumup-bridge/internal/outcome"
	"github.com/devlas/sumup-bridge/internal/protocol"
)

// OnActivityResult receives an out-of-band result event from the host,
// identified only by its integer request code. The Bridge implements
// terminal.ResultSink through it.
//
// Unknown request codes belong to someone else and are ignored. A known
// code with no pending call is dropped: the caller already gave up or was
// superseded, and there is nobody left to tell.
func (b *Bridge) OnActivityResult(requestCode, resultCode int, extras outcome.Bag) {
	class, ok := protocol.ClassForRequestCode(requestCode)
	if !ok {
		b.logger.Debug("ignoring result with unknown request code",
			zap.Int("request_code", requestCode))
		return
	}

	call, ok := b.registry.Claim(class)
	if !ok {
		b.metrics.UnmatchedEvents.Inc()
		b.logger.Debug("dropping result with no pending call",
			zap.String("class", class.String()),
			zap.Int("result_code", resultCode))
		return
	}

	o := outcome.Decode(class, resultCode, extras)
	b.logger.Info("result routed",
		zap.String("class", class.String()),
		zap.String("call_id", call.ID),
		zap.Bool("success", o.Success),
		zap.String("code", o.Code))
	b.resolve(call, o)
}
