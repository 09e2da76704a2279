// Package injector executes server-supplied serializer source inside a
// target runtime's page context.
//
// This is remote code run in-process: the comparison server is an accepted
// trust boundary, assumed trusted by the adapter's operator. The step is
// isolated behind interfaces.Runtime so a stricter, sandboxed variant can
// be substituted without touching the orchestrator.
package injector

import (
	"context"
	"errors"
	"fmt"

	"github.com/smartui-sdk/smartui-go/internal/interfaces"
	"github.com/smartui-sdk/smartui-go/internal/logging"
)

// entryPointCheck verifies the serializer defined its global entry point.
const entryPointCheck = `typeof window !== 'undefined' && typeof window.SmartUIDOM === 'object' && typeof window.SmartUIDOM.serialize === 'function'`

// InjectionError means the serializer source failed to execute in the
// target runtime, or executed without defining SmartUIDOM.serialize. It
// surfaces the runtime's own execution error.
type InjectionError struct {
	Err error
}

func (e *InjectionError) Error() string {
	return fmt.Sprintf("serializer injection failed: %v", e.Err)
}

func (e *InjectionError) Unwrap() error { return e.Err }

// Inject runs the serializer source in rt's evaluation context and verifies
// that SmartUIDOM.serialize is defined afterwards. Redefining an already
// injected serializer is safe; callers inject once per capture.
//
// Runtimes that cannot execute scripts (native-app sessions) are skipped:
// their capture primitive is a structural dump that needs no serializer.
func Inject(ctx context.Context, rt interfaces.Runtime, source string, logger interfaces.Logger) error {
	log := logging.OrNop(logger)

	if err := rt.RunScript(ctx, source); err != nil {
		if errors.Is(err, interfaces.ErrScriptingUnsupported) {
			log.Debug("serializer injection skipped: runtime has no script context")
			return nil
		}
		return &InjectionError{Err: err}
	}

	ok, err := rt.Evaluate(ctx, entryPointCheck)
	if err != nil {
		if errors.Is(err, interfaces.ErrScriptingUnsupported) {
			return nil
		}
		return &InjectionError{Err: err}
	}
	if defined, _ := ok.(bool); !defined {
		return &InjectionError{Err: fmt.Errorf("serializer source did not define SmartUIDOM.serialize")}
	}

	log.Debug("serializer injected into runtime")
	return nil
}
