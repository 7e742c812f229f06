// internal/recovery/recovery.go
package recovery

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/charmbracelet/log"
)

// HandlePanic should be deferred at the top of main() or goroutines.
// It logs panic details and exits with code 1.
//
// The panic is reported twice: once as the exact "FATAL: ...\n\nStack
// trace:\n..." text on stderr that scripts and tests grep for, and once as a
// structured github.com/charmbracelet/log entry (the same logger
// internal/generator and internal/audio use for their lifecycle events) so
// the panic shows up in whatever log pipeline is consuming those.
func HandlePanic() {
	if r := recover(); r != nil {
		stack := debug.Stack()
		_, _ = fmt.Fprintf(os.Stderr, "FATAL: %v\n\nStack trace:\n%s\n", r, stack)
		log.Error("panic recovered", "panic", r, "stack", string(stack))
		os.Exit(1)
	}
}

// HandlePanicFunc logs panic details and calls the provided cleanup function.
func HandlePanicFunc(cleanup func()) {
	if r := recover(); r != nil {
		stack := debug.Stack()
		_, _ = fmt.Fprintf(os.Stderr, "FATAL: %v\n\nStack trace:\n%s\n", r, stack)
		log.Error("panic recovered, running cleanup", "panic", r, "stack", string(stack))
		if cleanup != nil {
			cleanup()
		}
		os.Exit(1)
	}
}

// Usage in goroutines (with cleanup):
//go func() {
//	defer recovery.HandlePanicFunc(func() {
//		close(d.doneCh)
//	})
//	d.processLoop(ctx)
//}()
