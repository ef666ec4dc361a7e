package middleware

import "github.com/codeready-toolchain/loom/pkg/backend"

// Wrapper is one backend-preserving decorator.
type Wrapper func(backend.Backend) backend.Backend

// Compose applies wrappers in order, so the first wrapper listed is the
// outermost — it runs first on entry, matching spec §4.D's "outer wrapper
// runs first on entry". Compose(b, Logging, Retry, Throttle) yields
// Logging(Retry(Throttle(b))).
func Compose(b backend.Backend, wrappers ...Wrapper) backend.Backend {
	for i := len(wrappers) - 1; i >= 0; i-- {
		b = wrappers[i](b)
	}
	return b
}
