package wire

import (
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Warnf logs a drop+warn diagnostic to stderr, throttled per category so a
// storm of malformed packets (or a saturated egress ring) can't flood the
// log — forwarding itself is never throttled, only the log line.
//
// category should be a short constant string ("invalid package", "package
// loss", ...) shared by every call site that reports the same kind of
// drop.
func Warnf(category, format string, args ...any) {
	if !limiterFor(category).Allow() {
		return
	}
	fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
}

var (
	warnMu       sync.Mutex
	warnLimiters = map[string]*rate.Limiter{}
)

func limiterFor(category string) *rate.Limiter {
	warnMu.Lock()
	defer warnMu.Unlock()
	lim, ok := warnLimiters[category]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Second), 5)
		warnLimiters[category] = lim
	}
	return lim
}
