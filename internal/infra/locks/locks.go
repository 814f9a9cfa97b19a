// Package locks provides the keyed TTL lock service guarding envelope send
// operations and provider throttling state. It is a plain key/value facility
// with set-if-absent, expiry and delete-by-key semantics; callers own the
// key naming.
package locks

import (
	"context"
	"fmt"
	"time"

	"signtrack/internal/domain"
)

// ThrottleResetKey guards the provider rate-limit reset window.
const ThrottleResetKey = "docusign_rate_reset"

// EnvelopeSendKey names the lock held while an envelope is being sent for
// the given owning record.
func EnvelopeSendKey(owner domain.OwnerRef) string {
	return fmt.Sprintf("send_for_docusign:%s:%d", owner.Kind, owner.ID)
}

// Service is a keyed lock with TTL. Acquire returns false when the key is
// already held; Release reports whether a key was actually removed.
type Service interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) (bool, error)
}
