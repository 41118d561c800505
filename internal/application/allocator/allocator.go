package allocator

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Builder-Lawyers/store-builder/internal/application/consts"
	"github.com/google/uuid"
)

const (
	maxBaseLength  = 20
	minBaseLength  = 3
	randomSuffix   = 6
	randomAttempts = 10
	alphabet       = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// Checker reports whether a subdomain is already used by a stored record.
type Checker interface {
	SubdomainExists(ctx context.Context, subdomain string) (bool, error)
}

type Allocator struct {
	checker Checker
	now     func() time.Time
	randInt func(n int) int
	newUUID func() uuid.UUID

	mu       sync.Mutex
	reserved map[string]struct{}
}

type Option func(*Allocator)

func WithClock(now func() time.Time) Option {
	return func(a *Allocator) { a.now = now }
}

// WithRand replaces the source used for random suffixes; fn returns a value in [0, n).
func WithRand(fn func(n int) int) Option {
	return func(a *Allocator) { a.randInt = fn }
}

func WithUUID(fn func() uuid.UUID) Option {
	return func(a *Allocator) { a.newUUID = fn }
}

func NewAllocator(checker Checker, opts ...Option) *Allocator {
	a := &Allocator{
		checker:  checker,
		now:      time.Now,
		randInt:  rand.IntN,
		newUUID:  uuid.New,
		reserved: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate never fails. Each candidate is checked against storage and against values
// already handed out by this allocator; the uuid candidate is returned unchecked.
func (a *Allocator) Allocate(ctx context.Context, baseName string) string {
	base := Normalize(baseName)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.tryReserve(ctx, base) {
		return base
	}

	millis := strconv.FormatInt(a.now().UnixMilli(), 10)
	if len(millis) > 6 {
		millis = millis[len(millis)-6:]
	}
	if candidate := base + "-" + millis; a.tryReserve(ctx, candidate) {
		return candidate
	}

	for i := 0; i < randomAttempts; i++ {
		if candidate := base + "-" + a.randomString(randomSuffix); a.tryReserve(ctx, candidate) {
			return candidate
		}
	}

	candidate := base + "-" + strings.ReplaceAll(a.newUUID().String(), "-", "")[:8]
	a.reserved[candidate] = struct{}{}
	slog.Warn("subdomain ladder exhausted, using uuid suffix", "base", base, "subdomain", candidate)
	return candidate
}

// Release forgets a value handed out earlier, e.g. after the insert using it failed.
func (a *Allocator) Release(subdomain string) {
	a.mu.Lock()
	delete(a.reserved, subdomain)
	a.mu.Unlock()
}

func (a *Allocator) tryReserve(ctx context.Context, candidate string) bool {
	if _, taken := a.reserved[candidate]; taken {
		return false
	}
	exists, err := a.checker.SubdomainExists(ctx, candidate)
	if err != nil {
		slog.Warn("subdomain check failed, treating as taken", "subdomain", candidate, "err", err)
		return false
	}
	if exists {
		return false
	}
	a.reserved[candidate] = struct{}{}
	return true
}

func (a *Allocator) randomString(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[a.randInt(len(alphabet))])
	}
	return b.String()
}

// Normalize lowercases name, collapses anything outside [a-z0-9] into single dashes and
// caps the length. Results shorter than 3 chars get the default prefix.
func Normalize(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.Trim(b.String(), "-")
	if len(out) > maxBaseLength {
		out = strings.TrimRight(out[:maxBaseLength], "-")
	}
	if len(out) < minBaseLength {
		out = consts.DefaultSubdomainPrefix + out
		out = strings.TrimRight(out, "-")
	}
	return out
}
