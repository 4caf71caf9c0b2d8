package service

import (
	"sync"
	"time"
)

// loginLimiter tracks failed login attempts per email in a sliding window.
// Once the attempt budget is spent, further logins for that email are
// rejected until the window passes.
type loginLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

func newLoginLimiter(limit int, window time.Duration) *loginLimiter {
	return &loginLimiter{
		attempts: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// allow reports whether another login attempt is permitted for the email.
func (l *loginLimiter) allow(email string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prune(email)) < l.limit
}

// fail records a failed attempt.
func (l *loginLimiter) fail(email string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts[email] = append(l.prune(email), l.now())
}

// reset clears recorded failures after a successful login.
func (l *loginLimiter) reset(email string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, email)
}

// prune drops attempts older than the window. Caller must hold mu.
func (l *loginLimiter) prune(email string) []time.Time {
	cutoff := l.now().Add(-l.window)
	kept := l.attempts[email][:0]
	for _, t := range l.attempts[email] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.attempts, email)
		return nil
	}
	l.attempts[email] = kept
	return kept
}
