package inbound

import (
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/zapdesk/zapdesk/internal/users"
)

// Stage is a user's position in the onboarding sequence. It is derived
// from the stored record on every message; the process keeps no stage
// state of its own.
type Stage int

const (
	StageAwaitingConsent Stage = iota
	StageAwaitingEmail
	StageActive
)

func stageOf(user users.User) Stage {
	switch {
	case !user.ConsentAccepted:
		return StageAwaitingConsent
	case user.Email == "":
		return StageAwaitingEmail
	default:
		return StageActive
	}
}

// consentTokens are the accepted consent replies, matched case-insensitively.
var consentTokens = map[string]struct{}{
	"1":      {},
	"accept": {},
	"yes":    {},
	"sim":    {},
	"aceito": {},
}

func isConsentToken(text string) bool {
	_, ok := consentTokens[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

var validate = validator.New()

// isValidEmail applies the registration-level syntax check: structural
// validity plus a dotted domain.
func isValidEmail(text string) bool {
	email := strings.TrimSpace(text)
	if validate.Var(email, "required,email") != nil {
		return false
	}
	at := strings.LastIndex(email, "@")
	return strings.Contains(email[at+1:], ".")
}

// keyedMutex serializes message handling per sender so two near-simultaneous
// messages from one user cannot race an onboarding get-then-update. Entries
// are reference-counted and removed when idle, so the table does not grow
// with the user base.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*lockEntry)}
}

// lock acquires the mutex for key and returns its release function.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &lockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.Lock()

	return func() {
		entry.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
