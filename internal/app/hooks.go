package app

import (
	"github.com/tickethub/tickethub-web/internal/access"
)

// Dropper forgets the state kept under a key.
type Dropper interface {
	Drop(key string)
}

// StoreReaper releases per-session stores when a session ends. Stores keyed
// by session id are dropped for the ended id; stores keyed by user are
// dropped for the identity that was signed in, if any.
type StoreReaper struct {
	BySession []Dropper
	ByUser    []Dropper
}

// SessionEnded implements auth.SessionHook.
func (s StoreReaper) SessionEnded(sessionID string, identity *access.Identity) {
	for _, d := range s.BySession {
		d.Drop(sessionID)
	}
	if identity == nil {
		return
	}
	for _, d := range s.ByUser {
		d.Drop(identity.UserID)
	}
}
