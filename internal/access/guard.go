package access

// Status is the tag of a guard Verdict.
type Status int

// Verdict states. Loading is not a denial: the identity has not been
// resolved yet and protected content must only be replaced by a placeholder.
const (
	StatusLoading Status = iota
	StatusAuthorized
	StatusDenied
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusAuthorized:
		return "authorized"
	case StatusDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// DenyReason explains a StatusDenied verdict.
type DenyReason int

// Deny reasons.
const (
	ReasonNone DenyReason = iota
	ReasonUnauthenticated
	ReasonForbidden
)

// Verdict is the outcome of a guard check.
type Verdict struct {
	status   Status
	reason   DenyReason
	identity *Identity
}

// Status returns the verdict tag.
func (v Verdict) Status() Status { return v.status }

// Reason returns why access was denied; ReasonNone unless Status is StatusDenied.
func (v Verdict) Reason() DenyReason { return v.reason }

// Identity returns the identity the verdict was computed for, if any.
func (v Verdict) Identity() *Identity { return v.identity }

// IsLoading reports whether the verdict is still pending.
func (v Verdict) IsLoading() bool { return v.status == StatusLoading }

// IsAuthorized reports whether access is granted. It is false while loading,
// which callers must not read as a denial.
func (v Verdict) IsAuthorized() bool { return v.status == StatusAuthorized }

// IdentityState is the input to the guards: either still pending or resolved
// to an identity (nil when there is no valid session).
type IdentityState struct {
	resolved bool
	identity *Identity
}

// Pending returns the state used while the identity is being resolved.
func Pending() IdentityState { return IdentityState{} }

// Resolved returns a settled state. A nil identity means unauthenticated.
func Resolved(identity *Identity) IdentityState {
	return IdentityState{resolved: true, identity: identity}
}

// IsPending reports whether resolution has not completed.
func (s IdentityState) IsPending() bool { return !s.resolved }

// Identity returns the resolved identity; nil while pending or unauthenticated.
func (s IdentityState) Identity() *Identity { return s.identity }

// RequireAuthentication grants access to any resolved identity.
func RequireAuthentication(state IdentityState) Verdict {
	return evaluate(state, func(*Identity) bool { return true })
}

// RequireRole grants access when the identity may act as any of roles.
func RequireRole(state IdentityState, roles ...Role) Verdict {
	return evaluate(state, func(id *Identity) bool {
		for _, role := range roles {
			if id.HasRole(role) {
				return true
			}
		}
		return false
	})
}

// RequirePermission grants access when the identity carries any of perms.
func RequirePermission(state IdentityState, perms ...string) Verdict {
	return evaluate(state, func(id *Identity) bool {
		for _, perm := range perms {
			if id.Can(perm) {
				return true
			}
		}
		return false
	})
}

func evaluate(state IdentityState, allowed func(*Identity) bool) Verdict {
	if state.IsPending() {
		return Verdict{status: StatusLoading}
	}
	if state.identity == nil {
		return Verdict{status: StatusDenied, reason: ReasonUnauthenticated}
	}
	if !allowed(state.identity) {
		return Verdict{status: StatusDenied, reason: ReasonForbidden, identity: state.identity}
	}
	return Verdict{status: StatusAuthorized, identity: state.identity}
}
