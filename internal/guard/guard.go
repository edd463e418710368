package guard

import "abisal/client/internal/token"

// Decision is the outcome of one navigation attempt at a protected view.
// The caller performs the redirect or render; Evaluate only decides.
type Decision int

const (
	// Loading means the session store has not finished Init yet; render a
	// neutral waiting state.
	Loading Decision = iota
	RedirectLogin
	RedirectForbidden
	Render
)

func (d Decision) String() string {
	switch d {
	case Loading:
		return "loading"
	case RedirectLogin:
		return "redirect_login"
	case RedirectForbidden:
		return "redirect_forbidden"
	case Render:
		return "render"
	}
	return "unknown"
}

// Session is the read-only slice of the session store the guard consumes.
type Session interface {
	Loading() bool
	IsAuthenticated() bool
	HasAnyRole(roles ...token.Role) bool
}

// Evaluate gates a protected view. With no roles given, any authenticated
// session renders; otherwise the user must hold one of the listed roles.
// The original destination is not remembered across a login redirect.
func Evaluate(sess Session, required ...token.Role) Decision {
	switch {
	case sess.Loading():
		return Loading
	case !sess.IsAuthenticated():
		return RedirectLogin
	case len(required) > 0 && !sess.HasAnyRole(required...):
		return RedirectForbidden
	default:
		return Render
	}
}
