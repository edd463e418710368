package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"abisal/client/internal/token"
)

type fakeSession struct {
	loading bool
	authed  bool
	role    token.Role
}

func (f fakeSession) Loading() bool         { return f.loading }
func (f fakeSession) IsAuthenticated() bool { return f.authed }

func (f fakeSession) HasAnyRole(roles ...token.Role) bool {
	if !f.authed {
		return false
	}
	for _, role := range roles {
		if role == f.role {
			return true
		}
	}
	return false
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		sess     fakeSession
		required []token.Role
		want     Decision
	}{
		{
			name: "loading wins over everything",
			sess: fakeSession{loading: true},
			want: Loading,
		},
		{
			name:     "unauthenticated goes to login even when role required",
			sess:     fakeSession{},
			required: []token.Role{token.RoleAdmin},
			want:     RedirectLogin,
		},
		{
			name:     "authenticated with wrong role is forbidden",
			sess:     fakeSession{authed: true, role: token.RoleUser},
			required: []token.Role{token.RoleAdmin},
			want:     RedirectForbidden,
		},
		{
			name:     "authenticated with required role renders",
			sess:     fakeSession{authed: true, role: token.RoleAdmin},
			required: []token.Role{token.RoleAdmin},
			want:     Render,
		},
		{
			name: "no role requirement renders for any session",
			sess: fakeSession{authed: true, role: token.RoleUser},
			want: Render,
		},
		{
			name:     "any of several roles is enough",
			sess:     fakeSession{authed: true, role: token.RoleUser},
			required: []token.Role{token.RoleUser, token.RoleAdmin},
			want:     Render,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.sess, tt.required...))
		})
	}
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "render", Render.String())
	assert.Equal(t, "redirect_login", RedirectLogin.String())
	assert.Equal(t, "redirect_forbidden", RedirectForbidden.String())
	assert.Equal(t, "loading", Loading.String())
}
