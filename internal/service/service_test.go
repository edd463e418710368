package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abisal/client/internal/api"
	"abisal/client/internal/config"
	"abisal/client/internal/guard"
	"abisal/client/internal/mockapi"
	"abisal/client/internal/session"
	"abisal/client/internal/token"
)

const testSecret = "test-secret"

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	handlers := mockapi.NewHandlerSet(config.MockAPIConfig{
		JWTSecret: testSecret,
		TokenTTL:  time.Hour,
	}, zerolog.Nop())
	handlers.Register(engine.Group(""))

	ts := httptest.NewServer(engine)
	t.Cleanup(ts.Close)
	return ts
}

type stack struct {
	session  *session.Store
	auth     *AuthService
	articles *ArticlesService
	users    *UsersService
}

func newStack(t *testing.T, baseURL string) *stack {
	t.Helper()

	persist := session.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	sess := session.New(persist, zerolog.Nop())
	require.NoError(t, sess.Init(context.Background()))

	client := api.New(
		config.APIConfig{BaseURL: baseURL, Timeout: 2 * time.Second},
		config.RateLimitConfig{RPS: 1000, Burst: 1000},
		sess,
		zerolog.Nop(),
	)

	return &stack{
		session:  sess,
		auth:     NewAuthService(client, sess, zerolog.Nop()),
		articles: NewArticlesService(client, zerolog.Nop()),
		users:    NewUsersService(client),
	}
}

func TestLoginAssignsRoleByEmail(t *testing.T) {
	ts := newBackend(t)
	ctx := context.Background()

	t.Run("admin email", func(t *testing.T) {
		s := newStack(t, ts.URL)
		user, err := s.auth.Login(ctx, "admin@test.com", "password123")
		require.NoError(t, err)

		assert.Equal(t, token.RoleAdmin, user.Role)
		assert.True(t, s.session.IsAuthenticated())
		assert.Equal(t, guard.Render, guard.Evaluate(s.session, token.RoleAdmin))
	})

	t.Run("regular email", func(t *testing.T) {
		s := newStack(t, ts.URL)
		user, err := s.auth.Login(ctx, "user@test.com", "password123")
		require.NoError(t, err)

		assert.Equal(t, token.RoleUser, user.Role)
		assert.Equal(t, guard.RedirectForbidden, guard.Evaluate(s.session, token.RoleAdmin))
		assert.Equal(t, guard.Render, guard.Evaluate(s.session))
	})
}

func TestRegisterValidationErrors(t *testing.T) {
	ts := newBackend(t)
	s := newStack(t, ts.URL)

	_, err := s.auth.Register(context.Background(), "someone", "someone@test.com", "ab")

	var valErr *api.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Error(), "password")
	assert.False(t, s.session.IsAuthenticated())
}

func TestListAndGetArticles(t *testing.T) {
	ts := newBackend(t)
	s := newStack(t, ts.URL)
	ctx := context.Background()

	result, err := s.articles.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, result.Articles, 2)
	assert.Equal(t, 42, result.Articles[0].Likes)

	article, err := s.articles.Get(ctx, result.Articles[0].ID)
	require.NoError(t, err)
	assert.Equal(t, result.Articles[0].Title, article.Title)

	filtered, err := s.articles.List(ctx, "Ecosystems")
	require.NoError(t, err)
	require.Len(t, filtered.Articles, 1)
}

func TestLikeUnlikeRoundTrip(t *testing.T) {
	ts := newBackend(t)
	s := newStack(t, ts.URL)
	ctx := context.Background()

	_, err := s.auth.Login(ctx, "reader@test.com", "password123")
	require.NoError(t, err)

	result, err := s.articles.List(ctx, "")
	require.NoError(t, err)
	id := result.Articles[0].ID

	_, err = s.articles.Get(ctx, id)
	require.NoError(t, err)

	likes, err := s.articles.Like(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, Likes{Count: 43, Liked: true}, likes)

	likes, err = s.articles.Unlike(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, Likes{Count: 42, Liked: false}, likes)
}

func TestUnlikeNeverGoesNegative(t *testing.T) {
	ts := newBackend(t)
	s := newStack(t, ts.URL)
	ctx := context.Background()

	_, err := s.auth.Login(ctx, "author@test.com", "password123")
	require.NoError(t, err)

	created, err := s.articles.Create(ctx, ArticleInput{
		Title:       "Fresh article",
		Description: "No likes yet",
	})
	require.NoError(t, err)
	require.Equal(t, 0, created.Likes)

	_, err = s.articles.Get(ctx, created.ID)
	require.NoError(t, err)

	likes, err := s.articles.Unlike(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, likes.Count, "the count must never be shown negative")
	assert.False(t, likes.Liked)
}

func TestLikeRollsBackOnServerFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /article/a1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"a1","title":"t","likes":5,"isLikedByCurrentUser":false}`))
	})
	mux.HandleFunc("POST /article/a1/like", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"storage unavailable"}`))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	s := newStack(t, ts.URL)
	ctx := context.Background()

	_, err := s.articles.Get(ctx, "a1")
	require.NoError(t, err)

	likes, err := s.articles.Like(ctx, "a1")
	require.Error(t, err)
	assert.EqualError(t, err, "storage unavailable")
	assert.Equal(t, Likes{Count: 5, Liked: false}, likes, "failed like must fully revert")
	assert.Equal(t, Likes{Count: 5, Liked: false}, s.articles.LikeState("a1"))
}

func TestServerSideRevocationForcesLogout(t *testing.T) {
	ts := newBackend(t)
	s := newStack(t, ts.URL)
	ctx := context.Background()

	// A token signed with the wrong secret decodes fine locally but is
	// rejected by the server on first use.
	claims := token.Claims{
		UserID: "99",
		Email:  "ghost@test.com",
		Role:   token.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("wrong-secret"))
	require.NoError(t, err)

	require.NoError(t, s.session.Login(ctx, forged))
	require.True(t, s.session.IsAuthenticated())

	result, err := s.articles.List(ctx, "")
	require.NoError(t, err)

	_, err = s.articles.Like(ctx, result.Articles[0].ID)

	var authErr *api.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.False(t, s.session.IsAuthenticated(), "401 must force the session back to logged out")
	assert.Equal(t, guard.RedirectLogin, guard.Evaluate(s.session))
}

func TestForbiddenDeleteKeepsSession(t *testing.T) {
	ts := newBackend(t)
	s := newStack(t, ts.URL)
	ctx := context.Background()

	_, err := s.auth.Login(ctx, "user@test.com", "password123")
	require.NoError(t, err)

	result, err := s.articles.List(ctx, "")
	require.NoError(t, err)

	err = s.articles.Delete(ctx, result.Articles[0].ID)

	var srvErr *api.ServerError
	require.ErrorAs(t, err, &srvErr)
	assert.True(t, s.session.IsAuthenticated(), "a role rejection is not a credential rejection")
}

func TestAdminCanDelete(t *testing.T) {
	ts := newBackend(t)
	s := newStack(t, ts.URL)
	ctx := context.Background()

	_, err := s.auth.Login(ctx, "admin@test.com", "password123")
	require.NoError(t, err)

	result, err := s.articles.List(ctx, "")
	require.NoError(t, err)
	require.NoError(t, s.articles.Delete(ctx, result.Articles[0].ID))

	after, err := s.articles.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, after.Articles, 1)
}

func TestUsernameByID(t *testing.T) {
	ts := newBackend(t)
	s := newStack(t, ts.URL)
	ctx := context.Background()

	user, err := s.auth.Register(ctx, "deepdiver", "diver@test.com", "password123")
	require.NoError(t, err)

	name, err := s.users.UsernameByID(ctx, user.UserID)
	require.NoError(t, err)
	assert.Equal(t, "deepdiver", name)
}

func TestLogoutIsClientSideAndIdempotent(t *testing.T) {
	ts := newBackend(t)
	s := newStack(t, ts.URL)
	ctx := context.Background()

	_, err := s.auth.Login(ctx, "user@test.com", "password123")
	require.NoError(t, err)

	require.NoError(t, s.auth.Logout(ctx))
	assert.False(t, s.session.IsAuthenticated())
	require.NoError(t, s.auth.Logout(ctx))
}
