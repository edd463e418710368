package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"

	"abisal/client/internal/api"
	"abisal/client/internal/mutate"
)

type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content,omitempty"`
	Image       string    `json:"image,omitempty"`
	Category    string    `json:"category,omitempty"`
	CreatorID   string    `json:"creator_id,omitempty"`
	Username    string    `json:"username,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Likes       int       `json:"likes"`
	Liked       bool      `json:"isLikedByCurrentUser"`
}

type ArticleInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Image       string `json:"image,omitempty"`
	Category    string `json:"category,omitempty"`
}

// Likes is the locally mutated like state of one article. The pair moves in
// lockstep: increment with liked=true, decrement with liked=false.
type Likes struct {
	Count int
	Liked bool
}

type ListMeta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

type ListResult struct {
	Articles []Article
	Meta     *ListMeta
}

// ArticlesService is the article REST surface. Like/unlike go through a
// per-article optimistic state so a second click while a request is in
// flight is a no-op.
type ArticlesService struct {
	client *api.Client
	log    zerolog.Logger

	mu    sync.Mutex
	likes map[string]*mutate.State[Likes]
}

func NewArticlesService(client *api.Client, log zerolog.Logger) *ArticlesService {
	return &ArticlesService{
		client: client,
		log:    log,
		likes:  map[string]*mutate.State[Likes]{},
	}
}

func (s *ArticlesService) List(ctx context.Context, category string) (ListResult, error) {
	path := "/article"
	if category != "" {
		path += "?category=" + category
	}

	// The backend has served both a bare array and a {data, meta} envelope.
	var raw json.RawMessage
	if err := s.client.Get(ctx, path, &raw); err != nil {
		return ListResult{}, err
	}

	var articles []Article
	if err := json.Unmarshal(raw, &articles); err == nil {
		return ListResult{Articles: articles}, nil
	}

	var envelope struct {
		Data []Article `json:"data"`
		Meta *ListMeta `json:"meta"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ListResult{}, &api.ServerError{Message: "unexpected response from server"}
	}
	return ListResult{Articles: envelope.Data, Meta: envelope.Meta}, nil
}

func (s *ArticlesService) Get(ctx context.Context, id string) (Article, error) {
	var article Article
	if err := s.client.Get(ctx, "/article/"+id, &article); err != nil {
		return Article{}, err
	}

	// Seed the local like state from the authoritative fetch unless a
	// mutation is mid-flight.
	s.likeState(id).Reset(Likes{Count: article.Likes, Liked: article.Liked})
	return article, nil
}

func (s *ArticlesService) Create(ctx context.Context, input ArticleInput) (Article, error) {
	var article Article
	if err := s.client.Post(ctx, "/article", input, &article); err != nil {
		return Article{}, err
	}
	return article, nil
}

func (s *ArticlesService) Update(ctx context.Context, id string, input ArticleInput) (Article, error) {
	var article Article
	if err := s.client.Put(ctx, "/article/"+id, input, &article); err != nil {
		return Article{}, err
	}
	return article, nil
}

func (s *ArticlesService) Delete(ctx context.Context, id string) error {
	return s.client.Delete(ctx, "/article/"+id, nil)
}

type likeResponse struct {
	Message string `json:"message"`
	Likes   *int   `json:"likes"`
}

// Like bumps the visible count by one before the request settles, and rolls
// back on failure.
func (s *ArticlesService) Like(ctx context.Context, id string) (Likes, error) {
	state := s.likeState(id)
	current := state.Value()
	proposed := Likes{Count: current.Count + 1, Liked: true}
	return s.applyLike(ctx, id, state, proposed, true)
}

// Unlike drops the visible count by one, clamped at zero: the optimistic
// count and the true server count can drift under concurrent edits, and a
// negative count must never be shown even transiently.
func (s *ArticlesService) Unlike(ctx context.Context, id string) (Likes, error) {
	state := s.likeState(id)
	current := state.Value()
	proposed := Likes{Count: clampNonNegative(current.Count - 1), Liked: false}
	return s.applyLike(ctx, id, state, proposed, false)
}

func (s *ArticlesService) LikeState(id string) Likes {
	return s.likeState(id).Value()
}

func (s *ArticlesService) applyLike(ctx context.Context, id string, state *mutate.State[Likes], proposed Likes, like bool) (Likes, error) {
	intent := ksuid.New().String()

	return state.Apply(ctx, proposed, func(ctx context.Context) (Likes, bool, error) {
		s.log.Debug().
			Str("article_id", id).
			Str("intent_id", intent).
			Bool("like", like).
			Msg("sending like mutation")

		var resp likeResponse
		var err error
		if like {
			err = s.client.Post(ctx, "/article/"+id+"/like", nil, &resp)
		} else {
			err = s.client.Delete(ctx, "/article/"+id+"/like", &resp)
		}
		if err != nil {
			return Likes{}, false, err
		}
		if resp.Likes != nil {
			return Likes{Count: clampNonNegative(*resp.Likes), Liked: like}, true, nil
		}
		return Likes{}, false, nil
	})
}

func (s *ArticlesService) likeState(id string) *mutate.State[Likes] {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.likes[id]
	if !ok {
		state = mutate.NewState(Likes{})
		s.likes[id] = state
	}
	return state
}

func clampNonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
