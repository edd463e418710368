// Package mockapi is an in-memory stand-in for the Abisal backend, used for
// development and integration tests. It issues real signed tokens and speaks
// the same error shapes as the production API, including field-level
// validation bodies.
package mockapi

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"

	"abisal/client/internal/config"
	"abisal/client/internal/token"
)

type user struct {
	ID           string
	Username     string
	Email        string
	PasswordHash []byte
	Role         token.Role
}

type article struct {
	ID          string
	Title       string
	Description string
	Content     string
	Image       string
	Category    string
	CreatorID   string
	Username    string
	CreatedAt   time.Time
	likedBy     map[string]bool
}

type HandlerSet struct {
	log zerolog.Logger
	cfg config.MockAPIConfig

	mu       sync.Mutex
	users    map[string]*user // keyed by email
	articles map[string]*article
	order    []string // article ids in insertion order
}

func NewHandlerSet(cfg config.MockAPIConfig, log zerolog.Logger) *HandlerSet {
	h := &HandlerSet{
		log:      log,
		cfg:      cfg,
		users:    map[string]*user{},
		articles: map[string]*article{},
	}
	h.seed()
	return h
}

func (h *HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	auth := router.Group("/auth")
	auth.POST("/login", h.Login)
	auth.POST("/register", h.RegisterUser)

	articles := router.Group("/article")
	articles.GET("", h.ListArticles)
	articles.GET("/:id", h.GetArticle)

	protected := router.Group("/article")
	protected.Use(h.RequireAuth())
	protected.POST("", h.CreateArticle)
	protected.PUT("/:id", h.UpdateArticle)
	protected.DELETE("/:id", h.requireAdmin, h.DeleteArticle)
	protected.POST("/:id/like", h.LikeArticle)
	protected.DELETE("/:id/like", h.UnlikeArticle)

	router.GET("/user/:id", h.GetUser)
}

func (h *HandlerSet) Health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}

func (h *HandlerSet) seed() {
	now := time.Now().UTC()

	first := &article{
		ID:          ksuid.New().String(),
		Title:       "New Bioluminescent Species Discovered",
		Description: "An international team records a bioluminescent cephalopod in the abyssal Pacific for the first time.",
		Category:    "Abyssal Fauna",
		Username:    "marine_explorer",
		CreatedAt:   now,
		likedBy:     map[string]bool{},
	}
	second := &article{
		ID:          ksuid.New().String(),
		Title:       "Ecosystems of the Mariana Trench",
		Description: "A study reveals the diversity of life under the most extreme conditions on the planet.",
		Category:    "Ecosystems",
		Username:    "ocean_researcher",
		CreatedAt:   now,
		likedBy:     map[string]bool{},
	}

	for i := 0; i < 42; i++ {
		first.likedBy[ksuid.New().String()] = true
	}
	for i := 0; i < 15; i++ {
		second.likedBy[ksuid.New().String()] = true
	}

	h.articles[first.ID] = first
	h.articles[second.ID] = second
	h.order = []string{first.ID, second.ID}
}
