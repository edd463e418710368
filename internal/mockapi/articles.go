package mockapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/ksuid"

	"abisal/client/internal/token"
)

type articleResponse struct {
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

func (h *HandlerSet) ListArticles(c *gin.Context) {
	viewer := h.optionalUserID(c)
	category := c.Query("category")

	h.mu.Lock()
	defer h.mu.Unlock()

	resp := make([]articleResponse, 0, len(h.order))
	for _, id := range h.order {
		a := h.articles[id]
		if category != "" && !strings.EqualFold(a.Category, category) {
			continue
		}
		resp = append(resp, h.renderLocked(a, viewer))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HandlerSet) GetArticle(c *gin.Context) {
	viewer := h.optionalUserID(c)

	h.mu.Lock()
	defer h.mu.Unlock()

	a, ok := h.articles[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		return
	}
	c.JSON(http.StatusOK, h.renderLocked(a, viewer))
}

type articleInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Image       string `json:"image"`
	Category    string `json:"category"`
}

func (h *HandlerSet) CreateArticle(c *gin.Context) {
	claims := currentClaims(c)

	var req articleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var fields []fieldError
	if strings.TrimSpace(req.Title) == "" {
		fields = append(fields, fieldError{Path: "title", Msg: "title is required"})
	}
	if strings.TrimSpace(req.Description) == "" {
		fields = append(fields, fieldError{Path: "description", Msg: "description is required"})
	}
	if len(fields) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"errors": fields})
		return
	}

	h.mu.Lock()
	a := &article{
		ID:          ksuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		Image:       req.Image,
		Category:    req.Category,
		CreatorID:   string(claims.UserID),
		Username:    h.usernameLocked(string(claims.UserID)),
		CreatedAt:   time.Now().UTC(),
		likedBy:     map[string]bool{},
	}
	h.articles[a.ID] = a
	h.order = append(h.order, a.ID)
	resp := h.renderLocked(a, string(claims.UserID))
	h.mu.Unlock()

	c.JSON(http.StatusCreated, resp)
}

func (h *HandlerSet) UpdateArticle(c *gin.Context) {
	claims := currentClaims(c)

	var req articleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	a, ok := h.articles[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		return
	}

	// Authors edit their own articles; admins edit anything.
	if a.CreatorID != string(claims.UserID) && claims.Role != token.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	if req.Title != "" {
		a.Title = req.Title
	}
	if req.Description != "" {
		a.Description = req.Description
	}
	if req.Content != "" {
		a.Content = req.Content
	}
	if req.Image != "" {
		a.Image = req.Image
	}
	if req.Category != "" {
		a.Category = req.Category
	}

	c.JSON(http.StatusOK, h.renderLocked(a, string(claims.UserID)))
}

func (h *HandlerSet) DeleteArticle(c *gin.Context) {
	id := c.Param("id")

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.articles[id]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		return
	}

	delete(h.articles, id)
	for i, ordered := range h.order {
		if ordered == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "article deleted"})
}

func (h *HandlerSet) LikeArticle(c *gin.Context) {
	h.setLike(c, true)
}

func (h *HandlerSet) UnlikeArticle(c *gin.Context) {
	h.setLike(c, false)
}

func (h *HandlerSet) setLike(c *gin.Context, liked bool) {
	claims := currentClaims(c)

	h.mu.Lock()
	defer h.mu.Unlock()

	a, ok := h.articles[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		return
	}

	if liked {
		a.likedBy[string(claims.UserID)] = true
	} else {
		delete(a.likedBy, string(claims.UserID))
	}

	c.JSON(http.StatusOK, gin.H{"message": "ok", "likes": len(a.likedBy)})
}

// renderLocked builds the wire view of an article; h.mu must be held.
func (h *HandlerSet) renderLocked(a *article, viewer string) articleResponse {
	return articleResponse{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		Content:     a.Content,
		Image:       a.Image,
		Category:    a.Category,
		CreatorID:   a.CreatorID,
		Username:    a.Username,
		CreatedAt:   a.CreatedAt,
		Likes:       len(a.likedBy),
		Liked:       viewer != "" && a.likedBy[viewer],
	}
}

func (h *HandlerSet) usernameLocked(userID string) string {
	for _, account := range h.users {
		if account.ID == userID {
			return account.Username
		}
	}
	return ""
}
