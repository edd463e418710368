package mockapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/segmentio/ksuid"
	"golang.org/x/crypto/bcrypt"

	"abisal/client/internal/token"
)

type fieldError struct {
	Path string `json:"path"`
	Msg  string `json:"msg"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login mirrors the development backend: a known email must present its
// password, an unknown email is enrolled on the fly. Emails containing
// "admin" get the admin role.
func (h *HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if fields := validateCredentials(req.Email, req.Password); len(fields) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"errors": fields})
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))

	h.mu.Lock()
	account, ok := h.users[email]
	if !ok {
		account = h.enrollLocked(email, email[:strings.Index(email+"@", "@")], req.Password)
	}
	h.mu.Unlock()

	if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	signed, err := h.issueToken(account)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": signed})
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *HandlerSet) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	fields := validateCredentials(req.Email, req.Password)
	if strings.TrimSpace(req.Username) == "" {
		fields = append(fields, fieldError{Path: "username", Msg: "username is required"})
	}
	if len(fields) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"errors": fields})
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))

	h.mu.Lock()
	if _, exists := h.users[email]; exists {
		h.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}
	account := h.enrollLocked(email, req.Username, req.Password)
	h.mu.Unlock()

	signed, err := h.issueToken(account)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "registration successful", "token": signed})
}

func (h *HandlerSet) GetUser(c *gin.Context) {
	id := c.Param("id")

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, account := range h.users {
		if account.ID == id {
			c.JSON(http.StatusOK, gin.H{"id": account.ID, "username": account.Username})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
}

// enrollLocked creates an account; h.mu must be held.
func (h *HandlerSet) enrollLocked(email, username, password string) *user {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.log.Error().Err(err).Msg("hash password")
	}

	role := token.RoleUser
	if strings.Contains(email, "admin") {
		role = token.RoleAdmin
	}

	account := &user{
		ID:           ksuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	h.users[email] = account
	return account
}

func (h *HandlerSet) issueToken(account *user) (string, error) {
	now := time.Now()
	claims := token.Claims{
		UserID: token.UserID(account.ID),
		Email:  account.Email,
		Role:   account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.cfg.TokenTTL)),
			Subject:   account.ID,
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.cfg.JWTSecret))
}

func validateCredentials(email, password string) []fieldError {
	var fields []fieldError
	if strings.TrimSpace(email) == "" {
		fields = append(fields, fieldError{Path: "email", Msg: "email is required"})
	} else if !strings.Contains(email, "@") {
		fields = append(fields, fieldError{Path: "email", Msg: "email must be valid"})
	}
	if password == "" {
		fields = append(fields, fieldError{Path: "password", Msg: "password is required"})
	} else if len(password) < 3 {
		fields = append(fields, fieldError{Path: "password", Msg: "password must be at least 3 characters"})
	}
	return fields
}
