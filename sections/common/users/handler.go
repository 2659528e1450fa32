package users

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"relate-backend/sections"
	"relate-backend/sections/common/auth"
	"relate-backend/sections/models"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
)

// Handler handles user-related requests
type Handler struct {
	logger     *slog.Logger
	deps       *sections.Dependencies
	service    *UserService
	jwtManager *auth.JWTManager
}

// NewHandler creates a new users handler
func NewHandler(deps *sections.Dependencies, jwtManager *auth.JWTManager) *Handler {
	return &Handler{
		logger:     slog.With("handler", "UsersHandler"),
		deps:       deps,
		service:    NewUserService(deps),
		jwtManager: jwtManager,
	}
}

// RegisterRequest represents a business registration request
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	CompanyName string `json:"companyName" binding:"required"`
	Tier        int    `json:"tier"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents an authentication response
type AuthResponse struct {
	Token  string         `json:"token"`
	User   UserResponse   `json:"user"`
	Tenant *models.Tenant `json:"tenant,omitempty"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID          uint       `json:"id"`
	Email       string     `json:"email"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// Register handles business registration: one user plus their tenant, which
// starts in pending_payment until the first invoice settles.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Check if user already exists
	var existingUser models.User
	if err := h.deps.DB.Shared().Where("email = ?", req.Email).First(&existingUser).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "user with this email already exists"})
		return
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("Failed to hash password", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	user, tenant, err := h.service.CreateUserWithTenant(c.Request.Context(), CreateUserWithTenantParams{
		User: models.User{
			Email:        req.Email,
			PasswordHash: string(hashedPassword),
			Active:       true,
		},
		CompanyName: req.CompanyName,
		Tier:        req.Tier,
	})
	if err != nil {
		h.logger.Error("Failed to create user with tenant", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	// Generate JWT token
	token, err := h.jwtManager.GenerateToken(user.ID, user.Email, tenant.SchemaName)
	if err != nil {
		h.logger.Error("Failed to generate token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	h.logger.Info("User registered", "userId", user.ID, "email", user.Email, "tenant", tenant.SchemaName)

	c.JSON(http.StatusCreated, AuthResponse{
		Token:  token,
		User:   h.toUserResponse(user),
		Tenant: tenant,
	})
}

// Login handles user login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Find user
	var user models.User
	if err := h.deps.DB.Shared().Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.logger.Error("Failed to find user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	// Check if user is active
	if !user.Active {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "account is disabled"})
		return
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	// Update last login time
	now := time.Now()
	h.deps.DB.Shared().Model(&user).Update("last_login_at", now)
	user.LastLoginAt = &now

	tenantSchema := ""
	var tenant *models.Tenant
	if t, err := h.service.TenantForUser(c.Request.Context(), user.ID); err == nil {
		tenantSchema = t.SchemaName
		tenant = t
	}

	// Generate JWT token
	token, err := h.jwtManager.GenerateToken(user.ID, user.Email, tenantSchema)
	if err != nil {
		h.logger.Error("Failed to generate token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	h.logger.Info("User logged in", "userId", user.ID, "email", user.Email)

	c.JSON(http.StatusOK, AuthResponse{
		Token:  token,
		User:   h.toUserResponse(&user),
		Tenant: tenant,
	})
}

func (h *Handler) toUserResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		LastLoginAt: user.LastLoginAt,
	}
}

// RegisterRoutes registers all user-related routes
func RegisterRoutes(r *gin.Engine, deps *sections.Dependencies, jwtManager *auth.JWTManager) {
	handler := NewHandler(deps, jwtManager)

	// Public routes (no auth required)
	public := r.Group("/api/v1/auth")
	{
		public.POST("/register", handler.Register)
		public.POST("/login", handler.Login)
	}
}
