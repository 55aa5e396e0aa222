package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/auth"
	"github.com/ukydev/fleet-maintenance/internal/db"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService    *auth.Service
	userCollection db.UserCollection
	log            *logrus.Entry
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, userCollection db.UserCollection, log *logrus.Entry) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		userCollection: userCollection,
		log:            log.WithField("component", "auth"),
	}
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var loginReq models.LoginRequest
	if err := decodeJSON(r, &loginReq); err != nil {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.userCollection.FindUserByUsername(r.Context(), loginReq.Username)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			h.log.WithError(err).Error("Failed to look up user")
		}
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if !user.IsActive {
		http.Error(w, "Account is deactivated", http.StatusUnauthorized)
		return
	}

	if !h.authService.CheckPassword(loginReq.Password, user.PasswordHash) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	h.respondWithTokens(w, user, http.StatusOK)

	if err := h.userCollection.UpdateLastLogin(r.Context(), user.ID.Hex()); err != nil {
		h.log.WithError(err).WithField("user_id", user.ID.Hex()).Warn("Failed to update last login")
	}
}

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, user *models.User, status int) {
	token, err := h.authService.GenerateToken(user)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	refreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		http.Error(w, "Failed to generate refresh token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, status, models.LoginResponse{
		Token:        token,
		RefreshToken: refreshToken,
		User:         *user,
	})
}

// Register adds a user to the caller's organization. Only managers and
// admins may register users, and never with a role above their own.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	if !actor.IsManager() {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	var registerReq models.RegisterRequest
	if err := decodeJSON(r, &registerReq); err != nil {
		writeError(w, h.log, err)
		return
	}
	if !models.IsValidRole(registerReq.Role) {
		http.Error(w, "Invalid role", http.StatusBadRequest)
		return
	}
	if !actor.Role.CanGrant(registerReq.Role) {
		http.Error(w, "Cannot grant a role above your own", http.StatusForbidden)
		return
	}

	user := &models.User{
		TenantID:  actor.TenantID,
		Username:  registerReq.Username,
		Email:     registerReq.Email,
		Role:      registerReq.Role,
		FirstName: registerReq.FirstName,
		LastName:  registerReq.LastName,
	}
	if !h.createUser(w, r, user, registerReq.Password) {
		return
	}

	h.log.WithFields(logrus.Fields{
		"user_id":    user.ID.Hex(),
		"tenant_id":  user.TenantID,
		"role":       user.Role,
		"created_by": actor.UserID,
	}).Info("User registered")

	writeJSON(w, http.StatusCreated, user)
}

// Signup opens a new organization whose first user is its administrator.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var signupReq models.SignupRequest
	if err := decodeJSON(r, &signupReq); err != nil {
		writeError(w, h.log, err)
		return
	}

	user := &models.User{
		TenantID:  uuid.New().String(),
		Username:  signupReq.Username,
		Email:     signupReq.Email,
		Role:      models.RoleAdmin,
		FirstName: signupReq.FirstName,
		LastName:  signupReq.LastName,
	}
	if !h.createUser(w, r, user, signupReq.Password) {
		return
	}

	h.log.WithFields(logrus.Fields{
		"user_id":   user.ID.Hex(),
		"tenant_id": user.TenantID,
	}).Info("Organization created")

	h.respondWithTokens(w, user, http.StatusCreated)
}

// createUser checks uniqueness, hashes the password and stores user. It
// writes the error response itself and reports whether the user was stored.
func (h *AuthHandler) createUser(w http.ResponseWriter, r *http.Request, user *models.User, password string) bool {
	if _, err := h.userCollection.FindUserByUsername(r.Context(), user.Username); err == nil {
		http.Error(w, "Username already exists", http.StatusConflict)
		return false
	}

	if _, err := h.userCollection.FindUserByEmail(r.Context(), user.Email); err == nil {
		http.Error(w, "Email already exists", http.StatusConflict)
		return false
	}

	passwordHash, err := h.authService.HashPassword(password)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return false
	}

	now := time.Now().UTC()
	user.ID = primitive.NewObjectID()
	user.PasswordHash = passwordHash
	user.IsActive = true
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := h.userCollection.InsertUser(r.Context(), user); err != nil {
		if errors.Is(err, db.ErrConflict) {
			http.Error(w, "Username or email already exists", http.StatusConflict)
			return false
		}
		h.log.WithError(err).Error("Failed to create user")
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return false
	}
	return true
}

// GetProfile returns the current user's profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, err := actorFrom(r)
	if err != nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type profileUpdate struct {
	FirstName string `json:"first_name" validate:"max=80"`
	LastName  string `json:"last_name" validate:"max=80"`
	Email     string `json:"email" validate:"omitempty,email"`
}

// UpdateProfile updates the current user's profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, err := actorFrom(r)
	if err != nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var updateReq profileUpdate
	if err := decodeJSON(r, &updateReq); err != nil {
		writeError(w, h.log, err)
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	if updateReq.FirstName != "" {
		user.FirstName = updateReq.FirstName
	}
	if updateReq.LastName != "" {
		user.LastName = updateReq.LastName
	}
	if updateReq.Email != "" {
		existingUser, err := h.userCollection.FindUserByEmail(r.Context(), updateReq.Email)
		if err == nil && existingUser.ID.Hex() != claims.UserID {
			http.Error(w, "Email already exists", http.StatusConflict)
			return
		}
		user.Email = updateReq.Email
	}

	if err := h.userCollection.UpdateUser(r.Context(), claims.UserID, *user); err != nil {
		h.log.WithError(err).Error("Failed to update user")
		http.Error(w, "Failed to update user", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Profile updated successfully"})
}

type passwordChange struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// ChangePassword changes the current user's password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, err := actorFrom(r)
	if err != nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var passwordReq passwordChange
	if err := decodeJSON(r, &passwordReq); err != nil {
		http.Error(w, "Current password and new password are required", http.StatusBadRequest)
		return
	}

	if err := h.authService.ValidatePassword(passwordReq.NewPassword); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	if !h.authService.CheckPassword(passwordReq.CurrentPassword, user.PasswordHash) {
		http.Error(w, "Current password is incorrect", http.StatusUnauthorized)
		return
	}

	newPasswordHash, err := h.authService.HashPassword(passwordReq.NewPassword)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	user.PasswordHash = newPasswordHash
	if err := h.userCollection.UpdateUser(r.Context(), claims.UserID, *user); err != nil {
		h.log.WithError(err).Error("Failed to update password")
		http.Error(w, "Failed to update password", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}
