/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/friendsincode/studyflow/internal/auth"
	"github.com/friendsincode/studyflow/internal/models"
)

const tokenTTL = 24 * time.Hour

// handleAuthLogin exchanges email and password for a JWT. Student
// accounts carry their student ID in the token so handlers can scope
// access without an extra lookup.
func (a *API) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	var user models.User
	err := a.db.WithContext(r.Context()).Where("email = ?", req.Email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	claims := auth.Claims{
		UserID: user.ID,
		Roles:  []string{string(user.Role)},
	}
	if user.Role == models.RoleStudent {
		var student models.Student
		if err := a.db.WithContext(r.Context()).Where("user_id = ?", user.ID).First(&student).Error; err == nil {
			claims.StudentID = student.ID
		}
	}

	token, err := auth.Issue(a.jwtSecret, claims, tokenTTL)
	if err != nil {
		a.logger.Error().Err(err).Msg("issue token")
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": time.Now().Add(tokenTTL).UTC().Format(time.RFC3339),
		"role":       user.Role,
	})
}
