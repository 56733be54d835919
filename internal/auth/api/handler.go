package api

import (
	"encoding/json"
	"fmt"
	"ms-booking/internal/auth"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"
	"net/http"
)

type Handler struct {
	Service *auth.AuthService
	Logger  *logger.Logger
}

func NewHandler(service *auth.AuthService, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// Register creates an account and logs the new user straight in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.Service.Register(req.Email, req.Password)
	if err != nil {
		h.Logger.LogSecurity("REGISTER_FAILED", fmt.Sprintf("%s: %v", req.Email, err))
		utils.WriteError(w, "Could not register", err)
		return
	}

	session, err := h.Service.Login(user.Email, req.Password)
	if err != nil {
		utils.WriteError(w, "Registered but could not sign in", err)
		return
	}

	h.Logger.LogSecurity("REGISTERED", user.Email)
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Account created", session))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	session, err := h.Service.Login(req.Email, req.Password)
	if err != nil {
		h.Logger.LogSecurity("LOGIN_FAILED", fmt.Sprintf("%s: %v", req.Email, err))
		utils.WriteError(w, "Could not sign in", err)
		return
	}

	h.Logger.LogSecurity("LOGIN", fmt.Sprintf("%s as %s", session.Email, session.Role))
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Signed in", session))
}
