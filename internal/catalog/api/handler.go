package api

import (
	"encoding/json"
	"fmt"
	"ms-booking/internal/catalog"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *catalog.CatalogService
	Logger  *logger.Logger
}

func NewHandler(service *catalog.CatalogService, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// ListMovies serves the browse page: every movie with remaining seats per
// showtime. Public, no auth required.
func (h *Handler) ListMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := h.Service.ListMovies()
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListMovies: %v", err))
		utils.WriteError(w, "Could not load movies", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Movies loaded", movies))
}

func (h *Handler) GetMovie(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "movieIdx"))
	if err != nil {
		http.Error(w, "movie index must be an integer", http.StatusBadRequest)
		return
	}

	movie, err := h.Service.GetMovie(idx)
	if err != nil {
		utils.WriteError(w, "Could not load movie", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Movie loaded", movie))
}

// ---------------- ADMIN ----------------

func (h *Handler) AddMovie(w http.ResponseWriter, r *http.Request) {
	var req models.MovieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}

	movie, err := h.Service.AddMovie(req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("AddMovie: %v", err))
		utils.WriteError(w, "Could not add movie", err)
		return
	}

	h.Logger.LogCatalog("ADDED", movie.Title, fmt.Sprintf("position %d", movie.Position))
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Movie added", movie))
}

func (h *Handler) EditMovie(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "movieIdx"))
	if err != nil {
		http.Error(w, "movie index must be an integer", http.StatusBadRequest)
		return
	}

	var req models.MovieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	movie, err := h.Service.EditMovie(idx, req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("EditMovie: %v", err))
		utils.WriteError(w, "Could not update movie", err)
		return
	}

	h.Logger.LogCatalog("UPDATED", movie.Title, fmt.Sprintf("position %d", movie.Position))
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Movie updated", movie))
}

// DeleteMovie removes a movie and renumbers every booking, watchlist entry
// and ledger row that pointed past it.
func (h *Handler) DeleteMovie(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "movieIdx"))
	if err != nil {
		http.Error(w, "movie index must be an integer", http.StatusBadRequest)
		return
	}

	if err := h.Service.DeleteMovie(idx); err != nil {
		h.Logger.Error("API", fmt.Sprintf("DeleteMovie: %v", err))
		utils.WriteError(w, "Could not delete movie", err)
		return
	}

	h.Logger.LogCatalog("DELETED", fmt.Sprintf("position %d", idx), "bookings, watchlists and ledger renumbered")
	utils.WriteJSON(w, http.StatusOK,
		utils.SuccessResponse("Movie deleted, bookings and watchlists renumbered", nil))
}
