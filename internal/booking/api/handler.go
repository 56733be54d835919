package api

import (
	"encoding/json"
	"fmt"
	"ms-booking/internal/auth"
	"ms-booking/internal/booking"
	"ms-booking/internal/catalog"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/tickets/qr"
	"ms-booking/internal/utils"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	BookingService *booking.BookingService
	CatalogService *catalog.CatalogService
	Tickets        *qr.TicketGenerator
	Logger         *logger.Logger
}

func NewHandler(bookingService *booking.BookingService, catalogService *catalog.CatalogService, tickets *qr.TicketGenerator, log *logger.Logger) *Handler {
	return &Handler{
		BookingService: bookingService,
		CatalogService: catalogService,
		Tickets:        tickets,
		Logger:         log,
	}
}

// CreateBooking records unconfirmed seats for the caller. Admins cannot
// book: seats are confirmed by admins, never held by them.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	email := auth.EmailFromContext(r.Context())
	if auth.RoleFromContext(r.Context()) == models.RoleAdmin {
		h.Logger.LogSecurity("BOOKING_DENIED", fmt.Sprintf("admin %s attempted to book seats", email))
		utils.WriteError(w, "Admins cannot book seats", models.ErrUnauthorized)
		return
	}

	var req models.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateBooking: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.BookingService.RecordBooking(email, req.MovieIdx, req.TimingIdx, req.Count)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateBooking: %v", err))
		utils.WriteError(w, "Could not record booking", err)
		return
	}

	h.Logger.LogBooking("RECORDED", email, fmt.Sprintf("movie=%d timing=%d count=%d", req.MovieIdx, req.TimingIdx, result.Count))
	utils.WriteJSON(w, http.StatusCreated,
		utils.SuccessResponse("Booking recorded as due; admin must confirm payment to finalize your seats", result))
}

// MyBookings returns the caller's bookings, newest first.
func (h *Handler) MyBookings(w http.ResponseWriter, r *http.Request) {
	email := auth.EmailFromContext(r.Context())

	bookings, err := h.BookingService.BookingsForUser(email)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("MyBookings: %v", err))
		utils.WriteError(w, "Could not load bookings", err)
		return
	}

	sort.SliceStable(bookings, func(i, j int) bool {
		return bookings[i].BookedAt.After(bookings[j].BookedAt)
	})
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Bookings loaded", bookings))
}

// GetTicket renders the pickup QR for a paid booking. Due bookings have no
// ticket to pick up.
func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	email := auth.EmailFromContext(r.Context())

	movieIdx, err := strconv.Atoi(r.URL.Query().Get("movie"))
	if err != nil {
		http.Error(w, "movie query parameter must be an integer", http.StatusBadRequest)
		return
	}
	timingIdx, err := strconv.Atoi(r.URL.Query().Get("timing"))
	if err != nil {
		http.Error(w, "timing query parameter must be an integer", http.StatusBadRequest)
		return
	}

	bookings, err := h.BookingService.BookingsForUser(email)
	if err != nil {
		utils.WriteError(w, "Could not load bookings", err)
		return
	}

	var target *models.Booking
	for i := range bookings {
		if bookings[i].MovieIdx == movieIdx && bookings[i].TimingIdx == timingIdx {
			target = &bookings[i]
			break
		}
	}
	if target == nil || !target.Paid {
		utils.WriteError(w, "No confirmed booking for this showtime", models.ErrNotFound)
		return
	}

	movie, err := h.CatalogService.GetMovie(movieIdx)
	if err != nil {
		utils.WriteError(w, "Could not load movie", err)
		return
	}
	showtime := ""
	if timingIdx >= 0 && timingIdx < len(movie.Movie.Timings) {
		showtime = movie.Movie.Timings[timingIdx]
	}

	png, err := h.Tickets.GenerateEncryptedQR(qr.TicketClaim{
		UserEmail: email,
		Movie:     movie.Movie.Title,
		Showtime:  showtime,
		Count:     target.Count,
		BookedAt:  target.BookedAt,
		IssuedAt:  time.Now(),
	})
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetTicket: QR generation failed: %v", err))
		http.Error(w, "Could not generate ticket", http.StatusInternalServerError)
		return
	}

	h.Logger.LogBooking("TICKET", email, fmt.Sprintf("issued pickup QR for movie=%d timing=%d", movieIdx, timingIdx))
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// Watchlist returns the caller's watchlist as movie indices.
func (h *Handler) Watchlist(w http.ResponseWriter, r *http.Request) {
	email := auth.EmailFromContext(r.Context())
	if auth.RoleFromContext(r.Context()) == models.RoleAdmin {
		utils.WriteError(w, "Admins do not have a watchlist", models.ErrUnauthorized)
		return
	}

	indices, err := h.BookingService.Watchlist(email)
	if err != nil {
		utils.WriteError(w, "Could not load watchlist", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Watchlist loaded", indices))
}

// ToggleWatchlist adds or removes one movie from the caller's watchlist.
func (h *Handler) ToggleWatchlist(w http.ResponseWriter, r *http.Request) {
	email := auth.EmailFromContext(r.Context())
	if auth.RoleFromContext(r.Context()) == models.RoleAdmin {
		utils.WriteError(w, "Admins do not have a watchlist", models.ErrUnauthorized)
		return
	}

	var req struct {
		MovieIdx int `json:"movie_idx"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	added, err := h.BookingService.ToggleWatchlist(email, req.MovieIdx)
	if err != nil {
		utils.WriteError(w, "Could not update watchlist", err)
		return
	}

	message := "Movie removed from watchlist"
	if added {
		message = "Movie added to watchlist"
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(message, map[string]bool{"on_watchlist": added}))
}

// ---------------- ADMIN ----------------

// AllBookings returns every booking grouped into dashboard rows, newest
// first, each carrying the positional index the toggle endpoint addresses.
func (h *Handler) AllBookings(w http.ResponseWriter, r *http.Request) {
	grouped, err := h.BookingService.AllBookings()
	if err != nil {
		utils.WriteError(w, "Could not load bookings", err)
		return
	}

	var rows []models.BookingWithOwner
	for email, list := range grouped {
		for i, b := range list {
			rows = append(rows, models.BookingWithOwner{UserEmail: email, EntryIdx: i, Booking: b})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Booking.BookedAt.After(rows[j].Booking.BookedAt)
	})

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Bookings loaded", rows))
}

// TogglePaid flips one booking between paid and due, then rebuilds the
// seat ledger before responding.
func (h *Handler) TogglePaid(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	entryIdx, err := strconv.Atoi(chi.URLParam(r, "entryIdx"))
	if err != nil {
		http.Error(w, "entry index must be an integer", http.StatusBadRequest)
		return
	}

	result, err := h.BookingService.TogglePaid(email, entryIdx)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("TogglePaid: %v", err))
		utils.WriteError(w, "Could not toggle booking", err)
		return
	}

	status := "due"
	if result.Paid {
		status = "paid"
	}
	h.Logger.LogBooking("TOGGLED", email, fmt.Sprintf("entry=%d now %s, seats recalculated", entryIdx, status))
	utils.WriteJSON(w, http.StatusOK,
		utils.SuccessResponse(fmt.Sprintf("Booking for %s marked as %s, seat counts recalculated", email, status), result))
}

// FixData merges duplicate booking entries and recomputes seat
// availability from paid bookings.
func (h *Handler) FixData(w http.ResponseWriter, r *http.Request) {
	if err := h.BookingService.FixData(); err != nil {
		h.Logger.Error("API", fmt.Sprintf("FixData: %v", err))
		utils.WriteError(w, "Could not fix data", err)
		return
	}

	h.Logger.LogReconcile("bookings normalized and seat availability recomputed")
	utils.WriteJSON(w, http.StatusOK,
		utils.SuccessResponse("Bookings normalized and seat availability recomputed", nil))
}

// Stats serves the admin dashboard summary.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.BookingService.Stats(8)
	if err != nil {
		utils.WriteError(w, "Could not load stats", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Stats loaded", stats))
}
