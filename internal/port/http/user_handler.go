package http

import (
	"net/http"

	"github.com/Shiyikai2002/student-trading-platform/internal/platform/logger"
	"github.com/Shiyikai2002/student-trading-platform/internal/service"
	"github.com/go-chi/chi/v5"
)

const avatarFormField = "image"

type UserHandler struct {
	users          service.UserService
	moderation     service.ModerationService
	log            logger.Logger
	maxUploadBytes int64
}

func NewUserHandler(users service.UserService, moderation service.ModerationService, log logger.Logger, maxUploadBytes int64) *UserHandler {
	return &UserHandler{
		users:          users,
		moderation:     moderation,
		log:            log.Named("user_handler"),
		maxUploadBytes: maxUploadBytes,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.users.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *UserHandler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	user, err := h.users.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type profileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Bio      string `json:"bio"`
}

func (h *UserHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.users.UpdateProfile(r.Context(), userID, service.ProfileInput{
		Username: req.Username,
		Email:    req.Email,
		Bio:      req.Bio,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type addressRequest struct {
	Address string `json:"address"`
}

func (h *UserHandler) HandleUpdateAddress(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req addressRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.users.UpdateAddress(r.Context(), userID, req.Address)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) HandleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if !parseMultipart(w, r, h.maxUploadBytes) {
		return
	}
	images, err := readImages(r.MultipartForm, avatarFormField)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if len(images) != 1 {
		badRequest(w, "exactly one image is required")
		return
	}
	user, err := h.users.UploadAvatar(r.Context(), userID, images[0])
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type userRatingsResponse struct {
	Summary interface{} `json:"summary"`
	Ratings interface{} `json:"ratings"`
}

func (h *UserHandler) HandleUserRatings(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	summary, err := h.moderation.UserRating(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	ratings, err := h.moderation.ListUserRatings(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, userRatingsResponse{Summary: summary, Ratings: ratings})
}

type ratingRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h *UserHandler) HandleRateUser(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req ratingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rating, err := h.moderation.RateUser(r.Context(), reviewerID, chi.URLParam(r, "id"), req.Rating, req.Comment)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, rating)
}
