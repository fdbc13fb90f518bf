package http

import (
	"net/http"

	"github.com/Shiyikai2002/student-trading-platform/internal/platform/logger"
	"github.com/Shiyikai2002/student-trading-platform/internal/service"
	"github.com/go-chi/chi/v5"
)

type MessageHandler struct {
	messaging service.MessagingService
	log       logger.Logger
}

func NewMessageHandler(messaging service.MessagingService, log logger.Logger) *MessageHandler {
	return &MessageHandler{messaging: messaging, log: log.Named("message_handler")}
}

type sendMessageRequest struct {
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}

func (h *MessageHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req sendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	msg, err := h.messaging.Send(r.Context(), userID, req.ReceiverID, req.Content)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandler) HandlePartners(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	partners, err := h.messaging.ConversationPartners(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, partners)
}

func (h *MessageHandler) HandleThread(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	msgs, err := h.messaging.Thread(r.Context(), userID, chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *MessageHandler) HandleUnread(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	count, err := h.messaging.UnreadCount(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"unread": count})
}
