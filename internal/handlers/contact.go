package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shaibs3/geoadmin/internal/inbox"
	"github.com/shaibs3/geoadmin/internal/session"
	"github.com/shaibs3/geoadmin/internal/view"
	"go.uber.org/zap"
)

const MessageSentMessage = "Üzenetét elküldtük."

// ContactHandler serves the contact form and the message inbox
type ContactHandler struct {
	responder
	inbox *inbox.Service
}

func NewContactHandler(deps Deps, inboxService *inbox.Service) *ContactHandler {
	return &ContactHandler{responder: newResponder(deps), inbox: inboxService}
}

// RegisterRoutes registers the routes for this handler
func (h *ContactHandler) RegisterRoutes(router *mux.Router, logger *zap.Logger) {
	h.logger = logger.Named("handlers.contact")
	router.HandleFunc("/kapcsolat", h.contactForm).Methods(http.MethodGet)
	router.HandleFunc("/kapcsolat", h.submit).Methods(http.MethodPost)
	router.Handle("/uzenetek", h.Gate.RequireUser(http.HandlerFunc(h.messages))).Methods(http.MethodGet)
}

func (h *ContactHandler) contactForm(w http.ResponseWriter, r *http.Request) {
	var echo view.FormData
	if p := session.PrincipalFrom(r.Context()); !p.IsZero() {
		echo = view.FormData{Name: p.Name, Email: p.Email}
	}
	h.render(w, r, http.StatusOK, view.Contact, "Kapcsolat", echo)
}

func (h *ContactHandler) submit(w http.ResponseWriter, r *http.Request) {
	in := inbox.SubmitInput{
		Name:  r.PostFormValue("nev"),
		Email: r.PostFormValue("email"),
		Body:  r.PostFormValue("uzenet"),
	}

	_, err := h.inbox.Submit(r.Context(), in)
	var ferr *inbox.FieldError
	switch {
	case err == nil:
		h.success(w, r, MessageSentMessage, "/kapcsolat")
	case errors.As(err, &ferr):
		msg := RequiredFieldsMessage
		if ferr.Field == "email" && in.Email != "" {
			msg = InvalidEmailMessage
		}
		echo := view.FormData{Name: in.Name, Email: in.Email, Body: in.Body}
		h.render(w, r, http.StatusBadRequest, view.Contact, "Kapcsolat", echo, msg)
	default:
		h.serverError(w, r, err, "/kapcsolat")
	}
}

func (h *ContactHandler) messages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.inbox.Visible(r.Context(), session.PrincipalFrom(r.Context()))
	if err != nil {
		h.serverError(w, r, err, "/")
		return
	}
	h.render(w, r, http.StatusOK, view.Messages, "Üzenetek", view.MessagesData{Messages: msgs})
}
