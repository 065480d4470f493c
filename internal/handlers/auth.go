package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shaibs3/geoadmin/internal/auth"
	"github.com/shaibs3/geoadmin/internal/view"
	"go.uber.org/zap"
)

// Notes shown by the account pages
const (
	PasswordMismatchMessage   = "A két jelszó nem egyezik."
	EmailTakenMessage         = "Ezzel az e-mail címmel már regisztráltak."
	RequiredFieldsMessage     = "Minden mező kitöltése kötelező."
	InvalidEmailMessage       = "Érvénytelen e-mail cím."
	PasswordTooLongMessage    = "A jelszó túl hosszú."
	RegisteredMessage         = "Sikeres regisztráció, most már bejelentkezhet."
	InvalidCredentialsMessage = "Hibás e-mail cím vagy jelszó."
	LoggedInMessage           = "Sikeres bejelentkezés."
	LoggedOutMessage          = "Sikeres kijelentkezés."
)

// AuthHandler serves registration, login and logout
type AuthHandler struct {
	responder
	auth *auth.Service
}

func NewAuthHandler(deps Deps, authService *auth.Service) *AuthHandler {
	return &AuthHandler{responder: newResponder(deps), auth: authService}
}

// RegisterRoutes registers the routes for this handler
func (h *AuthHandler) RegisterRoutes(router *mux.Router, logger *zap.Logger) {
	h.logger = logger.Named("handlers.auth")
	router.HandleFunc("/regisztracio", h.registerForm).Methods(http.MethodGet)
	router.HandleFunc("/regisztracio", h.register).Methods(http.MethodPost)
	router.HandleFunc("/bejelentkezes", h.loginForm).Methods(http.MethodGet)
	router.HandleFunc("/bejelentkezes", h.login).Methods(http.MethodPost)
	router.HandleFunc("/kijelentkezes", h.logout).Methods(http.MethodGet)
}

func (h *AuthHandler) registerForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.Register, "Regisztráció", view.FormData{})
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	in := auth.RegisterInput{
		Name:     r.PostFormValue("nev"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("jelszo"),
		Confirm:  r.PostFormValue("jelszo_megerosit"),
	}
	echo := view.FormData{Name: in.Name, Email: in.Email}

	_, err := h.auth.Register(r.Context(), in)
	var verr *auth.ValidationError
	switch {
	case err == nil:
		h.success(w, r, RegisteredMessage, "/bejelentkezes")
	case errors.Is(err, auth.ErrPasswordMismatch):
		h.render(w, r, http.StatusBadRequest, view.Register, "Regisztráció", echo, PasswordMismatchMessage)
	case errors.Is(err, auth.ErrEmailTaken):
		h.render(w, r, http.StatusConflict, view.Register, "Regisztráció", echo, EmailTakenMessage)
	case errors.As(err, &verr):
		msg := RequiredFieldsMessage
		switch {
		case verr.Field == "email" && in.Email != "":
			msg = InvalidEmailMessage
		case verr.Field == "jelszo" && in.Password != "":
			msg = PasswordTooLongMessage
		}
		h.render(w, r, http.StatusBadRequest, view.Register, "Regisztráció", echo, msg)
	default:
		h.serverError(w, r, err, "/regisztracio")
	}
}

func (h *AuthHandler) loginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.Login, "Bejelentkezés", view.FormData{})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	p, err := h.auth.Authenticate(r.Context(), email, r.PostFormValue("jelszo"))
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.render(w, r, http.StatusUnauthorized, view.Login, "Bejelentkezés", view.FormData{Email: email}, InvalidCredentialsMessage)
		return
	case err != nil:
		h.serverError(w, r, err, "/bejelentkezes")
		return
	}

	if err := h.Sessions.Login(w, r, p); err != nil {
		h.serverError(w, r, err, "/bejelentkezes")
		return
	}
	h.logger.Info("user logged in", zap.Int64("user_id", p.ID))
	h.success(w, r, LoggedInMessage, "/")
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Logout(w, r); err != nil {
		h.serverError(w, r, err, "/")
		return
	}
	h.success(w, r, LoggedOutMessage, "/")
}
