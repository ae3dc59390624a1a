package handlers

import (
	"context"
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pocketbase/pocketbase/core"

	"servicequote/logging"
	"servicequote/services"
)

type contextKey string

// SessionKey stores the request's services.Session in its context.
const SessionKey contextKey = "session"

const sessionCookie = "quote_session"

// GetSession extracts the session from the request context.
func GetSession(r *http.Request) services.Session {
	if val, ok := r.Context().Value(SessionKey).(services.Session); ok {
		return val
	}
	return services.AnonymousSession()
}

// SessionMiddleware reads the session cookie and stores the restored session
// in the request context. A cookie that no longer resolves is cleared.
func SessionMiddleware(auth services.Authenticator) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		session := services.AnonymousSession()

		cookie, err := e.Request.Cookie(sessionCookie)
		if err == nil && cookie.Value != "" {
			session = auth.Restore(cookie.Value)
			if !session.SignedIn() {
				logging.Default().Info("middleware: stale session cookie, clearing")
				clearSessionCookie(e)
			}
		}

		ctx := context.WithValue(e.Request.Context(), SessionKey, session)
		e.Request = e.Request.WithContext(ctx)
		return e.Next()
	}
}

// RequireSession rejects anonymous requests: HTMX and API callers get 401,
// browsers are sent to the home page.
func RequireSession(e *core.RequestEvent) error {
	if GetSession(e.Request).SignedIn() {
		return e.Next()
	}
	if e.Request.Header.Get("HX-Request") == "true" || e.Request.Header.Get("Accept") == "application/json" {
		return e.String(http.StatusUnauthorized, "Sign in required")
	}
	return e.Redirect(http.StatusSeeOther, "/")
}

func setSessionCookie(e *core.RequestEvent, token string) {
	http.SetCookie(e.Response, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(e *core.RequestEvent) {
	http.SetCookie(e.Response, &http.Cookie{
		Name:   sessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

type credentialsForm struct {
	Email        string `json:"email" form:"email"`
	Password     string `json:"password" form:"password"`
	BusinessName string `json:"businessName" form:"businessName"`
}

// HandleDemoLogin switches the visitor to the demo account.
func HandleDemoLogin(d Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		return startSession(e, d, GetSession(e.Request).DemoLogin())
	}
}

// HandleSignIn checks credentials and starts an authenticated session.
func HandleSignIn(d Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var form credentialsForm
		if err := e.BindBody(&form); err != nil {
			return e.String(http.StatusBadRequest, "Invalid form data")
		}
		s, err := d.Auth.SignIn(e.Request.Context(), GetSession(e.Request),
			services.Credentials{Email: form.Email, Password: form.Password})
		if err != nil {
			return sessionError(e, err)
		}
		return startSession(e, d, s)
	}
}

// HandleSignUp registers a user with a new business and signs them in.
func HandleSignUp(d Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var form credentialsForm
		if err := e.BindBody(&form); err != nil {
			return e.String(http.StatusBadRequest, "Invalid form data")
		}
		s, err := d.Auth.SignUp(e.Request.Context(), GetSession(e.Request),
			services.Credentials{Email: form.Email, Password: form.Password}, form.BusinessName)
		if err != nil {
			return sessionError(e, err)
		}
		return startSession(e, d, s)
	}
}

// HandleSignOut ends the session.
func HandleSignOut() func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		clearSessionCookie(e)
		return e.Redirect(http.StatusSeeOther, "/")
	}
}

func startSession(e *core.RequestEvent, d Deps, s services.Session) error {
	token, err := d.Auth.Token(s)
	if err != nil {
		logging.Default().Error(err, "session: failed to issue token", "user", s.UserID)
		return e.String(http.StatusInternalServerError, "Failed to start session")
	}
	setSessionCookie(e, token)
	return e.Redirect(http.StatusSeeOther, "/dashboard")
}

func sessionError(e *core.RequestEvent, err error) error {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		return e.JSON(http.StatusBadRequest, verrs)
	case errors.Is(err, services.ErrInvalidCredentials):
		return e.String(http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrEmailTaken):
		return e.String(http.StatusConflict, err.Error())
	default:
		logging.Default().Error(err, "session: request failed")
		return e.String(http.StatusInternalServerError, "Session request failed")
	}
}
