package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/pocketbase/pocketbase/core"

	"servicequote/logging"
)

// SetToast asks the HTMX client to show a toast by merging a showToast event
// into HX-Trigger. A short-lived flash cookie carries the same toast across
// plain redirects, where HX-Trigger is lost.
func SetToast(e *core.RequestEvent, toastType, message string) {
	toast := map[string]string{"message": message, "type": toastType}

	trigger := map[string]any{}
	if existing := e.Response.Header().Get("HX-Trigger"); existing != "" {
		if err := json.Unmarshal([]byte(existing), &trigger); err != nil {
			logging.Default().Warn("toast: existing HX-Trigger is not JSON, overwriting", "error", err.Error())
			trigger = map[string]any{}
		}
	}
	trigger["showToast"] = toast

	data, err := json.Marshal(trigger)
	if err != nil {
		logging.Default().Error(err, "toast: failed to marshal HX-Trigger")
		return
	}
	e.Response.Header().Set("HX-Trigger", string(data))

	if flash, err := json.Marshal(toast); err == nil {
		http.SetCookie(e.Response, &http.Cookie{
			Name:     "flash_toast",
			Value:    url.QueryEscape(string(flash)),
			Path:     "/",
			MaxAge:   10,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// ErrorToast shows an error toast and tells HTMX not to swap the response body.
func ErrorToast(e *core.RequestEvent, statusCode int, message string) error {
	SetToast(e, "error", message)
	e.Response.Header().Set("HX-Reswap", "none")
	return e.String(statusCode, message)
}
