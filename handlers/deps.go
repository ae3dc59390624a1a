package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"servicequote/logging"
	"servicequote/services"
)

// Deps are the collaborators shared by the quote handlers.
type Deps struct {
	App          *pocketbase.PocketBase
	Catalog      services.Catalog
	Numberer     services.QuoteNumberer
	Auth         services.Authenticator
	Mail         services.MailSettings
	ValidityDays int
	Now          func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// business loads the profile printed on a stored quote. A business missing
// from the catalog still renders, under the fallback name.
func (d Deps) business(e *core.RequestEvent, businessID string) services.BusinessProfile {
	biz, err := d.Catalog.Business(e.Request.Context(), businessID)
	if err != nil {
		logging.Default().Warn("handlers: business not in catalog", "business", businessID, "error", err.Error())
		return services.BusinessProfile{ID: businessID}
	}
	return biz
}

// errorStatus maps service errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrQuoteNotFound), errors.Is(err, services.ErrBusinessNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidStatusTransition):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidSelection), errors.Is(err, services.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrMailNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrQuoteNumbersExhausted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
