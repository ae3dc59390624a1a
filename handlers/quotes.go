package handlers

import (
	"errors"
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pocketbase/pocketbase/core"

	"servicequote/logging"
	"servicequote/services"
	"servicequote/templates"
)

type quoteRequest struct {
	Services []services.SelectionRequest `json:"services"`
	Client   services.ClientInfo         `json:"client"`
}

type createQuoteResponse struct {
	Quote   services.Quote          `json:"quote"`
	Totals  services.PriceBreakdown `json:"totals"`
	PDFURL  string                  `json:"pdfUrl"`
	ViewURL string                  `json:"previewUrl"`
}

// resolve prices a request against the business catalog.
func (d Deps) resolve(e *core.RequestEvent, businessID string, req quoteRequest) (services.BusinessProfile, services.Selection, services.PriceBreakdown, error) {
	ctx := e.Request.Context()
	biz, err := d.Catalog.Business(ctx, businessID)
	if err != nil {
		return biz, nil, services.PriceBreakdown{}, err
	}
	list, err := d.Catalog.ActiveServices(ctx, businessID)
	if err != nil {
		return biz, nil, services.PriceBreakdown{}, err
	}
	sel, err := services.ResolveSelection(list, req.Services)
	if err != nil {
		return biz, nil, services.PriceBreakdown{}, err
	}
	if err := services.ValidateSelection(sel); err != nil {
		return biz, nil, services.PriceBreakdown{}, err
	}
	return biz, sel, services.ComputeTotals(sel, biz.TaxRate), nil
}

// HandlePreviewTotals prices a selection without storing anything.
func HandlePreviewTotals(d Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var req quoteRequest
		if err := e.BindBody(&req); err != nil {
			return e.String(http.StatusBadRequest, "Invalid request body")
		}
		_, _, totals, err := d.resolve(e, e.Request.PathValue("businessId"), req)
		if err != nil {
			return e.String(errorStatus(err), err.Error())
		}
		return e.JSON(http.StatusOK, totals)
	}
}

// HandleCreateQuote prices, numbers and stores a pending quote.
func HandleCreateQuote(d Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		log := logging.Default()
		businessID := e.Request.PathValue("businessId")

		var req quoteRequest
		if err := e.BindBody(&req); err != nil {
			return e.String(http.StatusBadRequest, "Invalid request body")
		}

		biz, sel, totals, err := d.resolve(e, businessID, req)
		if err != nil {
			return e.String(errorStatus(err), err.Error())
		}

		quote, err := services.NewQuote(biz, sel, totals, req.Client, "", d.now())
		if err != nil {
			var verrs validation.Errors
			if errors.As(err, &verrs) {
				return e.JSON(http.StatusBadRequest, map[string]any{"client": verrs})
			}
			return e.String(errorStatus(err), err.Error())
		}

		quote, err = services.IssueQuote(e.Request.Context(), d.App, d.Numberer, quote)
		if err != nil {
			log.Error(err, "quotes: failed to issue quote", "business", businessID)
			return e.String(errorStatus(err), "Failed to save quote")
		}

		log.Info("quotes: created", "quote", quote.ID, "number", quote.InvoiceNumber, "total", quote.Total)
		return e.JSON(http.StatusCreated, createQuoteResponse{
			Quote:   quote,
			Totals:  totals,
			PDFURL:  fmt.Sprintf("/quotes/%s/pdf", quote.ID),
			ViewURL: fmt.Sprintf("/quotes/%s/preview", quote.ID),
		})
	}
}

// renderStored loads and renders a stored quote.
func (d Deps) renderStored(e *core.RequestEvent) (services.Quote, *services.QuoteDocument, error) {
	id := e.Request.PathValue("id")
	quote, err := services.LoadQuote(d.App, id)
	if err != nil {
		return quote, nil, err
	}
	in := services.QuoteToInput(quote, d.business(e, quote.BusinessID))
	in.ValidityDays = d.ValidityDays
	doc, err := services.RenderQuote(in)
	if err != nil {
		return quote, nil, err
	}
	return quote, doc, nil
}

// HandleQuotePDF downloads a stored quote as a PDF.
func HandleQuotePDF(d Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if e.Request.PathValue("id") == "" {
			return e.String(http.StatusBadRequest, "Missing quote ID")
		}
		_, doc, err := d.renderStored(e)
		if err != nil {
			if errorStatus(err) == http.StatusNotFound {
				return e.String(http.StatusNotFound, "Quote not found")
			}
			logging.Default().Error(err, "quote_pdf: failed to generate PDF", "quote", e.Request.PathValue("id"))
			return e.String(http.StatusInternalServerError, "Failed to generate PDF")
		}

		e.Response.Header().Set("Content-Type", "application/pdf")
		e.Response.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, doc.Filename()))
		_, err = e.Response.Write(doc.Bytes())
		return err
	}
}

// HandleQuotePreview shows a stored quote as an inline PDF.
func HandleQuotePreview(d Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		quote, doc, err := d.renderStored(e)
		if err != nil {
			if errorStatus(err) == http.StatusNotFound {
				return e.String(http.StatusNotFound, "Quote not found")
			}
			logging.Default().Error(err, "quote_preview: failed to render", "quote", e.Request.PathValue("id"))
			return e.String(http.StatusInternalServerError, "Failed to render quote")
		}

		client := quote.Client.Name
		if client == "" {
			client = quote.Client.Email
		}
		page := templates.Page("Quote "+quote.InvoiceNumber, doc.Layout().BrandColor.Hex(), templates.QuotePreview(templates.PreviewData{
			ID:       quote.ID,
			Number:   quote.InvoiceNumber,
			Client:   client,
			Total:    services.FormatMoney(quote.Total),
			Paid:     quote.Status == services.QuoteStatusPaid,
			DataURI:  doc.DataURI(),
			Filename: doc.Filename(),
			CanEmail: d.Mail.Configured(),
		}))
		e.Response.Header().Set("Content-Type", "text/html; charset=utf-8")
		return page.Render(e.Request.Context(), e.Response)
	}
}

// authorizeQuote checks that the signed-in session owns the quote's business.
func authorizeQuote(e *core.RequestEvent, d Deps) (services.Quote, error) {
	quote, err := services.LoadQuote(d.App, e.Request.PathValue("id"))
	if err != nil {
		return quote, err
	}
	if GetSession(e.Request).BusinessID != quote.BusinessID {
		return quote, fmt.Errorf("%w: %s", services.ErrQuoteNotFound, quote.ID)
	}
	return quote, nil
}

// HandleMarkPaid moves a pending quote to paid. HTMX requests get the
// updated dashboard row back.
func HandleMarkPaid(d Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		quote, err := authorizeQuote(e, d)
		if err != nil {
			return e.String(errorStatus(err), "Quote not found")
		}

		changed, err := services.MarkQuotePaid(d.App, quote.ID, d.now())
		if err != nil {
			if errorStatus(err) == http.StatusConflict {
				return e.String(http.StatusConflict, err.Error())
			}
			logging.Default().Error(err, "quotes: failed to mark paid", "quote", quote.ID)
			return e.String(http.StatusInternalServerError, "Failed to update quote")
		}
		if changed {
			logging.Default().Info("quotes: marked paid", "quote", quote.ID)
		}
		quote.Status = services.QuoteStatusPaid

		if e.Request.Header.Get("HX-Request") == "true" {
			SetToast(e, "success", "Quote "+quote.InvoiceNumber+" marked as paid")
			return templates.QuoteRowFragment(quoteRow(quote)).Render(e.Request.Context(), e.Response)
		}
		return e.JSON(http.StatusOK, map[string]any{"id": quote.ID, "status": quote.Status, "changed": changed})
	}
}

// HandleEmailQuote mails the rendered PDF to the quote's client.
func HandleEmailQuote(d Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if !d.Mail.Configured() {
			return e.String(http.StatusServiceUnavailable, services.ErrMailNotConfigured.Error())
		}
		if _, err := authorizeQuote(e, d); err != nil {
			return e.String(errorStatus(err), "Quote not found")
		}

		quote, doc, err := d.renderStored(e)
		if err != nil {
			logging.Default().Error(err, "quote_mail: failed to render", "quote", e.Request.PathValue("id"))
			return e.String(errorStatus(err), "Failed to render quote")
		}
		biz := d.business(e, quote.BusinessID)
		mail, err := services.NewQuoteMail(d.Mail, biz, quote.Client, quote.InvoiceNumber, doc)
		if err != nil {
			return e.String(errorStatus(err), err.Error())
		}
		if err := mail.Send(); err != nil {
			logging.Default().Error(err, "quote_mail: send failed", "quote", quote.ID)
			SetToast(e, "error", "Failed to send quote")
			return e.String(http.StatusBadGateway, "Failed to send quote")
		}

		logging.Default().Info("quote_mail: sent", "quote", quote.ID, "to", quote.Client.Email)
		SetToast(e, "success", "Quote sent to "+quote.Client.Email)
		return e.NoContent(http.StatusNoContent)
	}
}
