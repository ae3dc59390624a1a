package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"servicequote/logging"
)

// Quote statuses. A quote moves from pending to paid and never back.
const (
	QuoteStatusPending = "pending"
	QuoteStatusPaid    = "paid"
)

var (
	ErrQuoteNotFound           = errors.New("quote not found")
	ErrInvalidStatusTransition = errors.New("invalid quote status transition")
)

// AddOnSnapshot is an add-on as it was priced when the quote was created.
type AddOnSnapshot struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// QuoteItemSnapshot is a line item frozen at quote creation. Stored quotes
// are never recomputed from the live catalog.
type QuoteItemSnapshot struct {
	ServiceName  string          `json:"serviceName"`
	PricingModel PricingModel    `json:"pricingModel,omitempty"`
	Description  string          `json:"description,omitempty"`
	Quantity     float64         `json:"quantity,omitempty"`
	Unit         string          `json:"unit"`
	UnitPrice    float64         `json:"unitPrice"`
	PerUnit      bool            `json:"perUnit,omitempty"`
	LinePrice    float64         `json:"linePrice"`
	AddOns       []AddOnSnapshot `json:"addOns,omitempty"`
}

// Quote is a persisted, priced quote.
type Quote struct {
	ID            string              `json:"id"`
	InvoiceNumber string              `json:"invoiceNumber"`
	BusinessID    string              `json:"businessId"`
	Client        ClientInfo          `json:"client"`
	Items         []QuoteItemSnapshot `json:"items"`
	TaxRate       float64             `json:"taxRate"`
	Subtotal      float64             `json:"subtotal"`
	Tax           float64             `json:"tax"`
	Total         float64             `json:"total"`
	Status        string              `json:"status"`
	Created       time.Time           `json:"created"`
	PaidAt        time.Time           `json:"paidAt,omitzero"`
}

// ValidateClient checks the client details required to finalize a quote.
func ValidateClient(c ClientInfo) error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required, is.EmailFormat),
		validation.Field(&c.Name, validation.Length(0, 200)),
		validation.Field(&c.Phone, validation.Length(0, 50)),
	)
}

// NewQuote freezes a priced selection into a pending quote.
func NewQuote(business BusinessProfile, selection Selection, totals PriceBreakdown, client ClientInfo, number string, now time.Time) (Quote, error) {
	client.Name = strings.TrimSpace(client.Name)
	client.Email = strings.TrimSpace(client.Email)
	client.Phone = strings.TrimSpace(client.Phone)
	if err := ValidateClient(client); err != nil {
		return Quote{}, err
	}
	if len(selection) == 0 {
		return Quote{}, fmt.Errorf("%w: no services selected", ErrInvalidSelection)
	}

	items := make([]QuoteItemSnapshot, 0, len(selection))
	for _, s := range selection {
		item := QuoteItemSnapshot{
			ServiceName:  s.Service.Name,
			PricingModel: s.Service.PricingModel,
			Description:  s.Service.Description,
			Unit:         s.Service.Unit(),
			UnitPrice:    s.Service.BasePrice,
			PerUnit:      s.Service.RequiresQuantity(),
			LinePrice:    LinePrice(s),
		}
		if item.PerUnit {
			item.Quantity = sanitizeNonNegative(s.Quantity)
		}
		for _, a := range s.AddOns {
			item.AddOns = append(item.AddOns, AddOnSnapshot{Name: a.Name, Price: a.Price})
		}
		items = append(items, item)
	}

	return Quote{
		InvoiceNumber: number,
		BusinessID:    business.ID,
		Client:        client,
		Items:         items,
		TaxRate:       totals.TaxRate,
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		Total:         totals.Total,
		Status:        QuoteStatusPending,
		Created:       now,
	}, nil
}

// SaveQuote persists a new quote and returns its record.
func SaveQuote(app *pocketbase.PocketBase, q Quote) (*core.Record, error) {
	col, err := app.FindCollectionByNameOrId("quotes")
	if err != nil {
		return nil, fmt.Errorf("quotes collection not found: %w", err)
	}

	status := q.Status
	if status == "" {
		status = QuoteStatusPending
	}

	record := core.NewRecord(col)
	record.Set("business", q.BusinessID)
	record.Set("invoice_number", q.InvoiceNumber)
	record.Set("client_name", q.Client.Name)
	record.Set("client_email", q.Client.Email)
	record.Set("client_phone", q.Client.Phone)
	record.Set("items", q.Items)
	record.Set("tax_rate", q.TaxRate)
	record.Set("subtotal", q.Subtotal)
	record.Set("tax", q.Tax)
	record.Set("total", q.Total)
	record.Set("status", status)

	if err := app.Save(record); err != nil {
		return nil, fmt.Errorf("saving quote: %w", err)
	}
	return record, nil
}

// IssueQuote numbers q and stores it. A number already taken by a stored
// quote, such as one saved by another numbering strategy, costs one retry
// with a fresh number before the conflict is returned.
func IssueQuote(ctx context.Context, app *pocketbase.PocketBase, numberer QuoteNumberer, q Quote) (Quote, error) {
	for attempt := 0; ; attempt++ {
		number, err := numberer.Next(ctx, q.BusinessID, q.Created)
		if err != nil {
			return q, fmt.Errorf("numbering quote: %w", err)
		}
		q.InvoiceNumber = number

		record, err := SaveQuote(app, q)
		if err == nil {
			q.ID = record.Id
			if created := record.GetDateTime("created"); !created.IsZero() {
				q.Created = created.Time()
			}
			return q, nil
		}
		if attempt > 0 || !isUniqueViolation(err) {
			return q, err
		}
		logging.Default().Warn("quotes: number already taken, retrying", "business", q.BusinessID, "number", number)
	}
}

// isUniqueViolation reports whether a save failed on a unique index, either
// in record validation or in the database itself.
func isUniqueViolation(err error) bool {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for _, fieldErr := range verrs {
			var ve validation.Error
			if errors.As(fieldErr, &ve) && ve.Code() == "validation_not_unique" {
				return true
			}
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// LoadQuote reads a quote by record ID.
func LoadQuote(app *pocketbase.PocketBase, id string) (Quote, error) {
	record, err := app.FindRecordById("quotes", id)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: %s", ErrQuoteNotFound, id)
	}
	return quoteFromRecord(record)
}

func quoteFromRecord(record *core.Record) (Quote, error) {
	var items []QuoteItemSnapshot
	if err := record.UnmarshalJSONField("items", &items); err != nil {
		return Quote{}, fmt.Errorf("decoding items of quote %s: %w", record.Id, err)
	}
	return Quote{
		ID:            record.Id,
		InvoiceNumber: record.GetString("invoice_number"),
		BusinessID:    record.GetString("business"),
		Client: ClientInfo{
			Name:  record.GetString("client_name"),
			Email: record.GetString("client_email"),
			Phone: record.GetString("client_phone"),
		},
		Items:    items,
		TaxRate:  record.GetFloat("tax_rate"),
		Subtotal: record.GetFloat("subtotal"),
		Tax:      record.GetFloat("tax"),
		Total:    record.GetFloat("total"),
		Status:   record.GetString("status"),
		Created:  record.GetDateTime("created").Time(),
		PaidAt:   record.GetDateTime("paid_at").Time(),
	}, nil
}

// NextStatus validates a status change. Paid is terminal; marking a paid
// quote paid again is a no-op.
func NextStatus(current, target string) (string, error) {
	switch {
	case current == QuoteStatusPending && (target == QuoteStatusPending || target == QuoteStatusPaid):
		return target, nil
	case current == QuoteStatusPaid && target == QuoteStatusPaid:
		return current, nil
	default:
		return current, fmt.Errorf("%w: %q -> %q", ErrInvalidStatusTransition, current, target)
	}
}

// MarkQuotePaid moves a pending quote to paid. It reports whether the
// record changed.
func MarkQuotePaid(app *pocketbase.PocketBase, id string, now time.Time) (bool, error) {
	record, err := app.FindRecordById("quotes", id)
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrQuoteNotFound, id)
	}

	current := record.GetString("status")
	next, err := NextStatus(current, QuoteStatusPaid)
	if err != nil {
		return false, err
	}
	if next == current {
		return false, nil
	}

	record.Set("status", next)
	record.Set("paid_at", now.UTC())
	if err := app.Save(record); err != nil {
		return false, fmt.Errorf("saving quote status: %w", err)
	}
	return true, nil
}

// QuoteToInput rebuilds renderer input from the stored snapshot alone, so a
// stored quote always re-renders with the numbers it was issued with.
func QuoteToInput(q Quote, business BusinessProfile) QuoteInput {
	selection := make(Selection, 0, len(q.Items))
	for i, item := range q.Items {
		id := fmt.Sprintf("item-%d", i+1)
		unit := item.Unit
		if !item.PerUnit {
			unit = DefaultPriceUnit
		} else if unit == DefaultPriceUnit || unit == "" {
			unit = "unit"
		}
		svc := Service{
			ID:           id,
			BusinessID:   q.BusinessID,
			Name:         item.ServiceName,
			Description:  item.Description,
			BasePrice:    item.UnitPrice,
			PricingModel: PricingFlat,
			PriceUnit:    unit,
			Active:       true,
		}
		if !item.PerUnit {
			svc.BasePrice = item.LinePrice
		}
		if item.PricingModel == PricingRange {
			svc.PricingModel = PricingRange
		}
		sel := SelectedService{Service: svc, Quantity: item.Quantity}
		for j, a := range item.AddOns {
			sel.AddOns = append(sel.AddOns, AddOn{ID: fmt.Sprintf("%s-%d", id, j+1), ServiceID: id, Name: a.Name, Price: a.Price})
		}
		selection = append(selection, sel)
	}

	return QuoteInput{
		Business:  business,
		Selection: selection,
		Totals: PriceBreakdown{
			Subtotal: q.Subtotal,
			TaxRate:  q.TaxRate,
			Tax:      q.Tax,
			Total:    q.Total,
		},
		Client:      q.Client,
		GeneratedAt: q.Created,
		QuoteNumber: q.InvoiceNumber,
	}
}

// ListQuotes returns a business's quotes, newest first. An empty status
// returns every quote.
func ListQuotes(app *pocketbase.PocketBase, businessID, status string) ([]Quote, error) {
	filter := "business = {:businessId}"
	params := map[string]any{"businessId": businessID}
	if status != "" {
		filter += " && status = {:status}"
		params["status"] = status
	}

	records, err := app.FindRecordsByFilter("quotes", filter, "-created", 0, 0, params)
	if err != nil {
		return nil, fmt.Errorf("listing quotes: %w", err)
	}

	quotes := make([]Quote, 0, len(records))
	for _, rec := range records {
		q, err := quoteFromRecord(rec)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

// DashboardStats summarises quotes by status.
type DashboardStats struct {
	PendingCount int     `json:"pendingCount"`
	PendingTotal float64 `json:"pendingTotal"`
	PaidCount    int     `json:"paidCount"`
	PaidTotal    float64 `json:"paidTotal"`
}

// SummarizeQuotes computes dashboard stats from a list of quotes.
func SummarizeQuotes(quotes []Quote) DashboardStats {
	var s DashboardStats
	for _, q := range quotes {
		switch q.Status {
		case QuoteStatusPending:
			s.PendingCount++
			s.PendingTotal += q.Total
		case QuoteStatusPaid:
			s.PaidCount++
			s.PaidTotal += q.Total
		}
	}
	return s
}
