package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"servicequote/services"
	"servicequote/testhelpers"
)

var handlerTestTime = time.Date(2026, time.March, 5, 14, 30, 0, 0, time.UTC)

// newTestRequestEvent creates a RequestEvent suitable for handler tests.
func newTestRequestEvent(app *pocketbase.PocketBase, req *http.Request, rec *httptest.ResponseRecorder) *core.RequestEvent {
	e := &core.RequestEvent{}
	e.App = app
	e.Request = req
	e.Response = rec
	return e
}

// newTestDeps wires handlers to a temp app and the demo catalog.
func newTestDeps(t *testing.T) Deps {
	t.Helper()
	app := testhelpers.NewTestApp(t)
	return Deps{
		App:      app,
		Catalog:  services.DemoCatalog{},
		Numberer: services.SequenceQuoteNumberer{App: app},
		Auth:     services.Authenticator{App: app},
		Now:      func() time.Time { return handlerTestTime },
	}
}

func withSession(req *http.Request, s services.Session) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), SessionKey, s))
}

func demoSession() services.Session {
	return services.AnonymousSession().DemoLogin()
}

// createDemoQuote stores a pending quote for the demo business.
func createDemoQuote(t *testing.T, d Deps, client services.ClientInfo) services.Quote {
	t.Helper()
	ctx := context.Background()
	biz, _ := d.Catalog.Business(ctx, services.DemoBusinessID)
	list, _ := d.Catalog.ActiveServices(ctx, services.DemoBusinessID)
	sel, err := services.ResolveSelection(list, []services.SelectionRequest{
		{ServiceID: "svc-1", AddOnIDs: []string{"ao-1"}},
		{ServiceID: "svc-2", Quantity: 1000},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	q, err := services.NewQuote(biz, sel, services.ComputeTotals(sel, biz.TaxRate), client, "", handlerTestTime)
	if err != nil {
		t.Fatalf("new quote: %v", err)
	}
	q, err = services.IssueQuote(context.Background(), d.App, d.Numberer, q)
	if err != nil {
		t.Fatalf("issue quote: %v", err)
	}
	return q
}
