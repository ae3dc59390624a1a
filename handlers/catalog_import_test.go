package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"servicequote/services"
	"servicequote/testhelpers"
)

func uploadRequest(t *testing.T, target, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func ownerSession(businessID string) services.Session {
	return services.Session{Kind: services.SessionAuthenticated, UserID: "user1", Email: "owner@example.com", BusinessID: businessID}
}

func TestHandleCatalogImport(t *testing.T) {
	d := newTestDeps(t)
	biz := testhelpers.CreateTestBusiness(t, d.App, "Sparkle Co", "#336699")

	req := withSession(uploadRequest(t, "/dashboard/services/import", "catalog.csv",
		"Service Name,Base Price,Add-ons\nStandard,120,Fridge=25\nHourly Help,45,\n"), ownerSession(biz.Id))
	rec := httptest.NewRecorder()
	require.NoError(t, HandleCatalogImport(d)(newTestRequestEvent(d.App, req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp catalogImportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Imported)
	assert.Contains(t, rec.Header().Get("HX-Trigger"), "2 services imported")

	records, err := d.App.FindRecordsByFilter("services", "business = {:b}", "", 0, 0, map[string]any{"b": biz.Id})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestHandleCatalogImport_RowErrors(t *testing.T) {
	d := newTestDeps(t)
	biz := testhelpers.CreateTestBusiness(t, d.App, "Sparkle Co", "#336699")
	content := "Service Name,Base Price\n,120\nOk,10\n"

	req := withSession(uploadRequest(t, "/dashboard/services/import", "catalog.csv", content), ownerSession(biz.Id))
	rec := httptest.NewRecorder()
	require.NoError(t, HandleCatalogImport(d)(newTestRequestEvent(d.App, req, rec)))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp catalogImportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Zero(t, resp.Imported)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, 2, resp.Errors[0].Row)

	records, _ := d.App.FindRecordsByFilter("services", "business = {:b}", "", 0, 0, map[string]any{"b": biz.Id})
	assert.Empty(t, records, "nothing is saved when any row fails")

	req = withSession(uploadRequest(t, "/dashboard/services/import?report=xlsx", "catalog.csv", content), ownerSession(biz.Id))
	rec = httptest.NewRecorder()
	require.NoError(t, HandleCatalogImport(d)(newTestRequestEvent(d.App, req, rec)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Catalog_Errors_2026-03-05.xlsx")
}

func TestHandleCatalogImport_Rejects(t *testing.T) {
	d := newTestDeps(t)

	req := withSession(uploadRequest(t, "/dashboard/services/import", "catalog.csv", "Service Name,Base Price\nA,1\n"), demoSession())
	rec := httptest.NewRecorder()
	require.NoError(t, HandleCatalogImport(d)(newTestRequestEvent(d.App, req, rec)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = withSession(uploadRequest(t, "/dashboard/services/import", "catalog.csv", "Name Only\nA\n"), ownerSession("abc"))
	rec = httptest.NewRecorder()
	require.NoError(t, HandleCatalogImport(d)(newTestRequestEvent(d.App, req, rec)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "none", rec.Header().Get("HX-Reswap"))
}

func TestHandleCatalogTemplate(t *testing.T) {
	d := newTestDeps(t)
	req := httptest.NewRequest(http.MethodGet, "/dashboard/services/template", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, HandleCatalogTemplate()(newTestRequestEvent(d.App, req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Body.Bytes())
}
