package handlers

import (
	"fmt"
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"servicequote/logging"
	"servicequote/services"
)

const (
	maxImportUploadBytes = 10 << 20
	xlsxContentType      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type catalogImportResponse struct {
	TotalRows int                    `json:"totalRows"`
	Imported  int                    `json:"imported"`
	Errors    []services.ImportError `json:"errors,omitempty"`
}

// HandleCatalogImport adds services from an uploaded CSV or XLSX file to the
// signed-in business. A file with row errors imports nothing; with
// ?report=xlsx the errors come back as a workbook instead of JSON.
// Route: POST /dashboard/services/import
func HandleCatalogImport(d Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		log := logging.Default()
		session := GetSession(e.Request)
		if session.IsDemo() {
			return ErrorToast(e, http.StatusForbidden, "The demo catalog cannot be changed")
		}

		if err := e.Request.ParseMultipartForm(maxImportUploadBytes); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "File too large or invalid form data")
		}
		file, header, err := e.Request.FormFile("file")
		if err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Please select a file to upload")
		}
		defer file.Close()

		imp, err := services.ParseCatalogFile(file, header.Filename)
		if err != nil {
			log.Warn("catalog_import: unreadable file", "file", header.Filename, "error", err.Error())
			return ErrorToast(e, http.StatusBadRequest, err.Error())
		}

		if len(imp.Errors) > 0 {
			if e.Request.URL.Query().Get("report") == "xlsx" {
				return writeImportErrorReport(e, d, imp.Errors)
			}
			return e.JSON(http.StatusUnprocessableEntity, catalogImportResponse{
				TotalRows: imp.TotalRows,
				Errors:    imp.Errors,
			})
		}

		n, err := services.SaveCatalogImport(d.App, session.BusinessID, imp)
		if err != nil {
			log.Error(err, "catalog_import: save failed", "business", session.BusinessID)
			return ErrorToast(e, errorStatus(err), "Could not import services")
		}

		log.Info("catalog_import: imported", "business", session.BusinessID, "services", n)
		SetToast(e, "success", fmt.Sprintf("%d services imported", n))
		return e.JSON(http.StatusOK, catalogImportResponse{TotalRows: imp.TotalRows, Imported: n})
	}
}

func writeImportErrorReport(e *core.RequestEvent, d Deps, errs []services.ImportError) error {
	data, err := services.GenerateImportErrorReport(errs)
	if err != nil {
		logging.Default().Error(err, "catalog_import: error report failed")
		return ErrorToast(e, http.StatusInternalServerError, "Something went wrong. Please try again.")
	}
	filename := fmt.Sprintf("Catalog_Errors_%s.xlsx", d.now().Format("2006-01-02"))
	e.Response.Header().Set("Content-Type", xlsxContentType)
	e.Response.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	e.Response.WriteHeader(http.StatusUnprocessableEntity)
	_, err = e.Response.Write(data)
	return err
}

// HandleCatalogTemplate downloads an example catalog workbook.
// Route: GET /dashboard/services/template
func HandleCatalogTemplate() func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		data, err := services.GenerateCatalogTemplate()
		if err != nil {
			logging.Default().Error(err, "catalog_template: generate failed")
			return ErrorToast(e, http.StatusInternalServerError, "Something went wrong. Please try again.")
		}
		e.Response.Header().Set("Content-Type", xlsxContentType)
		e.Response.Header().Set("Content-Disposition", `attachment; filename="Service_Catalog_Template.xlsx"`)
		_, err = e.Response.Write(data)
		return err
	}
}
