package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"servicequote/logging"
	"servicequote/services"
)

type catalogResponse struct {
	Business services.BusinessProfile `json:"business"`
	Services []services.Service       `json:"services"`
}

// HandleCatalog returns a business and its active services as JSON.
func HandleCatalog(d Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		businessID := e.Request.PathValue("businessId")
		if businessID == "" {
			return e.String(http.StatusBadRequest, "Missing business ID")
		}

		ctx := e.Request.Context()
		biz, err := d.Catalog.Business(ctx, businessID)
		if err != nil {
			return e.String(errorStatus(err), "Business not found")
		}
		list, err := d.Catalog.ActiveServices(ctx, businessID)
		if err != nil {
			logging.Default().Error(err, "catalog: failed to load services", "business", businessID)
			return e.String(errorStatus(err), "Failed to load services")
		}
		if list == nil {
			list = []services.Service{}
		}
		return e.JSON(http.StatusOK, catalogResponse{Business: biz, Services: list})
	}
}
