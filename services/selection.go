package services

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalidSelection is returned when a selection cannot be priced as requested.
var ErrInvalidSelection = errors.New("invalid selection")

// SelectionRequest is what a client submits for one service.
type SelectionRequest struct {
	ServiceID string   `json:"serviceId"`
	Quantity  any      `json:"quantity,omitempty"`
	AddOnIDs  []string `json:"addOnIds,omitempty"`
}

// ValidateSelection rejects selections the engine would otherwise price
// permissively: negative prices or quantities, inactive services and add-ons
// that belong to a different service.
func ValidateSelection(selection Selection) error {
	for i, s := range selection {
		svc := s.Service
		if !svc.Active {
			return fmt.Errorf("%w: service %q is not active", ErrInvalidSelection, svc.Name)
		}
		if svc.BasePrice < 0 || math.IsNaN(svc.BasePrice) {
			return fmt.Errorf("%w: service %q has a negative price", ErrInvalidSelection, svc.Name)
		}
		if svc.RequiresQuantity() && (s.Quantity < 0 || math.IsNaN(s.Quantity) || math.IsInf(s.Quantity, 0)) {
			return fmt.Errorf("%w: item %d has an invalid quantity", ErrInvalidSelection, i+1)
		}
		for _, a := range s.AddOns {
			if a.ServiceID != svc.ID {
				return fmt.Errorf("%w: add-on %q does not belong to %q", ErrInvalidSelection, a.Name, svc.Name)
			}
			if a.Price < 0 || math.IsNaN(a.Price) {
				return fmt.Errorf("%w: add-on %q has a negative price", ErrInvalidSelection, a.Name)
			}
		}
	}
	return nil
}

// ResolveSelection maps request IDs onto catalog entries, preserving request
// order. Quantities are parsed strictly. Unknown services or add-ons, inactive
// services, duplicate services and unusable quantities are rejected.
func ResolveSelection(catalog []Service, requests []SelectionRequest) (Selection, error) {
	byID := make(map[string]Service, len(catalog))
	for _, svc := range catalog {
		byID[svc.ID] = svc
	}

	seen := make(map[string]bool, len(requests))
	selection := make(Selection, 0, len(requests))
	for _, req := range requests {
		svc, ok := byID[req.ServiceID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown service %q", ErrInvalidSelection, req.ServiceID)
		}
		if !svc.Active {
			return nil, fmt.Errorf("%w: service %q is not active", ErrInvalidSelection, svc.Name)
		}
		if seen[svc.ID] {
			return nil, fmt.Errorf("%w: service %q selected twice", ErrInvalidSelection, svc.Name)
		}
		seen[svc.ID] = true

		item := SelectedService{Service: svc}
		if svc.RequiresQuantity() {
			qty, err := ParseQuantity(req.Quantity)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSelection, svc.Name, err)
			}
			item.Quantity = qty
		}

		addOns := make(map[string]AddOn, len(svc.AddOns))
		for _, a := range svc.AddOns {
			addOns[a.ID] = a
		}
		for _, id := range dedupe(req.AddOnIDs) {
			a, ok := addOns[id]
			if !ok {
				return nil, fmt.Errorf("%w: add-on %q is not offered with %q", ErrInvalidSelection, id, svc.Name)
			}
			item.AddOns = append(item.AddOns, a)
		}
		selection = append(selection, item)
	}
	return selection, nil
}

// SortServices orders services by sort order, then name.
func SortServices(services []Service) {
	sort.SliceStable(services, func(i, j int) bool {
		if services[i].SortOrder != services[j].SortOrder {
			return services[i].SortOrder < services[j].SortOrder
		}
		return services[i].Name < services[j].Name
	})
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
