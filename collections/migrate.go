package collections

import (
	"fmt"

	"servicequote/brandcolor"
	"servicequote/logging"

	"github.com/pocketbase/pocketbase"
)

// MigrateBrandColors replaces blank or malformed business brand colours with
// the default. Safe to call on every startup.
func MigrateBrandColors(app *pocketbase.PocketBase) error {
	col, err := app.FindCollectionByNameOrId("businesses")
	if err != nil {
		return fmt.Errorf("migrate: could not find businesses collection: %w", err)
	}
	records, err := app.FindAllRecords(col)
	if err != nil {
		return fmt.Errorf("migrate: could not query businesses: %w", err)
	}

	fixed := 0
	for _, rec := range records {
		if brandcolor.Valid(rec.GetString("brand_color")) {
			continue
		}
		rec.Set("brand_color", brandcolor.Default)
		if err := app.Save(rec); err != nil {
			return fmt.Errorf("migrate: could not update business %s: %w", rec.Id, err)
		}
		fixed++
	}
	if fixed > 0 {
		logging.Default().Info("migrate: reset brand colours", "count", fixed)
	}
	return nil
}
