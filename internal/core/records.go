package core

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/shipload/internal/source"
)

// validate reports field errors under the source column name (col tag).
var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("col")
	})
	return v
}()

// ShipmentRecord is one typed shipment candidate built from a source row.
// Product may be blank; it then misses the catalog and is skipped.
type ShipmentRecord struct {
	Product     string `col:"product"`
	Quantity    int32  `col:"product_quantity" validate:"min=1"`
	Origin      string `col:"origin_warehouse" validate:"required"`
	Destination string `col:"destination_store" validate:"required"`

	Source string `col:"-" validate:"-"`
	Line   int    `col:"-" validate:"-"`
}

// Params converts the record to insert parameters for productID.
func (r ShipmentRecord) Params(productID int64) ShipmentParams {
	return ShipmentParams{
		ProductID:   productID,
		Quantity:    r.Quantity,
		Origin:      r.Origin,
		Destination: r.Destination,
	}
}

func (r ShipmentRecord) check() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return &SourceError{
		Source: r.Source,
		Line:   r.Line,
		Column: fe.Field(),
		Err:    fmt.Errorf("%w: failed %q check", ErrMalformedValue, fe.Tag()),
	}
}

// DirectRecords builds one record per row of the direct source. Quantity
// comes from product_quantity and must be a positive whole number.
//
// A row with a blank product can only miss the catalog, so its other cells
// are carried as read and never checked.
func DirectRecords(t *source.Table) ([]ShipmentRecord, error) {
	if missing := t.Missing(ColProduct, ColProductQuantity, ColOrigin, ColDestination); len(missing) > 0 {
		return nil, &SourceError{Source: t.Name, Column: strings.Join(missing, ", "), Err: ErrMissingColumn}
	}

	records := make([]ShipmentRecord, 0, t.Len())
	for _, row := range t.Rows {
		if row.Get(ColProduct) == "" {
			records = append(records, missRecord(row.Get, t.Name, row.Line))
			continue
		}

		raw := row.Get(ColProductQuantity)
		qty, err := parseQuantity(raw)
		if err != nil {
			return nil, &SourceError{
				Source: t.Name,
				Line:   row.Line,
				Column: ColProductQuantity,
				Err:    fmt.Errorf("%w: %q is not a whole number", ErrMalformedValue, raw),
			}
		}

		rec := ShipmentRecord{
			Product:     row.Get(ColProduct),
			Quantity:    qty,
			Origin:      row.Get(ColOrigin),
			Destination: row.Get(ColDestination),
			Source:      t.Name,
			Line:        row.Line,
		}
		if err := rec.check(); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// JoinedRecords builds one record per joined row. Every joined record has
// quantity 1 regardless of any quantity-like column on either side.
func JoinedRecords(res *JoinResult) ([]ShipmentRecord, error) {
	var missing []string
	for _, col := range []string{ColProduct, ColOrigin, ColDestination} {
		if !res.Has(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &SourceError{Source: res.Name, Column: strings.Join(missing, ", "), Err: ErrMissingColumn}
	}

	records := make([]ShipmentRecord, 0, len(res.Rows))
	for _, row := range res.Rows {
		if row.Get(ColProduct) == "" {
			records = append(records, missRecord(row.Get, res.Name, row.Line()))
			continue
		}

		rec := ShipmentRecord{
			Product:     row.Get(ColProduct),
			Quantity:    1,
			Origin:      row.Get(ColOrigin),
			Destination: row.Get(ColDestination),
			Source:      res.Name,
			Line:        row.Line(),
		}
		if err := rec.check(); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// missRecord keeps a blank-product row so the loader counts it as skipped.
func missRecord(get func(string) string, src string, line int) ShipmentRecord {
	return ShipmentRecord{
		Origin:      get(ColOrigin),
		Destination: get(ColDestination),
		Source:      src,
		Line:        line,
	}
}

// parseQuantity accepts "5" and spreadsheet-style "5.0".
func parseQuantity(s string) (int32, error) {
	if n, err := strconv.ParseInt(s, 10, 32); err == nil {
		return int32(n), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("not a whole number: %s", s)
	}
	return int32(f), nil
}
