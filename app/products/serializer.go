package products

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/mytheresa/product-api/models"
	"github.com/shopspring/decimal"
)

const (
	maxNameLength        = 100
	maxDescriptionLength = 200
)

var (
	// ErrMissingField means a required key was absent or null.
	ErrMissingField = errors.New("missing field")
	// ErrInvalidField means a key held a value of the wrong type or size.
	ErrInvalidField = errors.New("invalid field")
	// ErrInvalidBody means the request body was not a JSON object.
	ErrInvalidBody = errors.New("request body must be a JSON object")
)

// FieldError reports which inbound field was rejected.
type FieldError struct {
	Field  string
	Reason string
	Err    error
}

func (e *FieldError) Error() string {
	if errors.Is(e.Err, ErrMissingField) {
		return fmt.Sprintf("missing field %q", e.Field)
	}
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Product is the external representation of models.Product.
type Product struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Qty         int     `json:"qty"`
}

// Input holds the four writable fields of a product payload.
type Input struct {
	Name        string
	Description string
	Price       float64
	Qty         int
}

func (in Input) Fields() models.ProductFields {
	return models.ProductFields{
		Name:        in.Name,
		Description: in.Description,
		Price:       decimal.NewFromFloat(in.Price),
		Qty:         in.Qty,
	}
}

func ToExternal(p models.Product) Product {
	return Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
		Qty:         p.Qty,
	}
}

func ToExternalList(ps []models.Product) []Product {
	out := make([]Product, len(ps))
	for i, p := range ps {
		out[i] = ToExternal(p)
	}
	return out
}

// FromExternal reads name, description, price and qty from a JSON object.
// All four keys are required; any other keys are ignored. The body must hold
// exactly one value.
func FromExternal(body io.Reader) (Input, error) {
	dec := json.NewDecoder(body)
	var raw map[string]json.RawMessage
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return Input{}, ErrInvalidBody
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return Input{}, ErrInvalidBody
	}

	var in Input
	fields := []struct {
		key  string
		dest any
	}{
		{"name", &in.Name},
		{"description", &in.Description},
		{"price", &in.Price},
		{"qty", &in.Qty},
	}
	for _, f := range fields {
		value, ok := raw[f.key]
		if !ok || string(value) == "null" {
			return Input{}, &FieldError{Field: f.key, Err: ErrMissingField}
		}
		if err := json.Unmarshal(value, f.dest); err != nil {
			return Input{}, &FieldError{Field: f.key, Reason: "wrong type", Err: ErrInvalidField}
		}
	}

	if utf8.RuneCountInString(in.Name) > maxNameLength {
		return Input{}, &FieldError{Field: "name", Reason: fmt.Sprintf("longer than %d characters", maxNameLength), Err: ErrInvalidField}
	}
	if utf8.RuneCountInString(in.Description) > maxDescriptionLength {
		return Input{}, &FieldError{Field: "description", Reason: fmt.Sprintf("longer than %d characters", maxDescriptionLength), Err: ErrInvalidField}
	}

	return in, nil
}
