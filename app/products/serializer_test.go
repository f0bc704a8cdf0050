package products

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mytheresa/product-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToExternal(t *testing.T) {
	p := models.Product{
		ID:          1,
		Name:        "Widget",
		Description: "A widget",
		Price:       decimal.NewFromFloat(9.99),
		Qty:         10,
	}

	b, err := json.Marshal(ToExternal(p))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"name":"Widget","description":"A widget","price":9.99,"qty":10}`, string(b))
}

func TestToExternalList(t *testing.T) {
	t.Run("Keeps order", func(t *testing.T) {
		list := ToExternalList([]models.Product{
			{ID: 2, Name: "B", Price: decimal.NewFromInt(2)},
			{ID: 1, Name: "A", Price: decimal.NewFromInt(1)},
		})
		require.Len(t, list, 2)
		assert.Equal(t, uint(2), list[0].ID)
		assert.Equal(t, uint(1), list[1].ID)
	})

	t.Run("Empty input encodes as array", func(t *testing.T) {
		b, err := json.Marshal(ToExternalList(nil))
		require.NoError(t, err)
		assert.Equal(t, "[]", string(b))
	})
}

func TestFromExternal(t *testing.T) {
	testCases := []struct {
		name        string
		body        string
		expected    Input
		expectedErr error
		field       string
	}{
		{
			name:     "All fields",
			body:     `{"name":"Widget","description":"A widget","price":9.99,"qty":10}`,
			expected: Input{Name: "Widget", Description: "A widget", Price: 9.99, Qty: 10},
		},
		{
			name:     "Extra keys are ignored",
			body:     `{"id":99,"name":"Widget","description":"","price":0,"qty":0,"color":"red"}`,
			expected: Input{Name: "Widget"},
		},
		{
			name:        "Missing name",
			body:        `{"description":"A widget","price":9.99,"qty":10}`,
			expectedErr: ErrMissingField,
			field:       "name",
		},
		{
			name:        "Missing qty",
			body:        `{"name":"Widget","description":"A widget","price":9.99}`,
			expectedErr: ErrMissingField,
			field:       "qty",
		},
		{
			name:        "Null counts as missing",
			body:        `{"name":"Widget","description":null,"price":9.99,"qty":10}`,
			expectedErr: ErrMissingField,
			field:       "description",
		},
		{
			name:        "Wrong type for price",
			body:        `{"name":"Widget","description":"A widget","price":"cheap","qty":10}`,
			expectedErr: ErrInvalidField,
			field:       "price",
		},
		{
			name:        "Fractional qty",
			body:        `{"name":"Widget","description":"A widget","price":1,"qty":1.5}`,
			expectedErr: ErrInvalidField,
			field:       "qty",
		},
		{
			name:        "Name too long",
			body:        `{"name":"` + strings.Repeat("n", 101) + `","description":"","price":1,"qty":1}`,
			expectedErr: ErrInvalidField,
			field:       "name",
		},
		{
			name:        "Description too long",
			body:        `{"name":"Widget","description":"` + strings.Repeat("d", 201) + `","price":1,"qty":1}`,
			expectedErr: ErrInvalidField,
			field:       "description",
		},
		{
			name:        "Not an object",
			body:        `[1,2,3]`,
			expectedErr: ErrInvalidBody,
		},
		{
			name:        "Null body",
			body:        `null`,
			expectedErr: ErrInvalidBody,
		},
		{
			name:        "Malformed JSON",
			body:        `{invalid json`,
			expectedErr: ErrInvalidBody,
		},
		{
			name:        "Trailing garbage",
			body:        `{"name":"a","description":"","price":1,"qty":1} garbage{`,
			expectedErr: ErrInvalidBody,
		},
		{
			name:        "Two objects",
			body:        `{"name":"a","description":"","price":1,"qty":1}{"name":"b"}`,
			expectedErr: ErrInvalidBody,
		},
		{
			name:     "Trailing whitespace",
			body:     "{\"name\":\"a\",\"description\":\"\",\"price\":1,\"qty\":1}\n  ",
			expected: Input{Name: "a", Price: 1, Qty: 1},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in, err := FromExternal(strings.NewReader(tc.body))

			if tc.expectedErr == nil {
				require.NoError(t, err)
				assert.Equal(t, tc.expected, in)
				return
			}

			assert.ErrorIs(t, err, tc.expectedErr)
			if tc.field != "" {
				var fe *FieldError
				require.ErrorAs(t, err, &fe)
				assert.Equal(t, tc.field, fe.Field)
			}
		})
	}
}

func TestFieldErrorMessage(t *testing.T) {
	_, err := FromExternal(strings.NewReader(`{"description":"","price":1,"qty":1}`))
	assert.EqualError(t, err, `missing field "name"`)
}

func TestSerializerRoundTrip(t *testing.T) {
	records := []models.Product{
		{ID: 1, Name: "Widget", Description: "A widget", Price: decimal.NewFromFloat(9.99), Qty: 10},
		{ID: 7, Name: "Gadget", Description: "", Price: decimal.NewFromFloat(12.5), Qty: 0},
		{ID: 8, Name: "Łódź", Description: "unicode", Price: decimal.NewFromFloat(0.1), Qty: -3},
	}

	for _, r := range records {
		t.Run(r.Name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, json.NewEncoder(&buf).Encode(ToExternal(r)))

			in, err := FromExternal(&buf)
			require.NoError(t, err)

			assert.Equal(t, r.Name, in.Name)
			assert.Equal(t, r.Description, in.Description)
			assert.Equal(t, r.Qty, in.Qty)
			assert.True(t, r.Price.Equal(in.Fields().Price), "price %s != %s", r.Price, in.Fields().Price)
		})
	}
}
