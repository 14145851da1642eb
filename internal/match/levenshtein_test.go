package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a        string
		b        string
		expected int
	}{
		// Identical strings
		{"", "", 0},
		{"list", "list", 0},

		// Empty vs non-empty
		{"", "abc", 3},
		{"abc", "", 3},

		// Single character operations
		{"a", "b", 1},
		{"nulable", "nullable", 1},
		{"choise", "choice", 1},
		{"objects", "object", 1},

		// Multiple operations
		{"kitten", "sitting", 3},
		{"saturday", "sunday", 3},

		// Case-sensitive
		{"Field", "field", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.expected, Levenshtein(tt.a, tt.b))
			assert.Equal(t, tt.expected, Levenshtein(tt.b, tt.a), "symmetry")
		})
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a        string
		b        string
		expected float64
	}{
		{"", "", 1},
		{"OrderID", "order_id", 1},
		{"ship-city", "ShipCity", 1},
		{"Ticket", "Tickets", 1 - 1.0/7},
		{"abc", "xyz", 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Similarity(tt.a, tt.b), 0.001)
		})
	}
}

func TestClosest(t *testing.T) {
	kinds := []string{"field", "service", "null", "constant", "list", "array", "choice", "nullable", "object", "proxy"}

	assert.Equal(t, []string{"choice"}, Closest("choise", kinds, 3))
	assert.Equal(t, []string{"Order", "Orders"}, Closest("Ordr", []string{"Customer", "Orders", "Order"}, 0))
	assert.Equal(t, []string{"list", "last"}, Closest("lst", []string{"list", "last", "lost"}, 2))
	assert.Empty(t, Closest("blob", kinds, 3))
	assert.Empty(t, Closest("x", nil, 3))
}

func BenchmarkClosest(b *testing.B) {
	names := []string{"CustomerOrder", "customer_name", "ShippingAddress", "payment_type", "DiscountRate"}
	for i := 0; i < b.N; i++ {
		Closest("customer_order_id", names, 3)
	}
}
