package match

import (
	"testing"
)

func TestNormalizeIdent(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// Basic cases
		{"OrderID", "orderid"},
		{"order_id", "orderid"},
		{"order-id", "orderid"},
		{"orderId", "orderid"},
		{"ORDERID", "orderid"},

		// CamelCase variations
		{"customerName", "customername"},
		{"CustomerName", "customername"},
		{"XMLParser", "xmlparser"},
		{"getHTTPResponse", "gethttpresponse"},
		{"shipCity", "shipcity"},
		{"ShipCity", "shipcity"},

		// With underscores
		{"payment_type", "paymenttype"},
		{"PAYMENT_TYPE", "paymenttype"},
		{"Payment_Type", "paymenttype"},

		// Edge cases
		{"", ""},
		{"a", "a"},
		{"A", "a"},
		{"ID", "id"},
		{"id", "id"},

		// Mixed separators
		{"order_item-ID", "orderitemid"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := NormalizeIdent(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeIdent(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestTokenizeCamelCase(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"OrderID", []string{"Order", "ID"}},
		{"customerName", []string{"customer", "Name"}},
		{"XMLParser", []string{"XML", "Parser"}},
		{"getHTTPResponse", []string{"get", "HTTP", "Response"}},
		{"order_id", []string{"order", "id"}},
		{"ALLCAPS", []string{"ALLCAPS"}},
		{"lowercase", []string{"lowercase"}},
		{"", nil},
		{"a", []string{"a"}},
		{"AB", []string{"AB"}},
		{"AbC", []string{"Ab", "C"}},
		{"ABcD", []string{"A", "Bc", "D"}},
		{"URLParser", []string{"URL", "Parser"}},
		{"parseURL", []string{"parse", "URL"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := tokenizeCamelCase(tt.input)
			if !stringSliceEqual(result, tt.expected) {
				t.Errorf("tokenizeCamelCase(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
