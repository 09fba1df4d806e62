package alpaca

import (
	"testing"

	"github.com/shopspring/decimal"

	"wte/internal/gateway"
)

func TestMapStatus(t *testing.T) {
	tests := []struct {
		broker string
		want   gateway.OrderStatus
	}{
		{"new", gateway.StatusSubmitted},
		{"accepted", gateway.StatusSubmitted},
		{"partially_filled", gateway.StatusSubmitted},
		{"filled", gateway.StatusFilled},
		{"canceled", gateway.StatusCanceled},
		{"expired", gateway.StatusCanceled},
		{"done_for_day", gateway.StatusCanceled},
		{"rejected", gateway.StatusInvalid},
	}
	for _, tt := range tests {
		if got := mapStatus(tt.broker); got != tt.want {
			t.Fatalf("mapStatus(%q) = %s, want %s", tt.broker, got, tt.want)
		}
	}
}

func TestClientOrderID(t *testing.T) {
	price := decimal.RequireFromString("2000.50")

	entry := gateway.OrderRequest{Symbol: "XAUUSD", Kind: gateway.Stop, Quantity: 10, Price: price, PositionID: "pos-1"}
	if got, want := clientOrderID(entry), "pos-1-stop"; got != want {
		t.Fatalf("entry client order ID = %q, want %q", got, want)
	}

	leg := gateway.OrderRequest{Symbol: "XAUUSD", Kind: gateway.Stop, Quantity: -10, Price: price, PositionID: "pos-1"}
	if got, want := clientOrderID(leg), "pos-1-stop-x"; got != want {
		t.Fatalf("leg client order ID = %q, want %q", got, want)
	}

	if got := clientOrderID(gateway.OrderRequest{Kind: gateway.Market, Quantity: 1}); got != "" {
		t.Fatalf("missing position ID must yield an empty client order ID, got %q", got)
	}
}
