package pricefeed

import (
	"testing"

	"cointrack/internal/application/port"
)

func TestRegistry(t *testing.T) {
	var built string
	Register("ZZTEST", func(wsURL string) port.PriceFeed {
		built = wsURL
		return nil
	})
	Register("ZZNIL", nil)

	f, ok := Get("ZZTEST")
	if !ok {
		t.Fatal("factory not registered")
	}
	f("wss://example")
	if built != "wss://example" {
		t.Errorf("factory got %q", built)
	}
	if _, ok := Get("ZZNIL"); ok {
		t.Error("nil factory was registered")
	}

	names := Names()
	found := false
	for i, n := range names {
		if i > 0 && names[i-1] > n {
			t.Fatalf("names not sorted: %v", names)
		}
		if n == "ZZTEST" {
			found = true
		}
	}
	if !found {
		t.Errorf("names = %v", names)
	}
}
