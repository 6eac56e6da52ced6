package symbols

import "testing"

func TestMapIDToSymbol(t *testing.T) {
	tests := []struct {
		id     string
		want   string
		wantOK bool
	}{
		{"bitcoin", "BTC", true},
		{"BitCoin", "BTC", true},
		{"the-open-network", "TON", true},
		{"polkadot", "DOT", true},
		{"", "", false},
		{"not-a-coin", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, ok := MapIDToSymbol(tt.id)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("MapIDToSymbol(%q) = (%q, %v), want (%q, %v)", tt.id, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestMapIDsToSymbols(t *testing.T) {
	got := MapIDsToSymbols([]string{"Ethereum", "solana", "unknown", ""})

	if len(got) != 4 {
		t.Fatalf("expected 4 keys, got %d", len(got))
	}
	if got["Ethereum"] == nil || *got["Ethereum"] != "ETH" {
		t.Errorf("Ethereum should map to ETH with original casing kept, got %v", got["Ethereum"])
	}
	if got["solana"] == nil || *got["solana"] != "SOL" {
		t.Errorf("solana should map to SOL, got %v", got["solana"])
	}
	if v, ok := got["unknown"]; !ok || v != nil {
		t.Errorf("unknown should be present and nil, got %v (present=%v)", v, ok)
	}
	if v, ok := got[""]; !ok || v != nil {
		t.Errorf("empty id should be present and nil, got %v (present=%v)", v, ok)
	}
}

func TestMapIDsToSymbols_Empty(t *testing.T) {
	got := MapIDsToSymbols(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil map, got %v", got)
	}
}

func TestKnown(t *testing.T) {
	entries := Known()
	if len(entries) != 22 {
		t.Fatalf("expected 22 entries, got %d", len(entries))
	}
	if entries[0].ID != "bitcoin" {
		t.Errorf("first entry = %q, want bitcoin", entries[0].ID)
	}

	entries[0].Symbol = "MUTATED"
	if sym, _ := MapIDToSymbol("bitcoin"); sym != "BTC" {
		t.Error("Known() must return a copy")
	}
	for _, e := range entries[1:] {
		if sym, ok := MapIDToSymbol(e.ID); !ok || sym != e.Symbol {
			t.Errorf("Known entry %q not resolvable", e.ID)
		}
	}
}

func TestLookup(t *testing.T) {
	e, ok := Lookup("Solana")
	if !ok || e.Symbol != "SOL" || e.Name != "Solana" {
		t.Errorf("Lookup(Solana) = %+v, %v", e, ok)
	}
	if _, ok := Lookup("fake"); ok {
		t.Error("unknown id should not be found")
	}
}
