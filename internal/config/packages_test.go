package config

import "testing"

func TestStaticCatalogFind(t *testing.T) {
	catalog, err := NewStaticCatalog(DefaultCreditPackages())
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	pkg := catalog.Find("starter")
	if pkg == nil {
		t.Fatal("starter package missing")
	}
	if pkg.Credits != 10 || pkg.CostUSD != 999 {
		t.Fatalf("starter = %+v", pkg)
	}

	// Lookup is case and whitespace insensitive.
	if catalog.Find("  Premium ") == nil {
		t.Fatal("premium package missing")
	}
	if catalog.Find("mega") != nil {
		t.Fatal("unknown code must return nil")
	}
}

func TestValidatePackages(t *testing.T) {
	cases := []struct {
		name     string
		packages []CreditPackage
	}{
		{"empty", nil},
		{"blank code", []CreditPackage{{Code: " ", Credits: 1, CostUSD: 1}}},
		{"duplicate code", []CreditPackage{
			{Code: "a", Credits: 1, CostUSD: 1},
			{Code: "A", Credits: 2, CostUSD: 2},
		}},
		{"zero credits", []CreditPackage{{Code: "a", Credits: 0, CostUSD: 1}}},
		{"zero cost", []CreditPackage{{Code: "a", Credits: 1, CostUSD: 0}}},
	}
	for _, tc := range cases {
		if _, err := NewStaticCatalog(tc.packages); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}
