package identity

import (
	"testing"

	"portal_scraper/models"
)

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12 Acacia Avenue, Cambridge", "12 acacia ave cambridge"},
		{"12 acacia ave  Cambridge", "12 acacia ave cambridge"},
		{"Flat 3, Mill Road", "flat 3 mill rd"},
		{"Apartment 3, Mill Road", "flat 3 mill rd"},
		{"  Church  Close ", "church cl"},
	}
	for _, tt := range tests {
		if got := NormalizeAddress(tt.in); got != tt.want {
			t.Errorf("NormalizeAddress(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFingerprintCollapsesRelistings(t *testing.T) {
	three := 3
	a := &models.ListingRecord{
		ListingID:    "162532097",
		Address:      "12 Acacia Avenue, Cambridge",
		Bedrooms:     &three,
		PropertyType: "Semi-Detached",
	}
	b := &models.ListingRecord{
		ListingID:    "171004523", // relisted under a new portal id
		Address:      "12 Acacia Ave, Cambridge",
		Bedrooms:     &three,
		PropertyType: "semi-detached",
	}

	if Fingerprint(a) != Fingerprint(b) {
		t.Fatal("same home with abbreviated address should share a fingerprint")
	}
}

func TestFingerprintSeparatesDistinctHomes(t *testing.T) {
	two, three := 2, 3
	a := &models.ListingRecord{Address: "12 Acacia Avenue", Bedrooms: &three}
	b := &models.ListingRecord{Address: "14 Acacia Avenue", Bedrooms: &three}
	c := &models.ListingRecord{Address: "12 Acacia Avenue", Bedrooms: &two}

	if Fingerprint(a) == Fingerprint(b) {
		t.Fatal("different house numbers should not collide")
	}
	if Fingerprint(a) == Fingerprint(c) {
		t.Fatal("different bedroom counts should not collide")
	}
}
