package redis

import "testing"

func TestHotOfferMember(t *testing.T) {
	member := hotOfferMember("sale_01jd", "offer_01je")

	saleID, offerID, ok := parseHotOfferMember(member)
	if !ok || saleID != "sale_01jd" || offerID != "offer_01je" {
		t.Fatalf("parseHotOfferMember(%q) = %q, %q, %v", member, saleID, offerID, ok)
	}
}

func TestParseHotOfferMemberRejectsMalformed(t *testing.T) {
	for _, member := range []string{"", "sale_only", "|offer", "sale|"} {
		if _, _, ok := parseHotOfferMember(member); ok {
			t.Errorf("parseHotOfferMember(%q) accepted", member)
		}
	}
}

func TestListingKey(t *testing.T) {
	if got := listingKey("active"); got != "listing:active" {
		t.Errorf("listingKey = %q", got)
	}
}
