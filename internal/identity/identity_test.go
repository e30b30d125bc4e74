package identity

import "testing"

func TestFromStringIsDeterministic(t *testing.T) {
	a := FromString("stock", "btc")
	b := FromString("stock", "btc")
	if a != b {
		t.Errorf("expected identical IDs, got %s and %s", a, b)
	}
}

func TestKnownDigests(t *testing.T) {
	// Reference values produced by the original derivation
	// (uuid3-formatted MD5 of "a:b" or the raw URL).
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"category+keyword", FromString("stock", "btc"), "69bffc77-737f-3147-a0f9-a2db5a7d38c9"},
		{"url", FromURL("https://example.com/post/123"), "f408effa-08eb-3694-adc1-36db1d8f3f0e"},
		{"source+title", FromString("dcinside", "hello"), "6868fad1-b9d4-3db7-8499-9cfca80cc8dc"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, tt.got)
		}
	}
}

func TestDistinctKeysDistinctIDs(t *testing.T) {
	if FromString("stock", "btc") == FromString("sports", "btc") {
		t.Error("different categories must not collide")
	}
	if FromURL("https://a.com/1") == FromURL("https://a.com/2") {
		t.Error("different URLs must not collide")
	}
}

func TestPostIDPrefersURL(t *testing.T) {
	withURL := PostID("https://example.com/post/123", "dcinside", "hello")
	if withURL != FromURL("https://example.com/post/123") {
		t.Errorf("expected URL-derived ID, got %s", withURL)
	}

	withoutURL := PostID("", "dcinside", "hello")
	if withoutURL != FromString("dcinside", "hello") {
		t.Errorf("expected source+title fallback, got %s", withoutURL)
	}
}

func TestPostIDEmptySourceDefaultsUnknown(t *testing.T) {
	if PostID("", "", "hello") != FromString("unknown", "hello") {
		t.Error("empty source should fall back to 'unknown'")
	}
}

func TestVersionAndVariantBits(t *testing.T) {
	id := FromString("x", "y")
	// 36-char canonical form: version nibble at index 14, variant at 19.
	if id[14] != '3' {
		t.Errorf("expected version 3 UUID, got %s", id)
	}
	switch id[19] {
	case '8', '9', 'a', 'b':
	default:
		t.Errorf("expected RFC 4122 variant, got %s", id)
	}
}
