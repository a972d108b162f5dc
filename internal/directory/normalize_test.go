package directory

import "testing"

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase passthrough", "alice", "alice"},
		{"uppercase folded", "Alice", "alice"},
		{"diacritics removed", "Jiří", "jiri"},
		{"whitespace trimmed", "  bob  ", "bob"},
		{"mixed", "  ŘEHOŘ  ", "rehor"},
		{"empty", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeUsername(tc.input); got != tc.expected {
				t.Errorf("NormalizeUsername(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	if ParseRole("admin") != RoleAdmin {
		t.Error("expected admin role")
	}
	if ParseRole("guest") != RoleGuest {
		t.Error("expected guest role")
	}
	if ParseRole("") != RoleGuest {
		t.Error("unknown roles should default to guest")
	}
}
