package utils

import (
	"regexp"
	"testing"
)

func TestTicketCode(t *testing.T) {
	format := regexp.MustCompile(`^R\d{6}$`)
	ids := []string{
		"65f1c0a9b4e2d3a1f0c9b8a7",
		"000000000000000000000000",
		"deadbeefdeadbeefdeadbeef",
	}
	for _, id := range ids {
		code := TicketCode(id)
		if !format.MatchString(code) {
			t.Errorf("TicketCode(%q) = %q, want R + 6 digits", id, code)
		}
		if again := TicketCode(id); again != code {
			t.Errorf("TicketCode(%q) not deterministic: %q vs %q", id, code, again)
		}
	}
	if TicketCode(ids[0]) == TicketCode(ids[1]) {
		t.Errorf("distinct keys unexpectedly collided")
	}
}

func TestExtractTicketCode(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"Заявка #R042137 відправлена.", "R042137"},
		{"Нова заявка #R000001\nПІБ: Тест", "R000001"},
		{"перший #R000001, другий #R000002", "R000001"},
		{"без коду", ""},
		{"R042137 без решітки", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := ExtractTicketCode(c.text); got != c.want {
			t.Errorf("ExtractTicketCode(%q) = %q, want %q", c.text, got, c.want)
		}
	}
}
