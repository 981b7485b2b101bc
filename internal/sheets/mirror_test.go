package sheets

import (
	"context"
	"testing"
	"time"

	"github.com/studmisto/opsbot/internal/models"
)

func TestUnconfiguredMirrorIsNoop(t *testing.T) {
	ctx := context.Background()
	s, err := NewService(ctx, "", "")
	if err != nil {
		t.Fatalf("unconfigured mirror must build: %v", err)
	}
	if s.Enabled() {
		t.Fatalf("mirror must report disabled without a spreadsheet id")
	}
	if err := s.AppendRequest(ctx, "R000001", "https://t.me/c/1/2/3", models.Request{}); err != nil {
		t.Fatalf("append on disabled mirror: %v", err)
	}
	if err := s.UpdateStatus(ctx, "R000001", models.StatusCompleted, models.CategoryOther, time.Now()); err != nil {
		t.Fatalf("update on disabled mirror: %v", err)
	}
}

func TestColumnLetter(t *testing.T) {
	cases := map[int]string{1: "A", 6: "F", 9: "I"}
	for n, want := range cases {
		if got := columnLetter(n); got != want {
			t.Errorf("columnLetter(%d) = %q, want %q", n, got, want)
		}
	}
}
