package logger

import (
	"context"
	"testing"
)

func TestMetaAccumulates(t *testing.T) {
	ctx := WithRID(context.Background(), "1:2:3")
	ctx = WithUpdateMeta(ctx, 1, 3, 2)
	ctx = WithHandler(ctx, "weather")
	ctx = WithHandler(ctx, "")

	got := MetaFrom(ctx)
	want := Meta{RID: "1:2:3", UpdateID: 1, ChatID: 2, UserID: 3, Handler: "weather"}
	if got != want {
		t.Fatalf("meta = %+v, want %+v", got, want)
	}

	fields := map[string]any{"chat_id": int64(99)}
	got.fields(fields)
	if fields["chat_id"] != int64(99) {
		t.Fatalf("explicit attr overwritten: %v", fields["chat_id"])
	}
	if fields["handler"] != "weather" || fields["update_id"] != 1 {
		t.Fatalf("fields = %v", fields)
	}
}

func TestSanitizeLimit(t *testing.T) {
	if got := SanitizeLimit("a\x00b\u200bc\nd", 10); got != "abc\nd" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
	if got := SanitizeLimit("погода", 3); got != "пог" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
	if got := SanitizeLimit("x", 0); got != "" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
}

func TestCompactRID(t *testing.T) {
	if got := CompactRID("35:36:71"); got != "z.10.1z" {
		t.Fatalf("CompactRID = %q", got)
	}
	for _, in := range []string{"", "abc", "1:2", "1:x:3"} {
		if got := CompactRID(in); got != in {
			t.Fatalf("CompactRID(%q) = %q", in, got)
		}
	}
}
