package keyboard

import (
	"reflect"
	"testing"
)

func TestChunkLabels(t *testing.T) {
	got := ChunkLabels([]string{"USD", "RUB", "GBP", "CNY", "EUR"}, 2)
	want := [][]string{{"USD", "RUB"}, {"GBP", "CNY"}, {"EUR"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %v", got)
	}
	if rows := ChunkLabels([]string{"a", "b"}, 0); len(rows) != 2 {
		t.Fatalf("single rows = %v", rows)
	}
}

func TestReplyButtons(t *testing.T) {
	m := ReplyButtons([]string{"USD", "RUB"}, []string{"EUR"})
	if !m.ResizeKeyboard {
		t.Fatal("expected resize keyboard")
	}
	if len(m.ReplyKeyboard) != 2 || len(m.ReplyKeyboard[0]) != 2 || m.ReplyKeyboard[1][0].Text != "EUR" {
		t.Fatalf("keyboard = %+v", m.ReplyKeyboard)
	}
	if !RemoveKeyboard().RemoveKeyboard {
		t.Fatal("remove flag not set")
	}
}
