package tui

import (
	"reflect"
	"testing"
)

func TestWrapTextBreaksAtSpaces(t *testing.T) {
	got := wrapText("one two three", 7)
	want := []string{"one two", "three"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestWrapTextBreaksLongWords(t *testing.T) {
	got := wrapText("abcdefghij", 4)
	want := []string{"abcd", "efgh", "ij"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestWrapTextMeasuresWideRunes(t *testing.T) {
	got := wrapText("数学数学", 4)
	want := []string{"数学", "数学"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestWrapTextKeepsNewlines(t *testing.T) {
	got := wrapText("first\nsecond line", 20)
	want := []string{"first", "second line"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestWrapTextNoWidth(t *testing.T) {
	got := wrapText("a b c", 0)
	if len(got) != 1 || got[0] != "a b c" {
		t.Fatalf("expected unwrapped text, got %q", got)
	}
}

func TestHangingWrapIndentsContinuation(t *testing.T) {
	got := hangingWrap("1) ", "alpha beta gamma", 11)
	want := []string{"1) alpha", "   beta", "   gamma"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
