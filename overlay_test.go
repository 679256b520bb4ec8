package main

import (
	"strings"
	"testing"
)

func TestCompositeAtSplicesBoxIntoRow(t *testing.T) {
	base := strings.Join([]string{"aaaaaaaa", "bbbbbbbb", "cccccccc"}, "\n")
	got := compositeAt(base, "XX", 3, 1, 8, 3)
	want := strings.Join([]string{"aaaaaaaa", "bbbXXbbb", "cccccccc"}, "\n")
	if got != want {
		t.Fatalf("composite = %q, want %q", got, want)
	}
}

func TestCompositeAtIgnoresRowsOutsideBase(t *testing.T) {
	base := "aaaa"
	got := compositeAt(base, "X\nY\nZ", 0, 0, 4, 1)
	if got != "Xaaa" {
		t.Fatalf("composite = %q, want only the first row touched", got)
	}
}

func TestOverlayCenterCentersBox(t *testing.T) {
	base := strings.Join([]string{"aaaaaaaa", "bbbbbbbb", "cccccccc"}, "\n")
	got := overlayCenter(base, "XX", 8, 3)
	want := strings.Join([]string{"aaaaaaaa", "bbbXXbbb", "cccccccc"}, "\n")
	if got != want {
		t.Fatalf("overlay = %q, want %q", got, want)
	}
}

func TestClip(t *testing.T) {
	if got := clip("hello world", 5); got != "hell…" {
		t.Fatalf("clip = %q, want hell…", got)
	}
	if got := clip("hi", 5); got != "hi" {
		t.Fatalf("clip = %q, want hi untouched", got)
	}
	if got := clip("hi", 0); got != "" {
		t.Fatalf("clip = %q, want empty at zero width", got)
	}
}

func TestPadToWidth(t *testing.T) {
	if got := padToWidth("ab", 5); got != "ab   " {
		t.Fatalf("pad = %q", got)
	}
	if got := padToWidth("abcdef", 3); got != "abcdef" {
		t.Fatalf("pad = %q, want wide input untouched", got)
	}
}
