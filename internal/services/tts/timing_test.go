package tts

import (
	"testing"

	"shortsmith/internal/testsupport"
)

func TestEstimateWordsProportional(t *testing.T) {
	words := estimateWords("ab abcd ab", 2)
	want := [][2]int64{{0, 500}, {500, 1500}, {1500, 2000}}
	if len(words) != len(want) {
		t.Fatalf("got %d words", len(words))
	}
	for i, w := range words {
		if w.StartMs != want[i][0] || w.EndMs != want[i][1] {
			t.Fatalf("word %d = [%d,%d], want %v", i, w.StartMs, w.EndMs, want[i])
		}
	}
	if got := estimateWords("   ", 2); len(got) != 0 {
		t.Fatalf("blank text produced %v", got)
	}
}

func TestPrepareText(t *testing.T) {
	got := prepareText("  “Don't\n\npanic,” she said \"now\"  ")
	if got != "Don't panic, she said now" {
		t.Fatalf("prepareText = %q", got)
	}
}

func TestWAVDuration(t *testing.T) {
	d, err := wavDuration(testsupport.WAVBytes(1.5, 22050))
	if err != nil || d != 1.5 {
		t.Fatalf("wavDuration = %v, %v", d, err)
	}
	if _, err := wavDuration([]byte("RIFF0000WAVE")); err == nil {
		t.Fatal("expected error for WAV without data chunk")
	}
	if _, err := wavDuration([]byte("ID3 not audio")); err == nil {
		t.Fatal("expected error for non-WAV payload")
	}
}
