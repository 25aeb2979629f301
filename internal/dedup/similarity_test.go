package dedup

import (
	"math"
	"strings"
	"testing"
)

func TestTitleSimilarityIdentical(t *testing.T) {
	t.Parallel()

	if got := TitleSimilarity("Understanding Go", "Understanding Go"); got != 1.0 {
		t.Fatalf("identical titles = %v, want exactly 1.0", got)
	}
	// Case and punctuation differences disappear in normalization.
	if got := TitleSimilarity("Hello, World!", "hello world"); got != 1.0 {
		t.Fatalf("punctuation variant = %v, want exactly 1.0", got)
	}
	if got := TitleSimilarity("深入理解计算机系统", "深入理解计算机系统"); got != 1.0 {
		t.Fatalf("cjk identical = %v, want exactly 1.0", got)
	}
}

func TestTitleSimilarityEmpty(t *testing.T) {
	t.Parallel()

	if got := TitleSimilarity("", "anything"); got != 0 {
		t.Fatalf("empty first = %v, want 0", got)
	}
	if got := TitleSimilarity("anything", ""); got != 0 {
		t.Fatalf("empty second = %v, want 0", got)
	}
	// Normalization can empty a title made of punctuation only.
	if got := TitleSimilarity("!!!", "anything"); got != 0 {
		t.Fatalf("punctuation-only = %v, want 0", got)
	}
}

func TestTitleSimilaritySymmetric(t *testing.T) {
	t.Parallel()

	pairs := [][2]string{
		{"Go Concurrency Patterns", "Concurrency in Go"},
		{"abcd", "bcde"},
		{"A Long Article About Databases", "Databases: A Long Article"},
	}
	for _, p := range pairs {
		ab := TitleSimilarity(p[0], p[1])
		ba := TitleSimilarity(p[1], p[0])
		if math.Abs(ab-ba) > 1e-12 {
			t.Fatalf("similarity(%q,%q)=%v but reversed=%v", p[0], p[1], ab, ba)
		}
	}
}

func TestTitleSimilarityRatio(t *testing.T) {
	t.Parallel()

	// One matching block "bcd" of size 3 over combined length 8.
	if got, want := TitleSimilarity("abcd", "bcde"), 0.75; math.Abs(got-want) > 1e-12 {
		t.Fatalf("ratio = %v, want %v", got, want)
	}

	// 16 shared leading characters over combined length 40.
	a := strings.Repeat("a", 20)
	b := strings.Repeat("a", 16) + strings.Repeat("b", 4)
	if got, want := TitleSimilarity(a, b), 0.8; math.Abs(got-want) > 1e-12 {
		t.Fatalf("ratio = %v, want %v", got, want)
	}
}

func TestTitleSimilarityUnrelated(t *testing.T) {
	t.Parallel()

	got := TitleSimilarity("Go Generics Deep Dive", "Sourdough Starter Basics")
	if got >= 0.5 {
		t.Fatalf("unrelated titles = %v, want < 0.5", got)
	}
}

func TestNormalizeTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"  Hello,   World!  ", "hello world"},
		{"Go 1.22 — what's new?", "go 122 whats new"},
		{"深入理解:计算机系统", "深入理解计算机系统"},
		{"___", "___"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		if got := normalizeTitle(tt.input); got != tt.want {
			t.Fatalf("normalizeTitle(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
