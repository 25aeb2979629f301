package langdetect

import "testing"

func TestDetectISO6391SkipsShortSamples(t *testing.T) {
	t.Parallel()

	cases := []string{"", "   ", "ab 12", "!!! ???", "ab\ncd"}
	for _, sample := range cases {
		if got := DetectISO6391(sample); got != "" {
			t.Fatalf("expected empty code for %q, got %q", sample, got)
		}
	}
}
