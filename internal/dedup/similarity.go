package dedup

import (
	"strings"
	"unicode"
)

// TitleSimilarity scores two titles in [0,1] using a longest-matching-block
// ratio (2*M/T over all non-overlapping matching blocks) on normalized
// forms. Returns 0 when either input or either normalized form is empty;
// identical titles score exactly 1.
func TitleSimilarity(title1, title2 string) float64 {
	if title1 == "" || title2 == "" {
		return 0
	}

	norm1 := normalizeTitle(title1)
	norm2 := normalizeTitle(title2)
	if norm1 == "" || norm2 == "" {
		return 0
	}
	if norm1 == norm2 {
		return 1
	}

	a, b := []rune(norm1), []rune(norm2)
	matched := newSequenceMatcher(a, b).matchingSize()
	return 2 * float64(matched) / float64(len(a)+len(b))
}

// normalizeTitle lower-cases and keeps only word characters and whitespace,
// collapsing whitespace runs to single spaces. CJK ideographs count as
// letters, so mixed-script titles survive intact.
func normalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// sequenceMatcher finds the total size of all non-overlapping matching
// blocks between two rune sequences: repeatedly take the longest common
// block (earliest in a, then earliest in b, on ties) and recurse into the
// regions before and after it.
type sequenceMatcher struct {
	a, b []rune
	b2j  map[rune][]int
}

func newSequenceMatcher(a, b []rune) *sequenceMatcher {
	m := &sequenceMatcher{a: a, b: b, b2j: make(map[rune][]int, len(b))}
	for j, r := range b {
		m.b2j[r] = append(m.b2j[r], j)
	}
	return m
}

type matchBlock struct {
	a, b, size int
}

func (m *sequenceMatcher) findLongestMatch(alo, ahi, blo, bhi int) matchBlock {
	besti, bestj, bestsize := alo, blo, 0

	// j2len[j] is the length of the longest common suffix of a[:i] and
	// b[:j+1]; rebuilt per row.
	j2len := make(map[int]int)
	for i := alo; i < ahi; i++ {
		newJ2len := make(map[int]int)
		for _, j := range m.b2j[m.a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			newJ2len[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = newJ2len
	}

	for besti > alo && bestj > blo && m.a[besti-1] == m.b[bestj-1] {
		besti, bestj, bestsize = besti-1, bestj-1, bestsize+1
	}
	for besti+bestsize < ahi && bestj+bestsize < bhi && m.a[besti+bestsize] == m.b[bestj+bestsize] {
		bestsize++
	}
	return matchBlock{besti, bestj, bestsize}
}

func (m *sequenceMatcher) matchingSize() int {
	type region struct {
		alo, ahi, blo, bhi int
	}

	total := 0
	stack := []region{{0, len(m.a), 0, len(m.b)}}
	for len(stack) > 0 {
		r := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		best := m.findLongestMatch(r.alo, r.ahi, r.blo, r.bhi)
		if best.size == 0 {
			continue
		}
		total += best.size
		if r.alo < best.a && r.blo < best.b {
			stack = append(stack, region{r.alo, best.a, r.blo, best.b})
		}
		if best.a+best.size < r.ahi && best.b+best.size < r.bhi {
			stack = append(stack, region{best.a + best.size, r.ahi, best.b + best.size, r.bhi})
		}
	}
	return total
}
