package chunk

// candidate is an evenly spaced window pattern.
type candidate struct {
	Period int
	First  int // start of the first window, may precede the mask
	Length int
	Count  int

	occurrences int
}

type candidateKey struct {
	period, first, length, count int
}

func (c *candidate) key() candidateKey {
	return candidateKey{c.Period, c.First, c.Length, c.Count}
}

// windows materializes the candidate clipped to [0, n).
func (c *candidate) windows(n int) Set {
	out := make(Set, 0, c.Count)
	for k := range c.Count {
		start := c.First + k*c.Period
		end := min(start+c.Length, n)
		start = max(start, 0)
		if end > start {
			out = append(out, Chunk{Offset: start, Length: end - start})
		}
	}
	return out
}

// score holds the error counts of a candidate projected over a mask.
type score struct {
	FalseNegatives int // set samples outside every window
	FalsePositives int // unset samples inside a window
}

// scorer evaluates candidates against one mask with prefix sums.
type scorer struct {
	prefix []int
}

func newScorer(mask []bool) scorer {
	prefix := make([]int, len(mask)+1)
	for i, v := range mask {
		prefix[i+1] = prefix[i]
		if v {
			prefix[i+1]++
		}
	}
	return scorer{prefix: prefix}
}

func (s scorer) score(c *candidate) score {
	n := len(s.prefix) - 1
	inside, covered := 0, 0
	for _, w := range c.windows(n) {
		inside += s.prefix[w.End()] - s.prefix[w.Offset]
		covered += w.Length
	}
	return score{
		FalseNegatives: s.prefix[n] - inside,
		FalsePositives: covered - inside,
	}
}

// enumerator collects candidates in discovery order, merging duplicates.
type enumerator struct {
	spanStart, spanEnd int
	list               []*candidate
	index              map[candidateKey]int
	best               int
	minPeriod          int
}

func newEnumerator(spanStart, spanEnd int) *enumerator {
	return &enumerator{
		spanStart: spanStart,
		spanEnd:   spanEnd,
		index:     make(map[candidateKey]int),
		minPeriod: spanEnd - spanStart,
	}
}

// add projects a window anchored at anchor with the given period over the
// span and records it.
func (e *enumerator) add(period, anchor, length int) {
	if period <= 0 || length > period {
		return
	}

	first := anchor
	for first-period+length > e.spanStart {
		first -= period
	}
	count := 0
	for first+count*period < e.spanEnd {
		count++
	}

	c := &candidate{Period: period, First: first, Length: length, Count: count}
	if i, ok := e.index[c.key()]; ok {
		c = e.list[i]
	} else {
		e.index[c.key()] = len(e.list)
		e.list = append(e.list, c)
	}

	c.occurrences++
	e.best = max(e.best, c.occurrences)
	e.minPeriod = min(e.minPeriod, period)
}

// Detect infers the periodic chunk layout of mask.
//
// The result is a best-effort heuristic: initial runs are paired to
// propose (period, offset, length) patterns, the frequent ones are scored
// by false negatives and then false positives, and the first discovered of
// the best is materialized. A mask with no set samples yields an empty Set.
func Detect(mask []bool) Set {
	initial := Edges(mask)
	if len(initial) == 0 {
		return Set{}
	}

	candidates := enumerate(initial)
	return choose(newScorer(mask), candidates).windows(len(mask))
}

func enumerate(initial Set) []*candidate {
	spanStart := initial[0].Offset
	spanEnd := initial[len(initial)-1].End()
	span := spanEnd - spanStart

	e := newEnumerator(spanStart, spanEnd)
	e.add(span, spanStart, span)

	for gap := 1; gap < len(initial); gap++ {
		for i := 0; i+gap < len(initial); i++ {
			a, b := initial[i], initial[i+gap]
			length := max(a.Length, b.Length)
			e.add(b.Offset-a.Offset, a.Offset, length)
			e.add(b.End()-a.End(), a.End()-length, length)
		}

		if e.best > span/((gap+1)*e.minPeriod) {
			break
		}
	}

	return e.list
}

func choose(s scorer, candidates []*candidate) *candidate {
	best := 0
	for _, c := range candidates {
		best = max(best, c.occurrences)
	}
	// Once any pattern repeats, patterns seen only once are left out; the
	// span-wide merge is one of them.
	threshold := max((best+1)/2, min(best, 2))

	var (
		winner      *candidate
		winnerScore score
	)
	for _, c := range candidates {
		if c.occurrences < threshold {
			continue
		}
		sc := s.score(c)
		if winner == nil || better(sc, winnerScore) {
			winner, winnerScore = c, sc
		}
	}
	return winner
}

// better orders scores by false negatives, then false positives. Equal
// scores keep the earlier candidate.
func better(a, b score) bool {
	if a.FalseNegatives != b.FalseNegatives {
		return a.FalseNegatives < b.FalseNegatives
	}
	return a.FalsePositives < b.FalsePositives
}
