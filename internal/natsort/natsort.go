// Package natsort provides numeric-aware string comparison so that
// "page2.jpg" orders before "page10.jpg".
package natsort

// Compare orders two strings the way humans expect: runs of ASCII digits
// are compared by numeric value, everything else byte-by-byte after ASCII
// case folding. Returns -1, 0, or 1.
//
// The order is total: strings that differ only in case are tied on the
// folded comparison and broken by an exact byte comparison, so repeated
// sorts of the same inputs always produce the same sequence.
func Compare(a, b string) int {
	ia, ib := 0, 0
	for ia < len(a) && ib < len(b) {
		ca, cb := a[ia], b[ib]

		if isDigit(ca) && isDigit(cb) {
			// Compare the full digit runs numerically.
			sa, ea := digitRun(a, ia)
			sb, eb := digitRun(b, ib)

			if c := compareNumeric(a[sa:ea], b[sb:eb]); c != 0 {
				return c
			}
			ia, ib = ea, eb
			continue
		}

		fa, fb := foldASCII(ca), foldASCII(cb)
		if fa != fb {
			if fa < fb {
				return -1
			}
			return 1
		}
		ia++
		ib++
	}

	// One string is a prefix of the other (after folding).
	switch {
	case len(a)-ia < len(b)-ib:
		return -1
	case len(a)-ia > len(b)-ib:
		return 1
	}

	// Equal under folding; break the tie on exact bytes for stability.
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Less reports whether a orders before b. Convenience for sort.Slice.
func Less(a, b string) bool {
	return Compare(a, b) < 0
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func foldASCII(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// digitRun returns the bounds of the digit run starting at i.
func digitRun(s string, i int) (start, end int) {
	start = i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return start, i
}

// compareNumeric compares two digit strings by numeric value without
// converting to integers, so arbitrarily long runs never overflow.
func compareNumeric(a, b string) int {
	a = trimLeadingZeros(a)
	b = trimLeadingZeros(b)

	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func trimLeadingZeros(s string) string {
	i := 0
	for i < len(s)-1 && s[i] == '0' {
		i++
	}
	return s[i:]
}
