package structure

import (
	"strconv"
	"strings"
)

var romanValues = map[rune]int{
	'I': 1, 'V': 5, 'X': 10, 'L': 50,
	'C': 100, 'D': 500, 'M': 1000,
}

// RomanToInt converts a Roman numeral by scanning right to left and subtracting
// any symbol smaller than the one to its right. Unknown symbols count as 0.
// Non-canonical forms (IIII, IC) are accepted without validation.
func RomanToInt(s string) int {
	runes := []rune(strings.ToUpper(s))
	total, prev := 0, 0
	for i := len(runes) - 1; i >= 0; i-- {
		v := romanValues[runes[i]]
		if v < prev {
			total -= v
		} else {
			total += v
		}
		prev = v
	}
	return total
}

// chapterNumber converts a chapter numeral that is either Arabic or Roman.
func chapterNumber(s string) int {
	if s != "" && s[0] >= '0' && s[0] <= '9' {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0
		}
		return n
	}
	return RomanToInt(s)
}
