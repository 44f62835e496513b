package numbering

import (
	"fmt"
	"strconv"
	"strings"
)

// Resolver generates labels for list-numbered paragraphs that carry no
// textual marker. It keeps one running counter per level; counters reset
// when the active list id changes, and counters deeper than the current
// level are discarded so siblings restart at 1 after a shallower sibling
// advances.
type Resolver struct {
	counters  map[int]int
	lastNumID string
}

func NewResolver() *Resolver {
	return &Resolver{counters: make(map[int]int)}
}

// Next advances the counter for (numID, level) and returns the generated
// label: level 0 arabic + ".", level 1 uppercase letters, level 2 lowercase
// roman in parens, deeper levels arabic in parens.
func (r *Resolver) Next(numID string, level int) string {
	if numID != r.lastNumID {
		r.counters = make(map[int]int)
		r.lastNumID = numID
	}
	for l := range r.counters {
		if l > level {
			delete(r.counters, l)
		}
	}
	r.counters[level]++
	return listLabel(level, r.counters[level])
}

func listLabel(level, count int) string {
	switch level {
	case 0:
		return strconv.Itoa(count) + "."
	case 1:
		if count <= 26 {
			return string(rune('A'+count-1)) + "."
		}
		return fmt.Sprintf("A%d.", count-26)
	case 2:
		return "(" + strings.ToLower(toRoman(count)) + ")"
	default:
		return fmt.Sprintf("(%d)", count)
	}
}

var romanValues = []struct {
	value  int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

func toRoman(n int) string {
	var b strings.Builder
	for _, rv := range romanValues {
		for n >= rv.value {
			b.WriteString(rv.symbol)
			n -= rv.value
		}
	}
	return b.String()
}
