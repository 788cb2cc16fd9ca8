package migrate

import (
	"strings"

	"github.com/mozillazg/go-pinyin"
)

var suffixFolds = []struct{ old, new string }{
	{"有限责任公司", "有限公司"},
	{"股份有限公司", "有限公司"},
	{"集团有限公司", "有限公司"},
	{"科技股份有限公司", "有限公司"},
	{"投资有限公司", "有限公司"},
	{"控股有限公司", "有限公司"},
	{"投资股份有限公司", "有限公司"},
	{"有限公司", "公司"},
	{"公司", ""},
}

var nameSeparators = []string{"、", "，", "；", ",", "."}

// ValidPair reports whether two counterparty names denote genuinely
// distinct entities. Disclosure tables are full of self-references and
// alias spellings of the same company ("X股份有限公司" vs "X有限公司",
// "X及其子公司" vs "X"); linking those would fold a company onto itself.
func ValidPair(a, b string) bool {
	if a == "" || b == "" {
		return false
	}

	a = stripGroupSuffix(a)
	b = stripGroupSuffix(b)
	if containsEither(a, b) || a == b {
		return false
	}
	if runeSubset(a, b) || runeSubset(b, a) {
		return false
	}

	a = canonical(a)
	b = canonical(b)
	if containsEither(a, b) || a == b {
		return false
	}
	if pinyinEqual(a, b) || pinyinEqual(b, a) {
		return false
	}
	if runeSubset(a, b) || runeSubset(b, a) {
		return false
	}
	return true
}

// pinyinEqual reports whether latin is the concatenated pinyin reading of
// hanzi. Source tables sometimes carry a romanized spelling of the same
// company ("宁德时代" vs "ningdeshidai") as a nominally distinct party.
func pinyinEqual(hanzi, latin string) bool {
	args := pinyin.NewArgs()
	args.Fallback = func(r rune, _ pinyin.Args) []string {
		return []string{string(r)}
	}
	joined := strings.Join(pinyin.LazyPinyin(hanzi, args), "")
	return strings.EqualFold(joined, latin)
}

// stripGroupSuffix drops "and its subsidiaries" style trailers.
func stripGroupSuffix(s string) string {
	s, _, _ = strings.Cut(s, "及子")
	s, _, _ = strings.Cut(s, "及其")
	return s
}

func canonical(s string) string {
	for _, f := range suffixFolds {
		s = strings.ReplaceAll(s, f.old, f.new)
	}
	s = stripGroupSuffix(s)
	s = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	for _, sep := range nameSeparators {
		s = strings.ReplaceAll(s, sep, "")
	}
	return s
}

func containsEither(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// runeSubset reports whether every rune of a, with multiplicity, occurs
// in b. Catches reordered spellings of the same name.
func runeSubset(a, b string) bool {
	counts := make(map[rune]int)
	for _, r := range b {
		counts[r]++
	}
	for _, r := range a {
		counts[r]--
		if counts[r] < 0 {
			return false
		}
	}
	return true
}
