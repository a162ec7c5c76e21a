// Package categories holds the builtin label alphabets models can name in
// their config instead of shipping a categories.label file, plus the
// builtin corpus dictionary.
package categories

import (
	_ "embed"
	"sort"
	"sync"

	"golang.org/x/text/encoding/simplifiedchinese"
)

// Blank is the CTC blank token that leads every recognition alphabet.
const Blank = "_"

// BuiltinDict is the shipped corpus dictionary, one entry per line.
//
//go:embed builtin.dict
var BuiltinDict []byte

var (
	numeric     = split("0123456789")
	alpha       = split("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	operators   = []string{"(", ")", "+", "-", "×", "÷", "=", "?"}
	punctuation = []string{
		",", "，", ".", "。", "\"", "'", "“", "”", "‘", "’", "~", "-", "_", "@", "!", "#", "￥", "$", "%",
		"……", "^", "&", "*", "(", ")", "[", "]", "{", "}", "|", "<", ">", "?", ":", ";", "`", "=", "+",
		"/", "\\", "【", "】", "《", "》",
	}
)

var chinese2W = sync.OnceValue(func() []string {
	out := make([]string, 0, 0x9FA5-0x4E00)
	for r := rune(0x4E00); r < 0x9FA5; r++ {
		out = append(out, string(r))
	}
	return out
})

// chinese3755 is GB2312 level-1: rows 16..55, cells 1..94, minus the five
// unassigned trailing cells of row 55.
var chinese3755 = sync.OnceValue(func() []string {
	pairs := make([][2]byte, 0, 40*94)
	for c := 16; c < 56; c++ {
		for p := 1; p < 95; p++ {
			pairs = append(pairs, [2]byte{byte(c + 0xA0), byte(p + 0xA0)})
		}
	}
	pairs = pairs[:len(pairs)-5]
	dec := simplifiedchinese.GBK.NewDecoder()
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		b, err := dec.Bytes(p[:])
		if err != nil {
			continue
		}
		out = append(out, string(b))
	}
	sort.Strings(out)
	return out
})

var tables = map[string]func() []string{
	"Chinese2W":   func() []string { return join(chinese2W()) },
	"Chinese3755": func() []string { return join(chinese3755()) },
	"Numeric":     func() []string { return join(numeric) },
	"Alphabet":    func() []string { return join(alpha) },
	"AlphaNumeric": func() []string {
		return join(numeric, alpha)
	},
	"AlphaNumericLower": func() []string {
		return join(numeric, alpha[:len(alpha)/2])
	},
	"NumericOperators": func() []string {
		return join(numeric, operators)
	},
	"AlphaNumericOperators": func() []string {
		return join(numeric, alpha, operators)
	},
	"AlphaPunctuation": func() []string {
		return join(alpha, punctuation)
	},
	"OCR": func() []string {
		return join(numeric, alpha, chinese2W(), punctuation)
	},
	"DefaultObject": func() []string { return []string{"DefaultObject"} },
}

// Lookup returns a fresh copy of the named table.
func Lookup(name string) ([]string, bool) {
	f, ok := tables[name]
	if !ok {
		return nil, false
	}
	return f(), true
}

// Names lists the builtin table names, sorted.
func Names() []string {
	out := make([]string, 0, len(tables))
	for n := range tables {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func join(parts ...[]string) []string {
	n := 1
	for _, p := range parts {
		n += len(p)
	}
	out := make([]string, 0, n)
	out = append(out, Blank)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func split(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
