// SPDX-License-Identifier: MPL-2.0

package restrict

import (
	"testing"
)

func even() Restrict[int]     { return Func("even", func(n int) bool { return n%2 == 0 }) }
func positive() Restrict[int] { return Func("positive", func(n int) bool { return n > 0 }) }

func TestCombinators(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		r    Restrict[int]
		want map[int]bool
		str  string
	}{
		{"and", And(even(), positive()), map[int]bool{2: true, -2: false, 3: false}, "(even && positive)"},
		{"or", Or(even(), positive()), map[int]bool{2: true, -2: true, 3: true, -3: false}, "(even || positive)"},
		{"xor", Xor(even(), positive()), map[int]bool{2: false, -2: true, 3: true, -3: false}, "(even ^^ positive)"},
		{"not", Not(even()), map[int]bool{1: true, 2: false}, "!even"},
		{"double not", Not(Not(even())), map[int]bool{1: false, 2: true}, "even"},
		{"empty and", And[int](), map[int]bool{0: true, 1: true}, "true"},
		{"empty or", Or[int](), map[int]bool{0: false, 1: false}, "false"},
		{"single and", And(even()), map[int]bool{2: true, 1: false}, "even"},
		{"nested and", And(even(), And(positive(), True[int]())), map[int]bool{2: true, -2: false}, "(even && positive && true)"},
		{"nested or", Or(Or(even(), False[int]()), positive()), map[int]bool{-3: false, 1: true}, "(even || false || positive)"},
		{"not and", Not(And(even(), positive())), map[int]bool{2: false, -2: true}, "!(even && positive)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.r.String(); got != tt.str {
				t.Errorf("String() = %q, want %q", got, tt.str)
			}
			for v, want := range tt.want {
				if got := tt.r.Matches(v); got != want {
					t.Errorf("Matches(%d) = %v, want %v", v, got, want)
				}
			}
		})
	}
}

func TestXor_AllOrNone(t *testing.T) {
	t.Parallel()

	r := Xor(True[int](), True[int](), True[int]())
	if r.Matches(0) {
		t.Error("Xor of all-true matched")
	}
	r = Xor(False[int](), False[int]())
	if r.Matches(0) {
		t.Error("Xor of all-false matched")
	}
	r = Xor(False[int](), False[int](), True[int]())
	if !r.Matches(0) {
		t.Error("Xor with a single true did not match")
	}
}

func TestStr(t *testing.T) {
	t.Parallel()

	re, err := Regex(`^lib\d`)
	if err != nil {
		t.Fatalf("Regex() error: %v", err)
	}

	tests := []struct {
		name  string
		r     Str
		match []string
		miss  []string
		str   string
	}{
		{"equal", Equal("abc"), []string{"abc"}, []string{"ab", "abcd"}, `== "abc"`},
		{"prefix", Prefix("ab"), []string{"ab", "abc"}, []string{"cab"}, `prefix "ab"`},
		{"suffix", Suffix("bc"), []string{"bc", "abc"}, []string{"bca"}, `suffix "bc"`},
		{"substr", Substr("b"), []string{"b", "abc"}, []string{"ac"}, `substr "b"`},
		{"regex", re, []string{"lib2", "lib9x"}, []string{"libx", "xlib2"}, `=~ "^lib\d"`},
		{"quote fallback", Equal(`say "hi"`), []string{`say "hi"`}, nil, `== 'say "hi"'`},
		{"length at least", Length(3, 0, 1), []string{"abc", "abcd"}, []string{"ab"}, "len >= 3"},
		{"length less", Length(2, -1, -1), []string{"", "a"}, []string{"ab"}, "len < 2"},
		{"length differs", Length(1, 1, -1), []string{"", "ab"}, []string{"a"}, "len != 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.r.String(); got != tt.str {
				t.Errorf("String() = %q, want %q", got, tt.str)
			}
			for _, v := range tt.match {
				if !tt.r.Matches(v) {
					t.Errorf("Matches(%q) = false, want true", v)
				}
			}
			for _, v := range tt.miss {
				if tt.r.Matches(v) {
					t.Errorf("Matches(%q) = true, want false", v)
				}
			}
		})
	}
}

func TestRegex_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := Regex("("); err == nil {
		t.Error("Regex(\"(\") succeeded, want error")
	}
}
