package token

import (
	"strings"
	"testing"
)

func texts(toks []Token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Text
	}
	return out
}

func TestTokenizeClassChange(t *testing.T) {
	tests := []struct {
		name string
		in   string
		cfg  Config
		want []string
	}{
		{
			name: "simple path",
			in:   "alpha/module1/mem/i0",
			cfg:  Config{SplitMethod: ClassChange, MinTokenLen: 2},
			want: []string{"alpha", "module", "mem"},
		},
		{
			name: "lowercasing",
			in:   "CPU/Core0",
			cfg:  Config{SplitMethod: ClassChange, MinTokenLen: 2},
			want: []string{"cpu", "core"},
		},
		{
			name: "all long tokens",
			in:   "chip_cpu_core",
			cfg:  Config{SplitMethod: ClassChange, MinTokenLen: 2},
			want: []string{"chip", "cpu", "core"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := texts(Tokenize(tt.in, tt.cfg))
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Tokenize(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMergeAbsorbsDelimitersUpToNextKeptToken(t *testing.T) {
	got := texts(Tokenize("ab/cd/efgh", Config{SplitMethod: ClassChange, MinTokenLen: 4}))
	want := []string{"ab/cd/", "efgh"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTokenizeCharMode(t *testing.T) {
	got := texts(Tokenize("ab", Config{SplitMethod: Char, MinTokenLen: 5}))
	want := []string{"a", "b"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMergedTokensAreLiteralSubstrings(t *testing.T) {
	inputs := []string{
		"alpha/module1/mem/i0",
		"beta/cache/bank0",
		"a/x/fail",
		"chip/cpu/core0",
		"x.y.z.1.2.3",
	}
	cfg := Config{SplitMethod: ClassChange, MinTokenLen: 3}

	for _, in := range inputs {
		lower := strings.ToLower(in)
		for _, tok := range Tokenize(in, cfg) {
			if !strings.Contains(lower, tok.Text) {
				t.Errorf("Tokenize(%q): token %q does not occur verbatim in source", in, tok.Text)
			}
		}
	}
}

func TestNoSingleCharRawTokensUnderClassChange(t *testing.T) {
	// "a" alone between delimiters is a single-character raw token and
	// must be dropped, not emitted as its own kept token; it can only
	// survive by being merged into a neighboring short-token run.
	toks := Tokenize("x/a/y", Config{SplitMethod: ClassChange, MinTokenLen: 1})
	for _, tok := range toks {
		if tok.Text == "a" {
			t.Fatalf("single-character raw token %q should never be kept standalone", tok.Text)
		}
	}
}

func TestOriginalIndexAscending(t *testing.T) {
	toks := Tokenize("alpha/module1/mem/i0", Config{SplitMethod: ClassChange, MinTokenLen: 2})
	for i := 1; i < len(toks); i++ {
		if toks[i].OriginalIndex <= toks[i-1].OriginalIndex {
			t.Errorf("OriginalIndex not ascending: %v", toks)
			break
		}
	}
}

func TestDuplicateTextsAllowed(t *testing.T) {
	toks := Tokenize("cpu/cpu/cpu", Config{SplitMethod: ClassChange, MinTokenLen: 2})
	count := 0
	for _, tok := range toks {
		if tok.Text == "cpu" {
			count++
		}
	}
	if count != 3 {
		t.Fatalf("expected 3 occurrences of 'cpu', got %d in %v", count, toks)
	}
}

func BenchmarkTokenize(b *testing.B) {
	cfg := DefaultConfig()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Tokenize("alpha/module1/mem/bank0/instance12", cfg)
	}
}
