package search

import (
	"strings"
	"testing"
)

func TestNormalizeFingerprint(t *testing.T) {
	got := NormalizeFingerprint("$total = $price * $qty;\n  return $total;")
	want := "$var=$var*$var;return$var;"
	if got != want {
		t.Errorf("NormalizeFingerprint = %q, want %q", got, want)
	}

	if NormalizeFingerprint("") != "" {
		t.Error("empty fingerprint should stay empty")
	}

	if NormalizeFingerprint("Foo BAR") != "foobar" {
		t.Errorf("expected lowercased collapse, got %q", NormalizeFingerprint("Foo BAR"))
	}
}

func TestRatio(t *testing.T) {
	if got := Ratio("abcabc", "abcabc"); got != 1.0 {
		t.Errorf("identical strings: got %v, want 1.0", got)
	}
	if got := Ratio("", "abc"); got != 0 {
		t.Errorf("empty side: got %v, want 0", got)
	}
	// "bcd" is the longest common block: 2*3/8.
	if got := Ratio("abcd", "bcde"); got != 0.75 {
		t.Errorf("Ratio(abcd, bcde) = %v, want 0.75", got)
	}
	if Ratio("abcd", "wxyz") != 0 {
		t.Error("disjoint strings should score 0")
	}
}

func TestRatioSymmetricOrdering(t *testing.T) {
	a := NormalizeFingerprint("if ($x > 0) { return $x; }")
	b := NormalizeFingerprint("if ($y > 0) { return $y; }")
	if got := Ratio(a, b); got != 1.0 {
		t.Errorf("variable-renamed copies should align fully, got %v", got)
	}
}

func TestExtractFragmentsWindows(t *testing.T) {
	code := strings.Join([]string{
		"result = fetch_orders(customer)",
		"total = sum(o.amount for o in result)",
		"discount = compute_discount(customer, total)",
		"return total - discount",
	}, "\n")

	fragments := ExtractFragments(code, 3, 25)
	if len(fragments) == 0 {
		t.Fatal("expected fragments from a 4-line body")
	}

	for _, f := range fragments {
		if f.EndLine-f.StartLine+1 < 3 {
			t.Errorf("fragment below minimum window: %+v", f)
		}
		if f.Code == "" {
			t.Error("fragment without code")
		}
	}

	// Full-body window must be present.
	found := false
	for _, f := range fragments {
		if f.StartLine == 0 && f.EndLine == 3 {
			found = true
		}
	}
	if !found {
		t.Error("expected the full 4-line window among fragments")
	}
}

func TestExtractFragmentsSkipsTrivial(t *testing.T) {
	if got := ExtractFragments("", 3, 25); got != nil {
		t.Errorf("empty code should yield nothing, got %v", got)
	}
	// Too little significant content per window.
	if got := ExtractFragments("a\nb\nc", 3, 25); len(got) != 0 {
		t.Errorf("trivial lines should yield nothing, got %v", got)
	}
}

func TestExtractFragmentsDeduplicates(t *testing.T) {
	block := "x = compute_value(input)\ny = normalize(x)\nz = persist(y)"
	code := block + "\n" + block

	fragments := ExtractFragments(code, 3, 25)
	seen := map[string]bool{}
	for _, f := range fragments {
		if seen[f.normalized] {
			t.Errorf("duplicate normalized fragment: %q", f.Code)
		}
		seen[f.normalized] = true
	}
}
