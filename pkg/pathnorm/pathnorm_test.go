package pathnorm

import "testing"

func TestNormalizeIdempotent(t *testing.T) {
	once := Normalize("/w/" + string(rune(0x00E9)) + ".md") // precomposed e-acute
	twice := Normalize(once)
	if once != twice {
		t.Fatalf("normalization not idempotent: %q != %q", once, twice)
	}
}

func TestEqualAcrossForms(t *testing.T) {
	precomposed := "/w/" + string(rune(0x00E9)) + ".md" // single code point U+00E9
	decomposed := "/w/e" + string(rune(0x0301)) + ".md" // 'e' + combining acute accent U+0301

	if precomposed == decomposed {
		t.Fatalf("test fixture is broken: the two forms must differ byte-for-byte")
	}
	if !Equal(precomposed, decomposed) {
		t.Fatalf("expected NFD and NFC forms of the same path to be equal")
	}
}
