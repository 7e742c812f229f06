package morse

import (
	"testing"

	"pgregory.net/rapid"
)

func TestCharacterToRepresentationRoundtrip(t *testing.T) {
	for _, e := range table {
		rep, ok := CharacterToRepresentation(e.Char)
		if !ok {
			t.Fatalf("CharacterToRepresentation(%q) not found", e.Char)
		}
		if rep != e.Rep {
			t.Fatalf("CharacterToRepresentation(%q) = %q, want %q", e.Char, rep, e.Rep)
		}
		c, ok := RepresentationToCharacter(rep)
		if !ok {
			t.Fatalf("RepresentationToCharacter(%q) not found", rep)
		}
		if c != e.Char {
			t.Fatalf("RepresentationToCharacter(%q) = %q, want %q", rep, c, e.Char)
		}
	}
}

func TestCharacterToRepresentationLowercase(t *testing.T) {
	rep, ok := CharacterToRepresentation('a')
	if !ok || rep != ".-" {
		t.Fatalf("CharacterToRepresentation('a') = (%q, %v), want (\".-\", true)", rep, ok)
	}
}

func TestRepresentationToCharacterInvalid(t *testing.T) {
	cases := []string{"", "x", ".x", "--------", ".-.-.-.-"}
	for _, rep := range cases {
		if _, ok := RepresentationToCharacter(rep); ok {
			t.Errorf("RepresentationToCharacter(%q) = ok, want rejected", rep)
		}
	}
}

func TestHashRangeAndAgreementWithLinearScan(t *testing.T) {
	for _, e := range table {
		h, ok := Hash(e.Rep)
		if !ok {
			t.Fatalf("Hash(%q) rejected a table entry", e.Rep)
		}
		if h < 2 || h > 255 {
			t.Fatalf("Hash(%q) = %d, out of [2,255]", e.Rep, h)
		}
		want, wantOK := representationToCharacterLinear(e.Rep)
		got, gotOK := RepresentationToCharacter(e.Rep)
		if got != want || gotOK != wantOK {
			t.Fatalf("hash lookup disagrees with linear scan for %q: hash=(%q,%v) linear=(%q,%v)",
				e.Rep, got, gotOK, want, wantOK)
		}
	}
}

func TestCharacterIsValid(t *testing.T) {
	if !CharacterIsValid('A') || !CharacterIsValid('a') {
		t.Error("CharacterIsValid('A'/'a') = false, want true")
	}
	if CharacterIsValid('~') {
		t.Error("CharacterIsValid('~') = true, want false")
	}
}

func TestStringIsValid(t *testing.T) {
	if !StringIsValid("HELLO WORLD") {
		t.Error("StringIsValid(\"HELLO WORLD\") = false, want true")
	}
	if StringIsValid("HELLO\x01") {
		t.Error("StringIsValid with control byte = true, want false")
	}
}

func TestListCharactersAndCount(t *testing.T) {
	chars := ListCharacters()
	if len(chars) != CharacterCount() {
		t.Fatalf("len(ListCharacters())=%d != CharacterCount()=%d", len(chars), CharacterCount())
	}
	if CharacterCount() != len(table) {
		t.Fatalf("CharacterCount()=%d != len(table)=%d", CharacterCount(), len(table))
	}
}

// TestRapidHashInjectiveAcrossTable checks that Hash accepts every table
// representation and is injective across the fixed table (no two distinct
// table entries collide).
func TestRapidHashInjectiveAcrossTable(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seen := make(map[uint8]string)
		for _, e := range table {
			h, ok := Hash(e.Rep)
			if !ok {
				rt.Fatalf("Hash(%q) rejected", e.Rep)
			}
			if prev, dup := seen[h]; dup && prev != e.Rep {
				rt.Fatalf("hash collision: %q and %q both hash to %d", prev, e.Rep, h)
			}
			seen[h] = e.Rep
		}
	})
}

// genRep builds a random, possibly-invalid dot/dash-ish string to exercise
// Hash's validation boundary.
func genRep(t *rapid.T) string {
	n := rapid.IntRange(0, 9).Draw(t, "n")
	alphabet := rapid.SampledFrom([]byte{'.', '-', 'x'})
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet.Draw(t, "c")
	}
	return string(b)
}

func TestRapidHashRejectsOutOfDomain(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		rep := genRep(rt)
		h, ok := Hash(rep)
		valid := len(rep) >= 1 && len(rep) <= MaxRepLen
		for i := 0; valid && i < len(rep); i++ {
			if rep[i] != '.' && rep[i] != '-' {
				valid = false
			}
		}
		if ok != valid {
			rt.Fatalf("Hash(%q) ok=%v, want %v", rep, ok, valid)
		}
		if ok && (h < 2 || h > 255) {
			rt.Fatalf("Hash(%q) = %d out of [2,255]", rep, h)
		}
	})
}

func TestLookupProceduralAndPhonetic(t *testing.T) {
	if _, _, ok := LookupProcedural('+'); !ok {
		t.Error("LookupProcedural('+') not found, want AR")
	}
	if _, _, ok := LookupProcedural('q'); ok {
		t.Error("LookupProcedural('q') found, want not-found")
	}
	if word, ok := LookupPhonetic('a'); !ok || word != "Alfa" {
		t.Errorf("LookupPhonetic('a') = (%q, %v), want (\"Alfa\", true)", word, ok)
	}
}
