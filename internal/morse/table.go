// internal/morse/table.go
// Package morse implements the International Morse Code table: bidirectional
// character/representation lookup, a hash-indexed fast path, and the
// procedural-sign and phonetic-alphabet side tables.
package morse

import "errors"

// MaxRepLen is the longest representation in the table (International
// Morse never needs more than 7 elements).
const MaxRepLen = 7

var (
	// ErrRepTooLong indicates a representation longer than MaxRepLen.
	ErrRepTooLong = errors.New("representation exceeds max length")
	// ErrRepEmpty indicates an empty representation.
	ErrRepEmpty = errors.New("representation is empty")
	// ErrRepInvalidChar indicates a representation contains something other than '.' or '-'.
	ErrRepInvalidChar = errors.New("representation contains characters other than '.' or '-'")
)

// Entry is one fixed character/representation pair.
type Entry struct {
	Char byte
	Rep  string
}

// table is the linear, compile-time representation of International Morse.
// Ordered roughly letters, digits, punctuation - matches the way the
// teacher's original tree decoder laid out its MorseTree as a flat literal
// with a comment per line, just keyed by representation instead of tree
// index.
var table = []Entry{
	{'A', ".-"}, {'B', "-..."}, {'C', "-.-."}, {'D', "-.."}, {'E', "."},
	{'F', "..-."}, {'G', "--."}, {'H', "...."}, {'I', ".."}, {'J', ".---"},
	{'K', "-.-"}, {'L', ".-.."}, {'M', "--"}, {'N', "-."}, {'O', "---"},
	{'P', ".--."}, {'Q', "--.-"}, {'R', ".-."}, {'S', "..."}, {'T', "-"},
	{'U', "..-"}, {'V', "...-"}, {'W', ".--"}, {'X', "-..-"}, {'Y', "-.--"},
	{'Z', "--.."},
	{'0', "-----"}, {'1', ".----"}, {'2', "..---"}, {'3', "...--"}, {'4', "....-"},
	{'5', "....."}, {'6', "-...."}, {'7', "--..."}, {'8', "---.."}, {'9', "----."},
	{'.', ".-.-.-"}, {',', "--..--"}, {'?', "..--.."}, {'\'', ".----."},
	{'!', "-.-.--"}, {'/', "-..-."}, {'(', "-.--."}, {')', "-.--.-"},
	{'&', ".-..."}, {':', "---..."}, {';', "-.-.-."}, {'=', "-...-"},
	{'+', ".-.-."}, {'-', "-....-"}, {'_', "..--.-"}, {'"', ".-..-."},
	{'$', "...-..-"}, {'@', ".--.-."},
}

// hashToChar is the fast-lookup array of spec.md §4.1: indexed by Hash(rep),
// valid hashes are in [2, 255]. Built once at init from table.
var hashToChar [256]byte

// forward is the character -> representation map used by
// CharacterToRepresentation; built once at init, guaranteeing L2 (injective
// forward mapping) because the literal table above assigns each character at
// most one representation.
var forward map[byte]string

func init() {
	forward = make(map[byte]string, len(table))
	for _, e := range table {
		forward[e.Char] = e.Rep
		if h, ok := Hash(e.Rep); ok {
			hashToChar[h] = e.Char
		}
	}
}

// Hash encodes a representation of length 1..MaxRepLen into the [2,255]
// domain of spec.md §4.1: a leading sentinel 1 bit followed by one bit per
// element ('.'=0, '-'=1). Returns ok=false for invalid representations.
func Hash(rep string) (uint8, bool) {
	if len(rep) == 0 || len(rep) > MaxRepLen {
		return 0, false
	}
	h := uint(1)
	for i := 0; i < len(rep); i++ {
		switch rep[i] {
		case '.':
			h = h << 1
		case '-':
			h = h<<1 | 1
		default:
			return 0, false
		}
	}
	return uint8(h), true
}

// upper uppercases ASCII letters; the table and all lookups are
// case-insensitive by uppercasing client input (spec.md §6).
func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

// CharacterToRepresentation returns the representation for c, if any.
func CharacterToRepresentation(c byte) (string, bool) {
	rep, ok := forward[upper(c)]
	return rep, ok
}

// RepresentationToCharacter returns the character for rep using the
// hash-indexed fast path, rejecting malformed representations per spec.md
// §4.1 (anything but '.'/'-', or longer than MaxRepLen).
func RepresentationToCharacter(rep string) (byte, bool) {
	h, ok := Hash(rep)
	if !ok {
		return 0, false
	}
	c := hashToChar[h]
	if c == 0 {
		return 0, false
	}
	return c, true
}

// representationToCharacterLinear is the reference linear scan used only by
// tests to check hash-lookup/linear-scan agreement (spec.md §4.1 testable
// property).
func representationToCharacterLinear(rep string) (byte, bool) {
	for _, e := range table {
		if e.Rep == rep {
			return e.Char, true
		}
	}
	return 0, false
}

// CharacterIsValid reports whether c has a representation in the table.
func CharacterIsValid(c byte) bool {
	_, ok := forward[upper(c)]
	return ok
}

// RepresentationIsValid reports whether rep is well-formed (alphabet and
// length), independent of whether it maps to a known character - spec.md
// §3 notes some representations are valid but unused.
func RepresentationIsValid(rep string) bool {
	_, ok := Hash(rep)
	return ok
}

// StringIsValid reports whether every character of s has a representation.
func StringIsValid(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' {
			continue
		}
		if !CharacterIsValid(s[i]) {
			return false
		}
	}
	return true
}

// ListCharacters returns every character with a representation, in table
// order.
func ListCharacters() string {
	out := make([]byte, 0, len(table))
	for _, e := range table {
		out = append(out, e.Char)
	}
	return string(out)
}

// CharacterCount returns the number of characters with a representation.
func CharacterCount() int {
	return len(table)
}
