// internal/morse/prosigns.go
package morse

// Prosign is a procedural signal: a run-together group of Morse elements
// conventionally sent (and often printed) as a single unit, e.g. AR ("+")
// sent as ".-.-.".
//
// Table shape follows the teacher's original adaptive decoder's
// CommonPatterns convention (struct slice, one literal per line, comment
// giving the elements) adapted from ad hoc Q-code/greeting strings to the
// canonical ITU procedural signs.
type Prosign struct {
	Char            byte   // the character this prosign is keyed by in LookupProcedural
	Expansion       string // human-readable expansion, e.g. "end of message"
	UsuallyExpanded bool   // true if operators conventionally write out the expansion rather than the sign
}

// prosigns keys by an ASCII byte so callers pass e.g. '+' for AR, '*' for
// SK, reflecting the printed convention for each sign.
var prosigns = map[byte]Prosign{
	'+': {Char: '+', Expansion: "end of message (AR)", UsuallyExpanded: false},
	'*': {Char: '*', Expansion: "end of contact / out (SK)", UsuallyExpanded: false},
	'#': {Char: '#', Expansion: "break / new message section (BT)", UsuallyExpanded: true},
	'<': {Char: '<', Expansion: "invitation to transmit (KN)", UsuallyExpanded: true},
	'>': {Char: '>', Expansion: "wait (AS)", UsuallyExpanded: true},
	'%': {Char: '%', Expansion: "error / correction (HH)", UsuallyExpanded: true},
	'^': {Char: '^', Expansion: "understood (SN / VE)", UsuallyExpanded: true},
	'~': {Char: '~', Expansion: "starting signal / attention (KA)", UsuallyExpanded: true},
}

// LookupProcedural returns the expansion for a procedural-sign character and
// whether operators usually expand it when printing.
func LookupProcedural(c byte) (expansion string, usuallyExpanded bool, ok bool) {
	p, ok := prosigns[c]
	if !ok {
		return "", false, false
	}
	return p.Expansion, p.UsuallyExpanded, true
}

// phonetics is the ITU/NATO phonetic alphabet, a map from the upper-case
// character it spells to its word.
var phonetics = map[byte]string{
	'A': "Alfa", 'B': "Bravo", 'C': "Charlie", 'D': "Delta", 'E': "Echo",
	'F': "Foxtrot", 'G': "Golf", 'H': "Hotel", 'I': "India", 'J': "Juliett",
	'K': "Kilo", 'L': "Lima", 'M': "Mike", 'N': "November", 'O': "Oscar",
	'P': "Papa", 'Q': "Quebec", 'R': "Romeo", 'S': "Sierra", 'T': "Tango",
	'U': "Uniform", 'V': "Victor", 'W': "Whiskey", 'X': "X-ray", 'Y': "Yankee",
	'Z': "Zulu",
	'0': "Zero", '1': "One", '2': "Two", '3': "Three", '4': "Four",
	'5': "Five", '6': "Six", '7': "Seven", '8': "Eight", '9': "Nine",
}

// LookupPhonetic returns the phonetic-alphabet word for c, if any.
func LookupPhonetic(c byte) (string, bool) {
	word, ok := phonetics[upper(c)]
	return word, ok
}
