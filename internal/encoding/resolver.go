// Package encoding resolves the text encoding of raw CSV bytes.
//
// Brazilian fiscal exports arrive in a mix of UTF-8, Windows-1252 and
// ISO-8859-1, frequently without any reliable marker. Resolve therefore never
// fails: statistical detection runs first, and when it is inconclusive the
// fixed candidate list is trial-decoded until one produces clean text.
// ISO-8859-1 accepts any byte sequence, so it doubles as the last resort.
package encoding

import (
	"bytes"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
)

// Charset labels for the supported encodings. Names follow IANA conventions
// so they can be reported verbatim in metadata.
const (
	UTF8        = "utf-8"
	UTF16LE     = "utf-16le"
	UTF16BE     = "utf-16be"
	Latin1      = "iso-8859-1"
	Windows1252 = "windows-1252"
)

// Tuning knobs for the resolver. These are deliberate policy constants, not
// parity with the original exporter (which never documented its own).
const (
	// DefaultConfidenceThreshold is the minimum chardet confidence (0-100)
	// required to trust a statistical detection without trial decoding.
	DefaultConfidenceThreshold = 80

	// DefaultControlRatioCeiling is the maximum tolerated ratio of control
	// and replacement runes in decoded text. Above it the decode is treated
	// as garbled even though no decoder error occurred. Latin-1 maps the
	// 0x80-0x9F range to C1 controls, so this is what pushes Windows-1252
	// input past Latin-1 to the correct candidate.
	DefaultControlRatioCeiling = 0.01
)

// candidates is the trial-decode order: UTF-8 first, then the single-byte
// encodings common in the target locale. Latin-1 stays ahead of Windows-1252
// deliberately; the control-ratio guard rejects it when C1 bytes are present.
var candidates = []string{UTF8, Latin1, Windows1252}

// Guess is the resolver verdict for one byte sequence.
type Guess struct {
	Charset    string `json:"charset"`
	Confidence int    `json:"confidence"` // 0-100; 0 when reached by fallback
	Fallback   bool   `json:"fallback"`   // true when the last-resort path fired
}

// Resolver detects and decodes text encodings. The zero value is not usable;
// construct with NewResolver and override the thresholds if needed.
type Resolver struct {
	ConfidenceThreshold int
	ControlRatioCeiling float64

	detector *chardet.Detector
}

// NewResolver returns a Resolver with the default thresholds.
func NewResolver() *Resolver {
	return &Resolver{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		ControlRatioCeiling: DefaultControlRatioCeiling,
		detector:            chardet.NewTextDetector(),
	}
}

// Resolve determines the most likely encoding of data. It always returns a
// usable Guess; Decode with the returned charset cannot fail.
func (r *Resolver) Resolve(data []byte) Guess {
	if len(data) == 0 {
		return Guess{Charset: UTF8, Confidence: 100}
	}

	// Byte-order marks are authoritative.
	if g, ok := bomGuess(data); ok {
		return g
	}

	// Statistical pass.
	if res, err := r.detector.DetectBest(data); err == nil && res != nil {
		if cs, ok := canonicalCharset(res.Charset); ok && res.Confidence >= r.ConfidenceThreshold {
			if text, err := Decode(data, cs); err == nil && r.cleanText(text) {
				return Guess{Charset: cs, Confidence: res.Confidence}
			}
		}
	}

	// Trial-decode the fixed candidate list.
	for _, cs := range candidates {
		text, err := Decode(data, cs)
		if err != nil || !r.cleanText(text) {
			continue
		}
		return Guess{Charset: cs}
	}

	// Latin-1 decodes anything; accept possible mojibake over failing.
	return Guess{Charset: Latin1, Fallback: true}
}

// Decode converts data to UTF-8 text using the given charset label. Labels
// outside the supported set fall back to Latin-1, which cannot fail.
func Decode(data []byte, charset string) (string, error) {
	switch charset {
	case UTF8:
		data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
		if !utf8.Valid(data) {
			return "", &invalidUTF8Error{}
		}
		return string(data), nil
	case UTF16LE:
		dec := xunicode.UTF16(xunicode.LittleEndian, xunicode.UseBOM).NewDecoder()
		out, err := dec.Bytes(data)
		return string(out), err
	case UTF16BE:
		dec := xunicode.UTF16(xunicode.BigEndian, xunicode.UseBOM).NewDecoder()
		out, err := dec.Bytes(data)
		return string(out), err
	case Windows1252:
		out, err := charmap.Windows1252.NewDecoder().Bytes(data)
		return string(out), err
	default:
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		return string(out), err
	}
}

type invalidUTF8Error struct{}

func (*invalidUTF8Error) Error() string { return "invalid UTF-8 byte sequence" }

// cleanText reports whether decoded text stays under the control/replacement
// rune ceiling. Tabs and line endings do not count as control characters.
func (r *Resolver) cleanText(text string) bool {
	if text == "" {
		return true
	}
	var total, suspect int
	for _, ru := range text {
		total++
		switch {
		case ru == utf8.RuneError:
			suspect++
		case ru == '\t' || ru == '\n' || ru == '\r':
			// expected in delimited text
		case unicode.IsControl(ru):
			// includes the C1 range Latin-1 produces for 0x80-0x9F bytes
			suspect++
		}
	}
	return float64(suspect)/float64(total) <= r.ControlRatioCeiling
}

// bomGuess recognizes UTF-8/UTF-16 byte-order marks.
func bomGuess(data []byte) (Guess, bool) {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return Guess{Charset: UTF8, Confidence: 100}, true
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return Guess{Charset: UTF16LE, Confidence: 100}, true
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return Guess{Charset: UTF16BE, Confidence: 100}, true
	}
	return Guess{}, false
}

// canonicalCharset maps chardet's detector names onto the supported labels.
func canonicalCharset(name string) (string, bool) {
	switch strings.ToLower(name) {
	case "utf-8", "ascii":
		return UTF8, true
	case "utf-16le":
		return UTF16LE, true
	case "utf-16be":
		return UTF16BE, true
	case "iso-8859-1", "iso-8859-15":
		return Latin1, true
	case "windows-1252", "cp1252":
		return Windows1252, true
	}
	return "", false
}
