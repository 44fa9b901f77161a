// Package normalize turns arbitrary file names into portable ones.
//
// Cyrillic letters are transliterated to Latin, accents are stripped, the
// result is lowercased and every character outside [a-z0-9] becomes an
// underscore. The extension is kept after a single dot. Normalize is
// deterministic and idempotent, and never returns a name containing a path
// separator.
package normalize

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fallback is returned for names that normalize to nothing.
const Fallback = "unnamed"

var transliteration = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "h", 'ґ': "g", 'д': "d", 'е': "e",
	'є': "ie", 'ё': "e", 'ж': "zh", 'з': "z", 'и': "y", 'і': "i", 'ї': "i",
	'й': "i", 'к': "k", 'л': "l", 'м': "m", 'н': "n", 'о': "o", 'п': "p",
	'р': "r", 'с': "s", 'т': "t", 'у': "u", 'ф': "f", 'х': "kh", 'ц': "ts",
	'ч': "ch", 'ш': "sh", 'щ': "shch", 'ъ': "", 'ы': "y", 'ь': "", 'э': "e",
	'ю': "iu", 'я': "ia",
	'ß': "ss", 'æ': "ae", 'œ': "oe", 'ø': "o", 'ł': "l", 'đ': "d", 'þ': "th",
}

// Normalize returns a filesystem-safe version of name.
func Normalize(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) {
		name = ""
	}

	stem, ext := split(name)
	stem = clean(stem)
	ext = clean(ext)

	if stem == "" {
		stem = Fallback
	}
	if ext == "" {
		return stem
	}
	return stem + "." + ext
}

func split(name string) (string, string) {
	idx := strings.LastIndexByte(name, '.')
	if idx <= 0 {
		return name, ""
	}
	return name[:idx], name[idx+1:]
}

func clean(s string) string {
	if s == "" {
		return ""
	}

	s = cases.Lower(language.Und).String(s)

	var b strings.Builder
	for _, r := range s {
		if latin, ok := transliteration[r]; ok {
			b.WriteString(latin)
			continue
		}
		b.WriteRune(r)
	}

	stripped, _, err := transform.String(stripMarks(), b.String())
	if err != nil {
		stripped = b.String()
	}

	b.Reset()
	for _, r := range stripped {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// stripMarks decomposes characters and drops the combining marks, so "é"
// becomes "e". A transformer is stateful and must not be shared.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
