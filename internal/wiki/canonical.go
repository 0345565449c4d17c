package wiki

import "strings"

// Canonicalise maps a free-form wiki target to the relative path of the file
// it names: ASCII-lowercased, apostrophes removed, runs of ASCII whitespace
// joined by a single underscore, prefixed with "./" and suffixed with ".ext".
//
//	Canonicalise("Hello World", "html") == "./hello_world.html"
func Canonicalise(target, ext string) string {
	return "./" + Basename(target, ext)
}

// Basename is Canonicalise without the leading "./".
func Basename(target, ext string) string {
	return slug(target) + "." + ext
}

func slug(target string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '\'':
			return -1
		case 'A' <= r && r <= 'Z':
			return r + ('a' - 'A')
		}
		return r
	}, target)
	return strings.Join(strings.FieldsFunc(s, isASCIISpace), "_")
}

func isASCIISpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\f', '\r':
		return true
	}
	return false
}
