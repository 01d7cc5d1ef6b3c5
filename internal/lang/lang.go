// Package lang holds the language table shared by recognition and translation.
package lang

import (
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Supported language codes.
const (
	Japanese = "ja"
	Korean   = "ko"
	Chinese  = "zh"
	English  = "en"
	Russian  = "ru"
)

// Supported lists the languages the pipeline accepts, in display order.
var Supported = []string{Japanese, Korean, Chinese, English, Russian}

var tesseractCodes = map[string]string{
	Japanese: "jpn",
	Korean:   "kor",
	Chinese:  "chi_sim",
	English:  "eng",
	Russian:  "rus",
}

// Normalize lowercases a code and reduces region-qualified tags to their base
// language ("zh-CN" becomes "zh"). Unknown input is returned lowercased.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	base, _ := tag.Base()
	return base.String()
}

// IsSupported reports whether code names a supported language.
func IsSupported(code string) bool {
	_, ok := tesseractCodes[Normalize(code)]
	return ok
}

// IsCJK reports whether code is Chinese, Japanese or Korean.
func IsCJK(code string) bool {
	switch Normalize(code) {
	case Japanese, Korean, Chinese:
		return true
	}
	return false
}

// AnyCJK reports whether any of codes is a CJK language.
func AnyCJK(codes []string) bool {
	for _, c := range codes {
		if IsCJK(c) {
			return true
		}
	}
	return false
}

// TesseractCode maps a language code to its Tesseract traineddata name.
func TesseractCode(code string) (string, bool) {
	c, ok := tesseractCodes[Normalize(code)]
	return c, ok
}

// ProviderTag returns the tag sent to translation providers. Chinese is sent
// as Simplified Chinese (zh-CN).
func ProviderTag(code string) string {
	n := Normalize(code)
	if n == Chinese {
		return "zh-CN"
	}
	return n
}

// DisplayName returns the English name of a language, or the code itself when unknown.
func DisplayName(code string) string {
	tag, err := language.Parse(ProviderTag(code))
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}

// DetectScript guesses the language of s from the scripts of its letters.
// Kana implies Japanese, Hangul Korean, Han without kana Chinese, Cyrillic
// Russian and Latin English. Returns "" when s has no letters.
func DetectScript(s string) string {
	var han, kana, hangul, cyrillic, latin int
	for _, r := range s {
		switch {
		case unicode.In(r, unicode.Hiragana, unicode.Katakana):
			kana++
		case unicode.Is(unicode.Hangul, r):
			hangul++
		case unicode.Is(unicode.Han, r):
			han++
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		case unicode.Is(unicode.Latin, r):
			latin++
		}
	}
	switch {
	case kana > 0:
		return Japanese
	case hangul > 0 && hangul >= han:
		return Korean
	case han > 0:
		return Chinese
	case cyrillic > 0 && cyrillic >= latin:
		return Russian
	case latin > 0:
		return English
	}
	return ""
}
