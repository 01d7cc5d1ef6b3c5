package engine

import "github.com/MeKo-Tech/bubbletrans/internal/lang"

// TesseractConfig configures the fallback engine. Languages holds Tesseract
// codes (e.g. "jpn"); when empty the codes are derived from the requested languages.
type TesseractConfig struct {
	Languages []string
	// Variables are passed to the Tesseract client as-is.
	Variables map[string]string
}

// tesseractLanguages resolves the Tesseract codes for a recognition request.
func tesseractLanguages(cfg TesseractConfig, langs []string) []string {
	if len(cfg.Languages) > 0 {
		return cfg.Languages
	}
	var out []string
	seen := map[string]bool{}
	for _, l := range langs {
		if code, ok := lang.TesseractCode(l); ok && !seen[code] {
			seen[code] = true
			out = append(out, code)
		}
	}
	if len(out) == 0 {
		out = []string{"eng"}
	}
	return out
}
