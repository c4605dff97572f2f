package fonts

import (
	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
)

// shapeWidth measures text with HarfBuzz shaping. ok is false when the
// family has no shaping face.
func (r *Registry) shapeWidth(text, family string, size float64) (float64, bool) {
	face, err := r.shapingFace(family)
	if err != nil {
		return 0, false
	}
	runes := []rune(text)
	script := dominantScript(runes)
	dir := di.DirectionLTR
	if rtl[script] {
		dir = di.DirectionRTL
	}

	r.mu.Lock()
	out := (&shaping.HarfbuzzShaper{}).Shape(shaping.Input{
		Text:      runes,
		RunEnd:    len(runes),
		Direction: dir,
		Face:      face,
		Size:      fixed.Int26_6(size * 64),
		Script:    script,
		Language:  language.DefaultLanguage(),
	})
	r.mu.Unlock()

	var adv fixed.Int26_6
	for _, g := range out.Glyphs {
		adv += g.XAdvance
	}
	if adv < 0 {
		adv = -adv
	}
	return fixedToFloat(adv), true
}

var rtl = map[language.Script]bool{
	language.Arabic: true,
	language.Hebrew: true,
	language.Syriac: true,
	language.Thaana: true,
	language.Nko:    true,
}

// dominantScript is the most frequent script in runes, ignoring
// punctuation and digits. Latin when nothing else is found.
func dominantScript(runes []rune) language.Script {
	seen := make(map[language.Script]int)
	best, bestN := language.Latin, 0
	for _, r := range runes {
		s := language.LookupScript(r)
		switch s {
		case language.Common, language.Inherited, language.Unknown:
			continue
		}
		seen[s]++
		if seen[s] > bestN {
			best, bestN = s, seen[s]
		}
	}
	return best
}
