// Package uibuild selects the UI runtime files an object needs and copies
// them into the object's root.
package uibuild

import (
	"strings"

	"github.com/xlo-tools/xlo/internal/core/model"
)

// Selection is a set of glob patterns relative to the UI runtime directory.
// A path is selected when it matches an include and no exclude.
type Selection struct {
	Include []string
	Exclude []string
}

var basePatterns = []string{
	"index.html",
	"public/fonts.css",
	"public/nflc-logo2.jpg",
	"public/MaterialIcons-Regular*",
	"public/videogular*",
	"public/NotoSansUI-*",
	"public/LICENSE*.txt",
}

// scriptFonts maps a script family to the font bundle that renders it.
var scriptFonts = map[string]string{
	"arabic":         "public/NotoNaskhArabicUI-*",
	"bengali":        "public/NotoSansBengaliUI-*",
	"burmese":        "public/NotoSansMyanmarUI-*",
	"devanagari":     "public/NotoSansDevanagariUI-*",
	"ethiopic":       "public/NotoSansEthiopic-*",
	"gujarati":       "public/NotoSansGujaratiUI-*",
	"hanji":          "public/NotoSansTC-*",
	"hanji-jiantizi": "public/NotoSansSC-*",
	"jiantizi":       "public/NotoSansSC-*",
	"hebrew":         "public/NotoSansHebrew-*",
	"kana":           "public/NotoSansCJKjp-*",
	"korean":         "public/NotoSansKR-*",
	"nastaliq":       "public/NotoNastaliqUrdu-*",
	"tamil":          "public/NotoSansTamilUI-*",
	"thai":           "public/NotoSansThaiUI-*",
}

var aoBranding = []string{
	"public/nflc-logo2.png",
	"public/Pattern1.png",
}

var listeningAudio = []string{
	"public/beep.mp3",
	"public/kennedy.mp3",
	"public/littlebeep.mp3",
	"public/passage*.mp3",
}

// IsListening reports whether a lesson type plays audio passages.
func IsListening(lessonType string) bool {
	switch strings.ToUpper(lessonType) {
	case "LCR", "LMC":
		return true
	}
	return false
}

// Patterns returns the selection for an object of the given product, lesson
// type and script families.
func Patterns(product, lessonType string, scripts *model.ScriptSet) Selection {
	product = strings.ToLower(product)
	include := []string{"build-" + product + ".js"}
	include = append(include, basePatterns...)

	seen := make(map[string]bool)
	for _, script := range scripts.Values() {
		font, ok := scriptFonts[strings.ToLower(script)]
		if !ok || seen[font] {
			continue
		}
		seen[font] = true
		include = append(include, font)
	}

	var exclude []string
	if product == "ao" {
		include = append(include, aoBranding...)
		if IsListening(lessonType) {
			include = append(include, listeningAudio...)
		} else {
			exclude = append(exclude, "public/videogular*")
		}
	}

	return Selection{Include: include, Exclude: exclude}
}

// Merge combines selections so the result serves all of them. A pattern is
// excluded only when every selection excludes it.
func Merge(sels ...Selection) Selection {
	var out Selection
	seen := make(map[string]bool)
	excluded := make(map[string]int)
	for _, sel := range sels {
		for _, p := range sel.Include {
			if !seen[p] {
				seen[p] = true
				out.Include = append(out.Include, p)
			}
		}
		for _, p := range sel.Exclude {
			excluded[p]++
		}
	}
	for _, sel := range sels {
		for _, p := range sel.Exclude {
			if excluded[p] == len(sels) {
				out.Exclude = append(out.Exclude, p)
				excluded[p] = -1
			}
		}
	}
	return out
}
