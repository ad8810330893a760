// Package manifest derives descriptive metadata from a content document and
// renders the SCORM imsmanifest.xml of a packaged object.
package manifest

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/xlo-tools/xlo/internal/core/failure"
	"github.com/xlo-tools/xlo/internal/core/model"
)

// Undefined stands in for any field that could not be derived.
const Undefined = "UNDEFINED"

const dateLayout = "2006-01-02"

var (
	firstParagraphRegex = regexp.MustCompile(`(?is)<p(?:\s[^>]*)?>(.*?)</p>`)
	tagRegex            = regexp.MustCompile(`<[^>]*>`)

	errAbsent = errors.New("absent")
)

// Product describes a product type in catalog terms.
type Product struct {
	Name                 string
	Description          string
	LearningResourceType string
}

// Metadata is the derived view of a content document used by the manifest.
type Metadata struct {
	ID            string
	Title         string
	Product       Product
	Modality      string
	Contract      string
	Language      string
	Topic         string
	Level         string
	DateInspected string
	Sources       []string
}

// Input carries everything Derive needs besides the document.
type Input struct {
	// ProductType is the package default, used when the document has none.
	ProductType string
	// LessonType is used when the document does not declare one.
	LessonType string
	Contract   string
	// Now substitutes the inspection date when the document's cannot be parsed.
	Now func() time.Time
}

type productInfo struct {
	name        string
	lrt         string
	description *template.Template
}

var products = map[string]productInfo{
	"ao": {
		name:        "Authentic Object",
		lrt:         "exercise",
		description: template.Must(template.New("ao").Parse(`{{.Language}} {{.Modality}} lesson built around an authentic passage, ILR level {{.Level}}.`)),
	},
	"vlo": {
		name:        "Video Learning Object",
		lrt:         "lecture",
		description: template.Must(template.New("vlo").Parse(`{{.Language}} video lesson, ILR level {{.Level}}.`)),
	},
	"dlo-clo": {
		name:        "Daily Learning Object",
		lrt:         "exercise",
		description: template.Must(template.New("dlo-clo").Parse(`{{.Language}} daily {{.Modality}} lessons, ILR level {{.Level}}.`)),
	},
}

var aoModality = map[string]string{
	"RMC": "Reading",
	"RCR": "Reading",
	"LMC": "Listening",
	"LCR": "Listening",
}

// ProductType returns the lowercased product of the document, or the
// package default when the document does not declare one.
func ProductType(doc *model.ContentDocument, fallback string) string {
	if doc != nil && strings.TrimSpace(string(doc.Product)) != "" {
		return strings.ToLower(strings.TrimSpace(string(doc.Product)))
	}
	return strings.ToLower(strings.TrimSpace(fallback))
}

// Modality maps a product and lesson type to the skill it trains.
func Modality(product, lessonType string) string {
	switch strings.ToLower(product) {
	case "ao":
		if m, ok := aoModality[strings.ToUpper(lessonType)]; ok {
			return m
		}
		return "UNIDENTIFIED"
	case "vlo":
		return "Video"
	default:
		return "Mixed"
	}
}

// ExtractTitle returns the body of the first <p> element when there is one,
// with every remaining tag stripped and entities decoded.
func ExtractTitle(s string) string {
	if m := firstParagraphRegex.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	return strings.TrimSpace(html.UnescapeString(tagRegex.ReplaceAllString(s, "")))
}

// Derive computes the manifest metadata of a document. A field that cannot be
// derived takes its default; the reason is returned as an ErrManifestField
// failure and never aborts the derivation.
func Derive(doc *model.ContentDocument, in Input) (Metadata, []error) {
	if doc == nil {
		doc = &model.ContentDocument{}
	}
	now := in.Now
	if now == nil {
		now = time.Now
	}
	unit := doc.ContainerID

	var warnings []error
	field := func(name string, lookup func() (string, error), def string) string {
		v, err := lookup()
		if err != nil {
			warnings = append(warnings, failure.New(failure.ErrManifestField, unit, fmt.Errorf("%s: %w", name, err)))
			return def
		}
		return v
	}

	product := ProductType(doc, in.ProductType)
	lessonType := strings.TrimSpace(string(doc.LessonType))
	if lessonType == "" {
		lessonType = in.LessonType
	}
	md := Metadata{
		ID:       unit,
		Contract: in.Contract,
		Modality: Modality(product, lessonType),
	}
	if md.Contract == "" {
		md.Contract = Undefined
	}

	md.Level = field("level", sourceField(doc, func(s model.Source) string { return string(s.Level) }), Undefined)
	md.Language = field("language", sourceField(doc, func(s model.Source) string { return string(s.Language) }), Undefined)
	md.Topic = field("topic", sourceField(doc, func(s model.Source) string { return string(s.Topic) }), Undefined)
	md.DateInspected = field("dateInspected", func() (string, error) {
		t, err := parseDate(string(doc.DateInspected))
		if err != nil {
			return "", err
		}
		return t.Format(dateLayout), nil
	}, now().Format(dateLayout))

	md.Sources = sourceTitles(doc, product)
	md.Title = field("title", func() (string, error) {
		if t := ExtractTitle(string(doc.Title)); t != "" {
			return t, nil
		}
		if len(doc.Sources) > 0 {
			if t := ExtractTitle(string(doc.Sources[0].TitleEnglish)); t != "" {
				return t, nil
			}
		}
		return "", errAbsent
	}, Undefined)

	md.Product = Product{Name: Undefined, Description: Undefined, LearningResourceType: Undefined}
	info, ok := products[product]
	if !ok {
		warnings = append(warnings, failure.New(failure.ErrManifestField, unit, fmt.Errorf("product: unknown product type %q", product)))
		if product != "" {
			md.Product.Name = product
		}
		return md, warnings
	}
	md.Product.Name = info.name
	md.Product.LearningResourceType = info.lrt
	md.Product.Description = field("product.description", func() (string, error) {
		var b strings.Builder
		if err := info.description.Execute(&b, md); err != nil {
			return "", err
		}
		return b.String(), nil
	}, Undefined)

	return md, warnings
}

func sourceField(doc *model.ContentDocument, get func(model.Source) string) func() (string, error) {
	return func() (string, error) {
		if len(doc.Sources) == 0 {
			return "", fmt.Errorf("document has no sources")
		}
		v := strings.TrimSpace(get(doc.Sources[0]))
		if v == "" {
			return "", errAbsent
		}
		return v, nil
	}
}

// sourceTitles returns the English title of every source, numbered by
// passage or day for the products that present them that way.
func sourceTitles(doc *model.ContentDocument, product string) []string {
	titles := make([]string, 0, len(doc.Sources))
	for i, src := range doc.Sources {
		title := string(src.TitleEnglish)
		if m := firstParagraphRegex.FindStringSubmatch(title); m != nil {
			title = m[1]
		}
		title = strings.TrimSpace(title)
		switch product {
		case "ao":
			title = fmt.Sprintf("Passage %d: %s", i+1, title)
		case "dlo-clo":
			title = fmt.Sprintf("Day %d: %s", i+1, title)
		}
		titles = append(titles, title)
	}
	return titles
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	dateLayout,
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errAbsent
	}
	// Epoch milliseconds, as a JavaScript timestamp.
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
