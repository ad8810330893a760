package manifest_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xlo-tools/xlo/internal/core/failure"
	"github.com/xlo-tools/xlo/internal/core/manifest"
	"github.com/xlo-tools/xlo/internal/core/model"
)

var fixedNow = func() time.Time { return time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC) }

func TestModality(t *testing.T) {
	t.Parallel()
	tests := []struct {
		product, lessonType, want string
	}{
		{"ao", "RMC", "Reading"},
		{"ao", "RCR", "Reading"},
		{"ao", "LMC", "Listening"},
		{"AO", "lcr", "Listening"},
		{"ao", "XYZ", "UNIDENTIFIED"},
		{"ao", "", "UNIDENTIFIED"},
		{"vlo", "LMC", "Video"},
		{"dlo-clo", "", "Mixed"},
		{"", "", "Mixed"},
	}
	for _, tt := range tests {
		t.Run(tt.product+"/"+tt.lessonType, func(t *testing.T) {
			assert.Equal(t, tt.want, manifest.Modality(tt.product, tt.lessonType))
		})
	}
}

func TestExtractTitle(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Hello", manifest.ExtractTitle("<p>Hello</p> <b>World</b>"))
	assert.Equal(t, "Hello World", manifest.ExtractTitle("<b>Hello</b> <i>World</i>"))
	assert.Equal(t, "A & B", manifest.ExtractTitle(`<p class="x">A &amp; <em>B</em></p><p>second</p>`))
	assert.Equal(t, "plain", manifest.ExtractTitle("  plain "))
	assert.Empty(t, manifest.ExtractTitle(""))
}

func TestProductType(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "ao", manifest.ProductType(&model.ContentDocument{Product: " AO "}, "vlo"))
	assert.Equal(t, "vlo", manifest.ProductType(&model.ContentDocument{}, "VLO"))
	assert.Equal(t, "vlo", manifest.ProductType(nil, "vlo"))
}

func TestDerive_AO(t *testing.T) {
	t.Parallel()
	doc := &model.ContentDocument{
		ContainerID:   "ao1",
		Title:         "<p>Market Day</p>",
		Product:       "AO",
		LessonType:    "LMC",
		DateInspected: "2024-11-02T15:04:05.000Z",
		Sources: []model.Source{
			{Locale: "ar", Language: "Arabic", Level: "2", Topic: "Economy", TitleEnglish: "<p>At the souk</p>"},
			{Locale: "ar", Language: "Arabic", Level: "2+", Topic: "Culture", TitleEnglish: "Prices"},
		},
	}

	md, warnings := manifest.Derive(doc, manifest.Input{Contract: "C-42", Now: fixedNow})
	assert.Empty(t, warnings)
	assert.Equal(t, "ao1", md.ID)
	assert.Equal(t, "Market Day", md.Title)
	assert.Equal(t, "Listening", md.Modality)
	assert.Equal(t, "Arabic", md.Language)
	assert.Equal(t, "2", md.Level)
	assert.Equal(t, "Economy", md.Topic)
	assert.Equal(t, "C-42", md.Contract)
	assert.Equal(t, "2024-11-02", md.DateInspected)
	assert.Equal(t, []string{"Passage 1: At the souk", "Passage 2: Prices"}, md.Sources)
	assert.Equal(t, "Authentic Object", md.Product.Name)
	assert.Equal(t, "exercise", md.Product.LearningResourceType)
	assert.Equal(t, "Arabic Listening lesson built around an authentic passage, ILR level 2.", md.Product.Description)
}

func TestDerive_DayPrefixAndTitleFallback(t *testing.T) {
	t.Parallel()
	doc := &model.ContentDocument{
		ContainerID: "d1",
		Sources: []model.Source{
			{Language: "Korean", Level: "1", Topic: "Travel", TitleEnglish: "<p>Arrival</p>"},
			{TitleEnglish: "Hotel"},
		},
	}
	md, warnings := manifest.Derive(doc, manifest.Input{ProductType: "dlo-clo", Contract: "C", Now: fixedNow})
	assert.Equal(t, "Arrival", md.Title)
	assert.Equal(t, []string{"Day 1: Arrival", "Day 2: Hotel"}, md.Sources)
	assert.Equal(t, "Mixed", md.Modality)
	assert.Equal(t, "Daily Learning Object", md.Product.Name)
	assert.Equal(t, "2025-03-09", md.DateInspected, "missing date falls back to now")
	require.Len(t, warnings, 1)
	assert.ErrorIs(t, warnings[0], failure.ErrManifestField)
	assert.Contains(t, warnings[0].Error(), "dateInspected")
}

func TestDerive_Defaults(t *testing.T) {
	t.Parallel()
	doc := &model.ContentDocument{ContainerID: "x1", Product: "mystery", DateInspected: "not a date"}

	md, warnings := manifest.Derive(doc, manifest.Input{Now: fixedNow})
	assert.Equal(t, manifest.Undefined, md.Title)
	assert.Equal(t, manifest.Undefined, md.Level)
	assert.Equal(t, manifest.Undefined, md.Language)
	assert.Equal(t, manifest.Undefined, md.Topic)
	assert.Equal(t, manifest.Undefined, md.Contract)
	assert.Equal(t, "2025-03-09", md.DateInspected)
	assert.Equal(t, "mystery", md.Product.Name)
	assert.Equal(t, manifest.Undefined, md.Product.Description)
	assert.Equal(t, manifest.Undefined, md.Product.LearningResourceType)
	assert.Empty(t, md.Sources)
	for _, w := range warnings {
		assert.ErrorIs(t, w, failure.ErrManifestField)
		assert.False(t, failure.Fatal(w))
	}
	assert.Len(t, warnings, 6)
}

func TestDerive_NilDocument(t *testing.T) {
	t.Parallel()
	md, _ := manifest.Derive(nil, manifest.Input{ProductType: "vlo", Now: fixedNow})
	assert.Equal(t, "Video", md.Modality)
	assert.Equal(t, "Video Learning Object", md.Product.Name)
	assert.Equal(t, "UNDEFINED video lesson, ILR level UNDEFINED.", md.Product.Description)
}

func TestDerive_LooseContentTypes(t *testing.T) {
	t.Parallel()
	doc, err := model.ParseContentDocument([]byte(`{"containerId":"ao5","product":"ao","lessonType":"RMC",` +
		`"title":"<p>Numbers</p>","dateInspected":1709596800000,` +
		`"sources":[{"locale":"ar","language":"Arabic","level":2,"topic":{"en":"Economy"}}]}`))
	require.NoError(t, err)

	md, warnings := manifest.Derive(doc, manifest.Input{Now: fixedNow})
	assert.Equal(t, "2", md.Level)
	assert.Equal(t, "2024-03-05", md.DateInspected)
	assert.Equal(t, manifest.Undefined, md.Topic)
	assert.Equal(t, "Reading", md.Modality)
	assert.Equal(t, "Arabic Reading lesson built around an authentic passage, ILR level 2.", md.Product.Description)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Error(), "topic")
}

func TestDerive_LessonTypeFallback(t *testing.T) {
	t.Parallel()
	doc := &model.ContentDocument{ContainerID: "ao6", Product: "ao"}

	md, _ := manifest.Derive(doc, manifest.Input{LessonType: "LCR", Now: fixedNow})
	assert.Equal(t, "Listening", md.Modality)

	doc.LessonType = "RCR"
	md, _ = manifest.Derive(doc, manifest.Input{LessonType: "LCR", Now: fixedNow})
	assert.Equal(t, "Reading", md.Modality, "the document's own lesson type wins")
}
