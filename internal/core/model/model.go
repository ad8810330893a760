// Package model holds the data shared by every stage of the packaging pipeline.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// RunEnv selects the deployment target of a pack run.
type RunEnv int

const (
	SCORM2004 RunEnv = iota + 1
	SCORM1P2
	Standalone
)

func (e RunEnv) String() string {
	switch e {
	case SCORM2004:
		return "scorm2004"
	case SCORM1P2:
		return "scorm1.2"
	case Standalone:
		return "standalone"
	default:
		return fmt.Sprintf("runenv(%d)", int(e))
	}
}

// IsSCORM reports whether the scaffolding, manifest and zip stages apply.
func (e RunEnv) IsSCORM() bool {
	return e == SCORM2004 || e == SCORM1P2
}

// ParseRunEnv accepts the names printed by RunEnv.String plus a few aliases.
func ParseRunEnv(s string) (RunEnv, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scorm2004", "scorm-2004", "2004":
		return SCORM2004, nil
	case "scorm1.2", "scorm12", "scorm-1.2", "1.2":
		return SCORM1P2, nil
	case "standalone":
		return Standalone, nil
	}
	return 0, fmt.Errorf("unknown run environment %q (expected scorm2004, scorm1.2 or standalone)", s)
}

// LearningObject is one remote content container in the working set.
// Product, Scripts and LessonType are filled in while the pipeline runs.
type LearningObject struct {
	ContainerID string     `json:"containerId"`
	ID          string     `json:"id,omitempty"`
	Name        string     `json:"name,omitempty"`
	Product     string     `json:"product,omitempty"`
	LessonType  string     `json:"lessonType,omitempty"`
	Scripts     *ScriptSet `json:"-"`
}

// Key returns the container id, falling back to id for legacy objects.
func (lo *LearningObject) Key() string {
	if lo.ContainerID != "" {
		return lo.ContainerID
	}
	return lo.ID
}

// FileInfo describes a remote downloadable asset.
type FileInfo struct {
	Container string          `json:"container"`
	Name      string          `json:"name"`
	Size      int64           `json:"size,omitempty"`
	MTime     json.RawMessage `json:"mtime,omitempty"`
}

// Lang is one row of the remote language table.
type Lang struct {
	ISO    string `json:"iso"`
	Script string `json:"script"`
	Name   string `json:"name,omitempty"`
}

// Text is a metadata value that tolerates loose typing in content.json.
// Strings, numbers and booleans decode to their text; null, objects and
// arrays decode to the empty string.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*t = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case '{', '[', 'n':
		*t = ""
	default:
		*t = Text(data)
	}
	return nil
}

func (t Text) String() string { return string(t) }

// Source is one passage/day entry of a content document.
type Source struct {
	Locale       Text `json:"locale,omitempty"`
	Language     Text `json:"language,omitempty"`
	Level        Text `json:"level,omitempty"`
	Topic        Text `json:"topic,omitempty"`
	TitleEnglish Text `json:"titleEnglish,omitempty"`
}

// ContentDocument is the content.json of a learning object. Raw keeps the
// document exactly as served so it can be persisted without loss.
type ContentDocument struct {
	ContainerID   string          `json:"containerId,omitempty"`
	ID            string          `json:"id,omitempty"`
	Title         Text            `json:"title,omitempty"`
	Product       Text            `json:"product,omitempty"`
	LessonType    Text            `json:"lessonType,omitempty"`
	DateInspected Text            `json:"dateInspected,omitempty"`
	Sources       []Source        `json:"sources,omitempty"`
	Raw           json.RawMessage `json:"-"`
}

// ParseContentDocument decodes content.json and keeps the raw bytes.
func ParseContentDocument(data []byte) (*ContentDocument, error) {
	var doc ContentDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode content document: %w", err)
	}
	if doc.ContainerID == "" {
		doc.ContainerID = doc.ID
	}
	doc.Raw = append(json.RawMessage(nil), data...)
	return &doc, nil
}

// ScriptSet is a set of script families. Membership is what matters;
// Values returns a sorted slice so callers get a stable view.
type ScriptSet struct {
	items map[string]struct{}
}

// NewScriptSet builds a set from the given script names, dropping blanks.
func NewScriptSet(scripts ...string) *ScriptSet {
	s := &ScriptSet{items: make(map[string]struct{}, len(scripts))}
	for _, sc := range scripts {
		s.Add(sc)
	}
	return s
}

// Add inserts a script family; empty names are ignored.
func (s *ScriptSet) Add(script string) {
	if script == "" {
		return
	}
	if s.items == nil {
		s.items = make(map[string]struct{})
	}
	s.items[script] = struct{}{}
}

// Has reports membership.
func (s *ScriptSet) Has(script string) bool {
	if s == nil {
		return false
	}
	_, ok := s.items[script]
	return ok
}

// Len returns the number of distinct scripts.
func (s *ScriptSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Values returns the members in lexical order.
func (s *ScriptSet) Values() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.items))
	for k := range s.items {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ScriptsFor collects the distinct script families of the document's
// sources by looking each source locale up in the language table.
func ScriptsFor(doc *ContentDocument, langs []Lang) *ScriptSet {
	byISO := make(map[string]string, len(langs))
	for _, l := range langs {
		byISO[l.ISO] = l.Script
	}
	set := NewScriptSet()
	if doc == nil {
		return set
	}
	for _, src := range doc.Sources {
		if script, ok := byISO[string(src.Locale)]; ok {
			set.Add(script)
		}
	}
	return set
}
