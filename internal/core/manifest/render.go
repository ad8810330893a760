package manifest

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/xlo-tools/xlo/internal/core/model"
)

// FileName is the manifest's name inside an object root.
const FileName = "imsmanifest.xml"

// LaunchFile is the entry point every packaged object starts from.
const LaunchFile = "index.html"

// idNamespace seeds the deterministic manifest identifiers.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://xlo-tools.github.io/xlo/manifest"))

const (
	lomVocabulary = "LOMv1.0"
	textLanguage  = "en"
)

type schema struct {
	cpNamespace    string
	adlcpNamespace string
	lomNamespace   string
	version        string
	scormTypeAttr  string
	schemaLocation string
}

var schemas = map[model.RunEnv]schema{
	model.SCORM2004: {
		cpNamespace:    "http://www.imsglobal.org/xsd/imscp_v1p1",
		adlcpNamespace: "http://www.adlnet.org/xsd/adlcp_v1p3",
		lomNamespace:   "http://ltsc.ieee.org/xsd/LOM",
		version:        "2004 4th Edition",
		scormTypeAttr:  "adlcp:scormType",
		schemaLocation: "http://www.imsglobal.org/xsd/imscp_v1p1 imscp_v1p1.xsd http://www.adlnet.org/xsd/adlcp_v1p3 adlcp_v1p3.xsd http://ltsc.ieee.org/xsd/LOM lom.xsd",
	},
	model.SCORM1P2: {
		cpNamespace:    "http://www.imsproject.org/xsd/imscp_rootv1p1p2",
		adlcpNamespace: "http://www.adlnet.org/xsd/adlcp_rootv1p2",
		lomNamespace:   "http://www.imsglobal.org/xsd/imsmd_rootv1p2p1",
		version:        "1.2",
		scormTypeAttr:  "adlcp:scormtype",
		schemaLocation: "http://www.imsproject.org/xsd/imscp_rootv1p1p2 imscp_rootv1p1p2.xsd http://www.imsglobal.org/xsd/imsmd_rootv1p2p1 imsmd_rootv1p2p1.xsd http://www.adlnet.org/xsd/adlcp_rootv1p2 adlcp_rootv1p2.xsd",
	},
}

type xmlManifest struct {
	XMLName       xml.Name         `xml:"manifest"`
	Attrs         []xml.Attr       `xml:",any,attr"`
	Identifier    string           `xml:"identifier,attr"`
	Version       string           `xml:"version,attr"`
	Metadata      xmlMetadata      `xml:"metadata"`
	Organizations xmlOrganizations `xml:"organizations"`
	Resources     xmlResources     `xml:"resources"`
}

type xmlMetadata struct {
	Schema        string `xml:"schema"`
	SchemaVersion string `xml:"schemaversion"`
	LOM           xmlLOM `xml:"lom"`
}

type xmlLOM struct {
	XMLName     xml.Name       `xml:"lom"`
	NS          string         `xml:"xmlns,attr"`
	General     xmlGeneral     `xml:"general"`
	LifeCycle   xmlLifeCycle   `xml:"lifeCycle"`
	Educational xmlEducational `xml:"educational"`
	Rights      xmlRights      `xml:"rights"`
	Relations   []xmlRelation  `xml:"relation"`
}

type xmlLangString struct {
	String xmlString `xml:"string"`
}

type xmlString struct {
	Language string `xml:"language,attr"`
	Value    string `xml:",chardata"`
}

type xmlVocab struct {
	Source string `xml:"source"`
	Value  string `xml:"value"`
}

type xmlGeneral struct {
	Identifier  xmlIdentifier   `xml:"identifier"`
	Title       xmlLangString   `xml:"title"`
	Language    string          `xml:"language"`
	Description xmlLangString   `xml:"description"`
	Keywords    []xmlLangString `xml:"keyword"`
}

type xmlIdentifier struct {
	Catalog string `xml:"catalog"`
	Entry   string `xml:"entry"`
}

type xmlLifeCycle struct {
	Contribute xmlContribute `xml:"contribute"`
}

type xmlContribute struct {
	Role xmlVocab `xml:"role"`
	Date xmlDate  `xml:"date"`
}

type xmlDate struct {
	DateTime string `xml:"dateTime"`
}

type xmlEducational struct {
	LearningResourceType xmlVocab `xml:"learningResourceType"`
	Difficulty           xmlVocab `xml:"difficulty"`
}

type xmlRights struct {
	Description xmlLangString `xml:"description"`
}

type xmlRelation struct {
	Kind     xmlVocab            `xml:"kind"`
	Resource xmlRelationResource `xml:"resource"`
}

type xmlRelationResource struct {
	Description xmlLangString `xml:"description"`
}

type xmlOrganizations struct {
	Default       string            `xml:"default,attr"`
	Organizations []xmlOrganization `xml:"organization"`
}

type xmlOrganization struct {
	Identifier string  `xml:"identifier,attr"`
	Title      string  `xml:"title"`
	Item       xmlItem `xml:"item"`
}

type xmlItem struct {
	Identifier    string `xml:"identifier,attr"`
	IdentifierRef string `xml:"identifierref,attr"`
	Title         string `xml:"title"`
}

type xmlResources struct {
	Resources []xmlResource `xml:"resource"`
}

type xmlResource struct {
	Identifier string     `xml:"identifier,attr"`
	Type       string     `xml:"type,attr"`
	Attrs      []xml.Attr `xml:",any,attr"`
	Href       string     `xml:"href,attr"`
	Files      []xmlFile  `xml:"file"`
}

type xmlFile struct {
	Href string `xml:"href,attr"`
}

func langString(v string) xmlLangString {
	return xmlLangString{String: xmlString{Language: textLanguage, Value: v}}
}

func vocab(v string) xmlVocab {
	return xmlVocab{Source: lomVocabulary, Value: v}
}

// Identifier returns the stable manifest identifier of an object.
func Identifier(id string) string {
	return "MANIFEST-" + uuid.NewSHA1(idNamespace, []byte(id)).String()
}

// Render produces the manifest document for env. files are the resource
// paths relative to the object root; they are emitted in the given order.
func Render(env model.RunEnv, md Metadata, files []string) ([]byte, error) {
	sc, ok := schemas[env]
	if !ok {
		return nil, fmt.Errorf("no manifest schema for run environment %s", env)
	}

	m := xmlManifest{
		Attrs: []xml.Attr{
			{Name: xml.Name{Local: "xmlns"}, Value: sc.cpNamespace},
			{Name: xml.Name{Local: "xmlns:adlcp"}, Value: sc.adlcpNamespace},
			{Name: xml.Name{Local: "xmlns:xsi"}, Value: "http://www.w3.org/2001/XMLSchema-instance"},
			{Name: xml.Name{Local: "xsi:schemaLocation"}, Value: sc.schemaLocation},
		},
		Identifier: Identifier(md.ID),
		Version:    "1",
		Metadata: xmlMetadata{
			Schema:        "ADL SCORM",
			SchemaVersion: sc.version,
			LOM:           buildLOM(sc, md),
		},
		Organizations: xmlOrganizations{
			Default: "ORG-" + md.ID,
			Organizations: []xmlOrganization{{
				Identifier: "ORG-" + md.ID,
				Title:      md.Title,
				Item: xmlItem{
					Identifier:    "ITEM-" + md.ID,
					IdentifierRef: "RES-" + md.ID,
					Title:         md.Title,
				},
			}},
		},
	}

	res := xmlResource{
		Identifier: "RES-" + md.ID,
		Type:       "webcontent",
		Attrs:      []xml.Attr{{Name: xml.Name{Local: sc.scormTypeAttr}, Value: "sco"}},
		Href:       LaunchFile,
	}
	for _, f := range files {
		res.Files = append(res.Files, xmlFile{Href: f})
	}
	m.Resources.Resources = []xmlResource{res}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("failed to encode manifest for %s: %w", md.ID, err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func buildLOM(sc schema, md Metadata) xmlLOM {
	lom := xmlLOM{
		NS: sc.lomNamespace,
		General: xmlGeneral{
			Identifier:  xmlIdentifier{Catalog: "xlo", Entry: md.ID},
			Title:       langString(md.Title),
			Language:    md.Language,
			Description: langString(md.Product.Description),
			Keywords:    []xmlLangString{langString(md.Topic), langString(md.Modality)},
		},
		LifeCycle: xmlLifeCycle{Contribute: xmlContribute{
			Role: vocab("validator"),
			Date: xmlDate{DateTime: md.DateInspected},
		}},
		Educational: xmlEducational{
			LearningResourceType: vocab(md.Product.LearningResourceType),
			Difficulty:           vocab(md.Level),
		},
		Rights: xmlRights{Description: langString(md.Contract)},
	}
	for _, src := range md.Sources {
		lom.Relations = append(lom.Relations, xmlRelation{
			Kind:     vocab("isbasedon"),
			Resource: xmlRelationResource{Description: langString(src)},
		})
	}
	return lom
}

// ResourceFiles lists every regular file under root, relative and
// slash-separated, plus the manifest itself, in sorted order.
func ResourceFiles(root string) ([]string, error) {
	seen := map[string]bool{FileName: true}
	files := []string{FileName}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !seen[rel] {
			seen[rel] = true
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// Write renders the manifest for the object rooted at root and writes it to
// root/imsmanifest.xml.
func Write(env model.RunEnv, root string, md Metadata) error {
	files, err := ResourceFiles(root)
	if err != nil {
		return err
	}
	data, err := Render(env, md, files)
	if err != nil {
		return err
	}
	dest := filepath.Join(root, FileName)
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return nil
}
