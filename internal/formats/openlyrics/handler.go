// Package openlyrics registers an import-only reader for OpenLyrics XML
// (http://openlyrics.info). Verses whose name starts with "c" become
// choruses; inline <chord> elements become the chord line of the line they
// appear on. Elements are matched by local name so both namespaced and
// plain documents are read.
package openlyrics

import (
	"bytes"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/songbook/core/errors"
	"github.com/FocuswithJustin/songbook/core/song"
	"github.com/FocuswithJustin/songbook/internal/formats"
	"github.com/FocuswithJustin/songbook/internal/formats/base"
)

// FormatName is the registry ID of the OpenLyrics format.
const FormatName = "openlyrics"

var (
	songExpr      = xpath.MustCompile(`/*[local-name()='song']`)
	titleExpr     = xpath.MustCompile(`*[local-name()='properties']/*[local-name()='titles']/*[local-name()='title']`)
	authorExpr    = xpath.MustCompile(`*[local-name()='properties']/*[local-name()='authors']/*[local-name()='author']`)
	themeExpr     = xpath.MustCompile(`*[local-name()='properties']/*[local-name()='themes']/*[local-name()='theme']`)
	capoExpr      = xpath.MustCompile(`*[local-name()='properties']/*[local-name()='capo']`)
	verseOrderExp = xpath.MustCompile(`*[local-name()='properties']/*[local-name()='verseOrder']`)
	verseExpr     = xpath.MustCompile(`*[local-name()='lyrics']/*[local-name()='verse']`)
	linesExpr     = xpath.MustCompile(`*[local-name()='lines']`)
)

// Handler implements formats.Handler for OpenLyrics files.
type Handler struct{}

// Register registers this handler with the format registry.
func Register() {
	formats.Register(&Handler{})
}

func init() {
	Register()
}

// ID implements formats.Handler.
func (h *Handler) ID() string { return FormatName }

// Extensions implements formats.Handler.
func (h *Handler) Extensions() []string { return []string{".xml", ".olyr"} }

// Detect implements formats.Handler. Plain .xml files are only claimed
// when they carry the OpenLyrics namespace.
func (h *Handler) Detect(path string, data []byte) *formats.DetectResult {
	if base.HasExtension(path, []string{".xml"}) && !bytes.Contains(data, []byte("openlyrics.info")) {
		return &formats.DetectResult{Detected: false, Reason: "xml file without OpenLyrics namespace"}
	}
	return base.Detect(path, data, base.DetectConfig{
		Extensions:     []string{".olyr"},
		ContentMarkers: []string{"<song", "openlyrics.info"},
		FormatName:     FormatName,
	})
}

// Decode implements formats.Handler. The first theme is used as the
// category, falling back to opts.Category.
func (h *Handler) Decode(data []byte, opts formats.DecodeOptions) (*song.Song, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, errors.NewParse(FormatName, 0, errors.KindMalformedSection, err.Error())
	}
	root := xmlquery.QuerySelector(doc, songExpr)
	if root == nil {
		return nil, errors.NewParse(FormatName, 0, errors.KindMalformedSection, "no <song> root element")
	}

	title := firstText(root, titleExpr)
	if title == "" {
		return nil, errors.NewParse(FormatName, 0, errors.KindMissingField, "no <title>")
	}
	category := firstText(root, themeExpr)
	if category == "" {
		category = opts.Category
	}
	if category == "" {
		return nil, errors.NewParse(FormatName, 0, errors.KindMissingField, "no <theme> and no default category")
	}

	s := song.New(title, category)
	var authors []string
	for _, n := range xmlquery.QuerySelectorAll(root, authorExpr) {
		if a := collapse(n.InnerText()); a != "" {
			authors = append(authors, a)
		}
	}
	s.Author = strings.Join(authors, ", ")
	s.Capo = firstText(root, capoExpr)

	type namedSection struct {
		name string
		sec  song.Section
	}
	var verses []namedSection
	for _, v := range xmlquery.QuerySelectorAll(root, verseExpr) {
		name := v.SelectAttr("name")
		verses = append(verses, namedSection{name: name, sec: decodeVerse(v, name)})
	}

	order := strings.Fields(firstText(root, verseOrderExp))
	if len(order) == 0 {
		for _, v := range verses {
			s.AddSection(v.sec)
		}
		return s, nil
	}
	byName := make(map[string]song.Section, len(verses))
	for _, v := range verses {
		byName[v.name] = v.sec
	}
	for _, name := range order {
		sec, ok := byName[name]
		if !ok {
			return nil, errors.NewParse(FormatName, 0, errors.KindMalformedSection, "verseOrder names unknown verse "+name)
		}
		s.AddSection(sec)
	}
	return s, nil
}

// Encode implements formats.Handler. OpenLyrics is import-only.
func (h *Handler) Encode(*song.Song) ([]byte, error) {
	return nil, base.UnsupportedOperationError("encode", FormatName)
}

func decodeVerse(v *xmlquery.Node, name string) song.Section {
	var lines []lineBuf
	for _, ln := range xmlquery.QuerySelectorAll(v, linesExpr) {
		cur := &lineBuf{}
		walkLines(ln, &lines, &cur)
		lines = append(lines, *cur)
	}
	if len(lines) == 0 {
		lines = append(lines, lineBuf{})
	}

	lyrics := make([]string, len(lines))
	chords := make([]string, len(lines))
	for i, l := range lines {
		lyrics[i] = collapse(l.text)
		chords[i] = strings.Join(l.chords, " ")
	}
	return song.Section{
		Lyrics: strings.Join(lyrics, "\n"),
		Chords: strings.Join(chords, "\n"),
		Chorus: strings.HasPrefix(strings.ToLower(name), "c"),
	}
}

type lineBuf struct {
	text   string
	chords []string
}

// walkLines appends finished lines to out at every <br/>. cur is the line
// being filled.
func walkLines(n *xmlquery.Node, out *[]lineBuf, cur **lineBuf) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case xmlquery.TextNode, xmlquery.CharDataNode:
			(*cur).text += c.Data
		case xmlquery.ElementNode:
			switch c.Data {
			case "br":
				*out = append(*out, **cur)
				*cur = &lineBuf{}
			case "chord":
				if name := chordName(c); name != "" {
					(*cur).chords = append((*cur).chords, name)
				}
				walkLines(c, out, cur)
			case "comment":
			default:
				walkLines(c, out, cur)
			}
		}
	}
}

// chordName reads the 0.8/0.9 "name" attribute or the 1.0 "root" plus
// "structure" pair.
func chordName(n *xmlquery.Node) string {
	if name := n.SelectAttr("name"); name != "" {
		return name
	}
	name := n.SelectAttr("root") + n.SelectAttr("structure")
	if bass := n.SelectAttr("bass"); bass != "" {
		name += "/" + bass
	}
	return name
}

func firstText(n *xmlquery.Node, expr *xpath.Expr) string {
	if found := xmlquery.QuerySelector(n, expr); found != nil {
		return collapse(found.InnerText())
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
