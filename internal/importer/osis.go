package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/BirthdayVerse/core/catalog"
	"github.com/FocuswithJustin/BirthdayVerse/core/errors"
)

// Namespace-agnostic so both prefixed and default-namespace OSIS match.
var (
	verseExpr     = xpath.MustCompile(`//*[local-name()='verse']`)
	milestoneExpr = xpath.MustCompile(`//*[local-name()='verse'][@sID]`)
	titleExpr     = xpath.MustCompile(`//*[local-name()='work']/*[local-name()='title']`)
)

// Elements whose text never belongs to a verse.
var skippedElements = map[string]bool{
	"note":  true,
	"title": true,
	"rdg":   true,
}

// osisRef is a parsed "Book.Chapter.Verse" identifier.
type osisRef struct {
	Book    string
	Chapter int
	Verse   int
}

// parseOSISRef parses the first reference of an osisID or sID attribute.
// Work prefixes such as "KJV:" are ignored.
func parseOSISRef(id string) (osisRef, error) {
	fields := strings.Fields(id)
	if len(fields) == 0 {
		return osisRef{}, fmt.Errorf("empty osisID")
	}
	ref := fields[0]
	if i := strings.IndexByte(ref, ':'); i >= 0 {
		ref = ref[i+1:]
	}

	parts := strings.Split(ref, ".")
	if len(parts) != 3 {
		return osisRef{}, fmt.Errorf("osisID %q is not Book.Chapter.Verse", id)
	}
	chapter, err := strconv.Atoi(parts[1])
	if err != nil || chapter < 1 {
		return osisRef{}, fmt.Errorf("osisID %q has invalid chapter", id)
	}
	v, err := strconv.Atoi(parts[2])
	if err != nil || v < 1 {
		return osisRef{}, fmt.Errorf("osisID %q has invalid verse", id)
	}
	return osisRef{Book: parts[0], Chapter: chapter, Verse: v}, nil
}

// ParseOSIS reads an OSIS document. Both container verses
// (<verse osisID="..">text</verse>) and milestone verses
// (<verse sID=".."/>text<verse eID=".."/>) are supported.
func ParseOSIS(r io.Reader, c *catalog.Catalog) (*Document, error) {
	root, err := xmlquery.Parse(r)
	if err != nil {
		return nil, errors.NewParse("OSIS", "", err.Error())
	}

	doc := newDocument("osis")
	if t := xmlquery.QuerySelector(root, titleExpr); t != nil {
		doc.Title = strings.TrimSpace(t.InnerText())
	}

	if xmlquery.QuerySelector(root, milestoneExpr) != nil {
		if err := collectMilestones(root, c, doc); err != nil {
			return nil, err
		}
		return doc, nil
	}

	for _, n := range xmlquery.QuerySelectorAll(root, verseExpr) {
		id := n.SelectAttr("osisID")
		if id == "" {
			continue
		}
		ref, err := parseOSISRef(id)
		if err != nil {
			return nil, errors.NewParse("OSIS", "", err.Error())
		}
		var b strings.Builder
		appendText(&b, n)
		doc.add(c, ref, b.String())
	}
	return doc, nil
}

// collectMilestones walks the tree in document order, attributing text
// between a verse's sID and eID markers to that verse.
func collectMilestones(root *xmlquery.Node, c *catalog.Catalog, doc *Document) error {
	var (
		open    bool
		current osisRef
		buf     strings.Builder
		walkErr error
	)

	var visit func(n *xmlquery.Node)
	visit = func(n *xmlquery.Node) {
		if walkErr != nil {
			return
		}
		switch n.Type {
		case xmlquery.ElementNode:
			if skippedElements[n.Data] {
				return
			}
			if n.Data == "verse" {
				if sid := n.SelectAttr("sID"); sid != "" {
					ref, err := parseOSISRef(sid)
					if err != nil {
						walkErr = err
						return
					}
					open, current = true, ref
					buf.Reset()
				} else if n.SelectAttr("eID") != "" && open {
					doc.add(c, current, buf.String())
					open = false
				}
			}
		case xmlquery.TextNode, xmlquery.CharDataNode:
			if open {
				buf.WriteString(n.Data)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	visit(root)

	if walkErr != nil {
		return errors.NewParse("OSIS", "", walkErr.Error())
	}
	if open {
		doc.add(c, current, buf.String())
	}
	return nil
}

// appendText writes the text of n, skipping notes and headings.
func appendText(b *strings.Builder, n *xmlquery.Node) {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case xmlquery.TextNode, xmlquery.CharDataNode:
			b.WriteString(child.Data)
		case xmlquery.ElementNode:
			if !skippedElements[child.Data] {
				appendText(b, child)
			}
		}
	}
}
