// ABOUTME: Embedded documentation library addressed by mce:// URIs.
// ABOUTME: Serves guides, payload examples, and the operations reference.

package docs

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/yuin/goldmark"
)

// ErrUnknownResource is returned when a URI is not in the library.
var ErrUnknownResource = errors.New("unknown documentation resource")

// Document describes one library entry for listings.
type Document struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MimeType    string `json:"mimeType"`
}

type entry struct {
	doc  Document
	path string
}

// Listing order matters: guides that prevent broken assets come first.
var catalog = []entry{
	{
		doc: Document{
			URI:         "mce://guides/editable-emails",
			Name:        "Editable Email Creation Guide - MUST READ",
			Description: "CRITICAL: Complete guide for creating editable emails with assetType.id = 207. READ THIS FIRST before creating any email.",
			MimeType:    "text/markdown",
		},
		path: "content/guides/editable-emails.md",
	},
	{
		doc: Document{
			URI:         "mce://examples/complete-email",
			Name:        "Complete Email Example - REQUIRED",
			Description: "Full working example showing exact JSON structure needed for editable emails. Use this as your template.",
			MimeType:    "application/json",
		},
		path: "content/examples/complete-email.json",
	},
	{
		doc: Document{
			URI:         "mce://guides/journey-builder",
			Name:        "Journey Builder Complete Guide",
			Description: "All activity types, structures, and rules for creating journeys",
			MimeType:    "text/markdown",
		},
		path: "content/guides/journey-builder.md",
	},
	{
		doc: Document{
			URI:         "mce://guides/email-components",
			Name:        "Email Components Lexicon",
			Description: "Maps user phrases (like \"hero image\") to technical components",
			MimeType:    "text/markdown",
		},
		path: "content/guides/email-components.md",
	},
	{
		doc: Document{
			URI:         "mce://guides/dynamic-content",
			Name:        "Dynamic Content Guide",
			Description: "How to create personalized content with AMPscript",
			MimeType:    "text/markdown",
		},
		path: "content/guides/dynamic-content.md",
	},
	{
		doc: Document{
			URI:         "mce://reference/operations",
			Name:        "Complete Operations Guide",
			Description: "All REST and SOAP operations with error codes and solutions",
			MimeType:    "application/json",
		},
		path: "content/reference/operations.json",
	},
	{
		doc: Document{
			URI:         "mce://examples/hero-image",
			Name:        "Hero Image Block Example",
			Description: "imageblock (assetType.id: 199) example",
			MimeType:    "application/json",
		},
		path: "content/examples/hero-image.json",
	},
	{
		doc: Document{
			URI:         "mce://examples/text-block",
			Name:        "Text Block Example",
			Description: "textblock (assetType.id: 196) example",
			MimeType:    "application/json",
		},
		path: "content/examples/text-block.json",
	},
	{
		doc: Document{
			URI:         "mce://examples/button-block",
			Name:        "Button Block Example",
			Description: "buttonblock (assetType.id: 195) example",
			MimeType:    "application/json",
		},
		path: "content/examples/button-block.json",
	},
}

// Library exposes the embedded documentation set.
type Library struct {
	byURI map[string]entry
}

// NewLibrary builds the URI index over the embedded catalog.
func NewLibrary() *Library {
	byURI := make(map[string]entry, len(catalog))
	for _, e := range catalog {
		byURI[e.doc.URI] = e
	}
	return &Library{byURI: byURI}
}

// List returns every document in recommended reading order.
func (l *Library) List() []Document {
	out := make([]Document, 0, len(catalog))
	for _, e := range catalog {
		out = append(out, e.doc)
	}
	return out
}

// Read returns the raw content and mime type for a URI.
func (l *Library) Read(uri string) (content []byte, mimeType string, err error) {
	e, ok := l.byURI[uri]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownResource, uri)
	}
	data, err := contentFS.ReadFile(e.path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", uri, err)
	}
	return data, e.doc.MimeType, nil
}

// RenderHTML converts a markdown document to HTML. JSON documents are
// wrapped in a pre block unchanged.
func (l *Library) RenderHTML(uri string) ([]byte, error) {
	data, mime, err := l.Read(uri)
	if err != nil {
		return nil, err
	}
	if mime != "text/markdown" {
		var buf bytes.Buffer
		buf.WriteString("<pre><code>")
		writeEscaped(&buf, data)
		buf.WriteString("</code></pre>\n")
		return buf.Bytes(), nil
	}
	var buf bytes.Buffer
	if err := goldmark.Convert(data, &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", uri, err)
	}
	return buf.Bytes(), nil
}

func writeEscaped(buf *bytes.Buffer, data []byte) {
	for _, b := range data {
		switch b {
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '&':
			buf.WriteString("&amp;")
		default:
			buf.WriteByte(b)
		}
	}
}
