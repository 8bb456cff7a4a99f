// ABOUTME: HTTP documentation browser serving the embedded MCE guides as HTML
// ABOUTME: Maps /docs/ paths onto mce:// resource URIs and renders them

package gateway

import (
	"errors"
	"html"
	"net/http"
	"strings"

	"github.com/2389/mce-gateway/internal/docs"
)

const docScheme = "mce://"

func (g *Gateway) handleDocsRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/docs/", http.StatusMovedPermanently)
}

// handleDocs serves the documentation index at /docs/ and renders an
// individual document at /docs/<path>, where <path> is the resource URI
// with the mce:// scheme stripped.
func (g *Gateway) handleDocs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rel := strings.TrimPrefix(r.URL.Path, "/docs/")
	if rel == "" {
		g.serveDocsIndex(w)
		return
	}

	rendered, err := g.library.RenderHTML(docScheme + rel)
	if err != nil {
		if errors.Is(err, docs.ErrUnknownResource) {
			http.NotFound(w, r)
			return
		}
		g.logger.Error("rendering document", "path", rel, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte("<!DOCTYPE html>\n<html><head><title>mce-gateway docs</title></head><body>\n"))
	_, _ = w.Write(rendered)
	_, _ = w.Write([]byte("\n<p><a href=\"/docs/\">&larr; index</a></p></body></html>\n"))
}

func (g *Gateway) serveDocsIndex(w http.ResponseWriter) {
	var buf strings.Builder
	buf.WriteString("<!DOCTYPE html>\n<html><head><title>mce-gateway docs</title></head><body>\n")
	buf.WriteString("<h1>Marketing Cloud Engagement documentation</h1>\n<ul>\n")
	for _, doc := range g.library.List() {
		rel := strings.TrimPrefix(doc.URI, docScheme)
		buf.WriteString("<li><a href=\"/docs/" + rel + "\">" + html.EscapeString(doc.Name) + "</a> &mdash; " + html.EscapeString(doc.Description) + "</li>\n")
	}
	buf.WriteString("</ul>\n</body></html>\n")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(buf.String()))
}
