package htmldoc

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/tsawler/pdfhtml/internal/logging"
	"github.com/tsawler/pdfhtml/layout"
	"github.com/tsawler/pdfhtml/webfont"
)

const baseCSS = `
body { margin: 0; padding: 20px; background: #f0f0f0; }
.page { position: relative; margin: 20px auto; box-shadow: 0 2px 10px rgba(0,0,0,0.1); background: white; overflow: hidden; }
.bg-layer { position: absolute; top: 0; left: 0; z-index: 0; pointer-events: none; }
.bg-layer img { display: block; }
.text-layer { position: absolute; top: 0; left: 0; z-index: 1; }
.text-block { position: absolute; white-space: pre; line-height: 1; margin: 0; padding: 0; background: transparent; }
`

// Writer assembles the artifact.
type Writer struct {
	Title string
	// Faces are the web fonts referenced by the pages' nodes. Nodes whose
	// family has no face fall back to Fallback.
	Faces []*webfont.Face
	// Fallback is the generic CSS family appended to every span (default:
	// sans-serif)
	Fallback string
	Logger   *slog.Logger
}

// NewWriter returns a writer with the given title and faces.
func NewWriter(title string, faces []*webfont.Face) *Writer {
	return &Writer{Title: title, Faces: faces, Fallback: "sans-serif"}
}

// Write renders the document for pages to out.
func (w *Writer) Write(out io.Writer, pages []Page) error {
	doc, err := w.Document(pages)
	if err != nil {
		return err
	}
	return html.Render(out, doc)
}

// Document builds the node tree for pages.
func (w *Writer) Document(pages []Page) (*html.Node, error) {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element(atom.Html)
	doc.AppendChild(root)
	head := element(atom.Head)
	root.AppendChild(head)
	head.AppendChild(element(atom.Meta, "charset", "utf-8"))
	title := element(atom.Title)
	title.AppendChild(textNode(w.Title))
	head.AppendChild(title)
	style := element(atom.Style)
	style.AppendChild(textNode(w.css()))
	head.AppendChild(style)

	body := element(atom.Body)
	root.AppendChild(body)
	for i := range pages {
		div, err := w.page(&pages[i])
		if err != nil {
			return nil, err
		}
		body.AppendChild(div)
	}
	logging.Or(w.Logger).Debug("assembled document", "pages", len(pages), "faces", len(w.Faces))
	return doc, nil
}

func (w *Writer) css() string {
	faces := make([]*webfont.Face, 0, len(w.Faces))
	for _, f := range w.Faces {
		if f != nil {
			faces = append(faces, f)
		}
	}
	sort.SliceStable(faces, func(i, j int) bool { return faces[i].Family < faces[j].Family })

	var sb strings.Builder
	for _, f := range faces {
		fmt.Fprintf(&sb, "\n@font-face { font-family: '%s'; src: url('%s') format('%s'); font-weight: normal; font-style: normal; font-display: block; }",
			cssIdent(f.Family), f.DataURI(), f.Format)
	}
	sb.WriteString(baseCSS)
	return sb.String()
}

func (w *Writer) page(p *Page) (*html.Node, error) {
	zoom := p.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	size := "width: " + px(float64(p.Width)/zoom) + "; height: " + px(float64(p.Height)/zoom) + ";"
	num := strconv.Itoa(p.Number)

	if p.Skipped {
		div := element(atom.Div, "class", "page skipped", "data-page", num, "style", size)
		reason := strings.ReplaceAll(p.Reason, "--", "-")
		div.AppendChild(&html.Node{Type: html.CommentNode, Data: fmt.Sprintf(" page %d skipped: %s ", p.Number, reason)})
		return div, nil
	}

	div := element(atom.Div, "class", "page", "data-page", num, "style", size)
	bg := element(atom.Div, "class", "bg-layer")
	div.AppendChild(bg)
	if p.Background != nil {
		var buf bytes.Buffer
		if err := png.Encode(&buf, p.Background); err != nil {
			return nil, fmt.Errorf("page %d: encoding background: %w", p.Number, err)
		}
		src := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
		bg.AppendChild(element(atom.Img, "src", src, "alt", "", "style", size))
	}

	layer := element(atom.Div, "class", "text-layer")
	div.AppendChild(layer)
	for i := range p.Nodes {
		layer.AppendChild(w.span(&p.Nodes[i], zoom))
	}
	return div, nil
}

func (w *Writer) span(n *layout.Node, zoom float64) *html.Node {
	fallback := w.Fallback
	if fallback == "" {
		fallback = "sans-serif"
	}
	family := fallback
	if n.Family != "" {
		family = "'" + cssIdent(n.Family) + "', " + fallback
	}
	style := fmt.Sprintf("left: %s; top: %s; font-size: %s; font-family: %s; color: rgb(%d, %d, %d);",
		px(n.Left/zoom), px(n.Top/zoom), px(n.Size/zoom), family, n.Color.R, n.Color.G, n.Color.B)
	if n.LetterSpacing != 0 {
		style += " letter-spacing: " + px(n.LetterSpacing/zoom) + ";"
	}

	attrs := []string{"class", "text-block", "style", style}
	if dir := n.Dir.Attr(); dir != "" {
		attrs = append(attrs, "dir", dir)
	}
	s := element(atom.Span, attrs...)
	s.AppendChild(textNode(n.Text))
	return s
}

func element(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// px formats a CSS pixel length to two decimals.
func px(v float64) string {
	v = math.Round(v*100) / 100
	if v == 0 {
		v = 0 // drop negative zero
	}
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

func cssIdent(s string) string {
	return strings.NewReplacer("'", "", "\\", "", "<", "", ">", "").Replace(s)
}
