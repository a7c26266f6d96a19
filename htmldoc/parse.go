package htmldoc

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var (
	fontFaceRe = regexp.MustCompile(`@font-face\s*\{([^}]*)\}`)
	srcRe      = regexp.MustCompile(`url\('data:([^;]+);base64,([^']*)'\)\s*format\('([^']+)'\)`)
)

// Open reads the artifact at filename.
func Open(filename string) (*Summary, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads an artifact written by Writer.
func Parse(r io.Reader) (*Summary, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	s := &Summary{}
	if t := findElement(doc, "title"); t != nil {
		s.Title = getTextContent(t)
	}
	if st := findElement(doc, "style"); st != nil {
		faces, err := parseFaces(getTextContent(st))
		if err != nil {
			return nil, err
		}
		s.Faces = faces
	}

	var walk func(n *html.Node) error
	walk = func(n *html.Node) error {
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "page") {
			p, err := parsePage(n)
			if err != nil {
				return err
			}
			s.Pages = append(s.Pages, p)
			return nil
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(doc); err != nil {
		return nil, err
	}
	return s, nil
}

func parseFaces(css string) ([]FaceInfo, error) {
	var faces []FaceInfo
	for _, m := range fontFaceRe.FindAllStringSubmatch(css, -1) {
		decl := parseStyle(m[1])
		f := FaceInfo{Family: firstFamily(decl["font-family"])}
		src := srcRe.FindStringSubmatch(decl["src"])
		if src == nil {
			return nil, fmt.Errorf("font face %q: no data source", f.Family)
		}
		data, err := base64.StdEncoding.DecodeString(src[2])
		if err != nil {
			return nil, fmt.Errorf("font face %q: %w", f.Family, err)
		}
		f.MIME, f.Format, f.Size = src[1], src[3], len(data)
		faces = append(faces, f)
	}
	return faces, nil
}

func parsePage(n *html.Node) (PageInfo, error) {
	p := PageInfo{Skipped: hasClass(n, "skipped")}
	if v := getAttr(n, "data-page"); v != "" {
		num, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("page number %q: %w", v, err)
		}
		p.Number = num
	}
	style := parseStyle(getAttr(n, "style"))
	p.Width = length(style["width"])
	p.Height = length(style["height"])

	var walk func(c *html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.ElementNode {
			switch {
			case c.Data == "img" && strings.HasPrefix(getAttr(c, "src"), "data:image/png;base64,"):
				p.HasBackground = true
			case c.Data == "span" && hasClass(c, "text-block"):
				p.Spans = append(p.Spans, parseSpan(c))
				return
			}
		}
		for k := c.FirstChild; k != nil; k = k.NextSibling {
			walk(k)
		}
	}
	walk(n)
	return p, nil
}

func parseSpan(n *html.Node) SpanInfo {
	style := parseStyle(getAttr(n, "style"))
	return SpanInfo{
		Text:          getTextContent(n),
		Left:          length(style["left"]),
		Top:           length(style["top"]),
		FontSize:      length(style["font-size"]),
		Family:        firstFamily(style["font-family"]),
		Color:         style["color"],
		LetterSpacing: length(style["letter-spacing"]),
		Dir:           getAttr(n, "dir"),
	}
}

// parseStyle splits CSS declarations into a property map. Values containing
// ";" inside quotes are kept whole.
func parseStyle(s string) map[string]string {
	out := make(map[string]string)
	var quote rune
	start := 0
	flush := func(end int) {
		decl := s[start:end]
		if k, v, ok := strings.Cut(decl, ":"); ok {
			out[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == ';':
			flush(i)
			start = i + 1
		}
	}
	flush(len(s))
	return out
}

func firstFamily(v string) string {
	first, _, _ := strings.Cut(v, ",")
	return strings.Trim(strings.TrimSpace(first), `'"`)
}

func length(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "px"), 64)
	if err != nil {
		return 0
	}
	return f
}

func findElement(n *html.Node, tagName string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tagName {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tagName); found != nil {
			return found
		}
	}
	return nil
}

func getTextContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(getAttr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
