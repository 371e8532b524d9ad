package scrape

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// minArticleLength is the smallest extraction worth returning. Shorter
// results are error pages, cookie walls, or player shells.
const minArticleLength = 200

// strippedElements never contain article prose.
var strippedElements = map[atom.Atom]struct{}{
	atom.Script:   {},
	atom.Style:    {},
	atom.Noscript: {},
	atom.Nav:      {},
	atom.Footer:   {},
	atom.Header:   {},
	atom.Aside:    {},
	atom.Form:     {},
	atom.Iframe:   {},
	atom.Button:   {},
	atom.Svg:      {},
	atom.Select:   {},
}

// strippedHints match id/class fragments of chrome regions: comment
// threads, sidebars, ad slots, share bars, cookie banners.
var strippedHints = []string{
	"comment",
	"sidebar",
	"advert",
	"-ad-",
	"promo",
	"banner",
	"menu",
	"share",
	"social",
	"cookie",
	"subscribe",
	"newsletter",
	"related",
	"breadcrumb",
}

// articleHints match id/class fragments of named article containers.
var articleHints = []string{
	"article-body",
	"articlebody",
	"article-content",
	"post-content",
	"entry-content",
	"story-body",
	"story-content",
	"main-content",
}

var whitespaceRe = regexp.MustCompile(`[ \t\r\f]+`)
var blankLinesRe = regexp.MustCompile(`\n{3,}`)

// ExtractArticle reduces an HTML page to readable plaintext. Three
// strategies run in order: named article containers, then the densest
// block of multi-sentence paragraphs, then the whole page text. Each
// result must clear minArticleLength; if none does, ok is false.
func ExtractArticle(htmlSrc string) (text string, ok bool) {
	doc, err := html.Parse(strings.NewReader(htmlSrc))
	if err != nil {
		return "", false
	}
	prune(doc)

	if t := articleContainerText(doc); len(t) >= minArticleLength {
		return t, true
	}
	if t := densestParagraphBlock(doc); len(t) >= minArticleLength {
		return t, true
	}
	if t := nodeText(doc); len(t) >= minArticleLength {
		return t, true
	}
	return "", false
}

// prune removes chrome subtrees in place.
func prune(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if shouldStrip(c) {
			n.RemoveChild(c)
			continue
		}
		prune(c)
	}
}

func shouldStrip(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if _, strip := strippedElements[n.DataAtom]; strip {
		return true
	}
	marker := idClassMarker(n)
	if marker == "" {
		return false
	}
	for _, hint := range strippedHints {
		if strings.Contains(marker, hint) {
			return true
		}
	}
	return false
}

func idClassMarker(n *html.Node) string {
	var parts []string
	for _, attr := range n.Attr {
		if attr.Key == "id" || attr.Key == "class" {
			parts = append(parts, strings.ToLower(attr.Val))
		}
	}
	return strings.Join(parts, " ")
}

// articleContainerText returns the text of the first named article
// container: <article>, <main>, or an element whose id/class carries an
// article hint.
func articleContainerText(doc *html.Node) string {
	node := findNode(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		if n.DataAtom == atom.Article || n.DataAtom == atom.Main {
			return true
		}
		marker := idClassMarker(n)
		for _, hint := range articleHints {
			if strings.Contains(marker, hint) {
				return true
			}
		}
		return false
	})
	if node == nil {
		return ""
	}
	return nodeText(node)
}

// densestParagraphBlock groups <p> elements by parent and returns the
// parent block with the most multi-sentence paragraph text.
func densestParagraphBlock(doc *html.Node) string {
	blocks := make(map[*html.Node][]string)
	var order []*html.Node

	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode || n.DataAtom != atom.P || n.Parent == nil {
			return
		}
		text := nodeText(n)
		if !isMultiSentence(text) {
			return
		}
		if _, seen := blocks[n.Parent]; !seen {
			order = append(order, n.Parent)
		}
		blocks[n.Parent] = append(blocks[n.Parent], text)
	})

	var best string
	for _, parent := range order {
		joined := strings.Join(blocks[parent], "\n\n")
		if len(joined) > len(best) {
			best = joined
		}
	}
	return best
}

// isMultiSentence reports whether text looks like running prose: at least
// two sentence enders, or one ender in a reasonably long paragraph.
func isMultiSentence(text string) bool {
	enders := strings.Count(text, ". ") + strings.Count(text, "! ") + strings.Count(text, "? ")
	if strings.HasSuffix(text, ".") || strings.HasSuffix(text, "!") || strings.HasSuffix(text, "?") {
		enders++
	}
	if enders >= 2 {
		return true
	}
	return enders == 1 && len(text) >= 120
}

// nodeText collects the visible text under n, separating block elements
// with newlines and collapsing whitespace.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var emit func(*html.Node)
	emit = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			emit(c)
		}
		if n.Type == html.ElementNode && isBlockElement(n.DataAtom) {
			sb.WriteByte('\n')
		} else if n.Type == html.ElementNode {
			sb.WriteByte(' ')
		}
	}
	emit(n)

	text := whitespaceRe.ReplaceAllString(sb.String(), " ")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func isBlockElement(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Li, atom.Br,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Blockquote, atom.Pre, atom.Tr, atom.Table, atom.Ul, atom.Ol:
		return true
	}
	return false
}

func findNode(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, match); found != nil {
			return found
		}
	}
	return nil
}

func walk(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}
