package parser

import (
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Selectors are the structural paths into the newsletter template. They are
// configuration, not logic: when the cinema changes its email template these
// two strings are what needs updating.
type Selectors struct {
	// NewsletterLink locates the "view in browser" anchor.
	NewsletterLink string
	// TitleHeading locates one h1 per film; the enclosing tbody three levels
	// up is the schedule box holding that film's date lines.
	TitleHeading string
}

// DefaultSelectors matches the AcyMailing template the newsletter is sent with.
func DefaultSelectors() Selectors {
	return Selectors{
		NewsletterLink: "table > tbody > tr > td > table > tbody > tr > td > p > a",
		TitleHeading: "div div div table tbody tr td table tbody tr td table tbody tr td" +
			" table tbody tr td table tbody tr td h1",
	}
}

// scheduleBox is one film's heading plus the flattened text of its box.
type scheduleBox struct {
	title string
	text  string
}

// walkDocument extracts the newsletter link and the per-title schedule boxes,
// in document order. Any structural mismatch aborts the walk.
func (p *Parser) walkDocument(htmlBody string) (string, []scheduleBox, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return "", nil, newStructuralError("parse HTML document: %v", err)
	}

	anchor := doc.Find(p.Selectors.NewsletterLink).First()
	if anchor.Length() == 0 {
		return "", nil, newStructuralError("could not find newsletter link")
	}
	link, ok := anchor.Attr("href")
	if !ok {
		return "", nil, newStructuralError("newsletter link has no href attribute")
	}

	headings := doc.Find(p.Selectors.TitleHeading)
	log.Printf("[INFO] found %d title headings", headings.Length())

	boxes := make([]scheduleBox, 0, headings.Length())
	for _, node := range headings.Nodes {
		title, ok := firstText(node)
		if !ok {
			return "", nil, newStructuralError("title heading has no text")
		}

		box := elementAncestor(node, 3)
		if box == nil || box.DataAtom != atom.Tbody {
			return "", nil, newStructuralError("no enclosing tbody box for title %q", title)
		}

		boxes = append(boxes, scheduleBox{title: title, text: flattenBox(box)})
	}

	return link, boxes, nil
}

// firstText returns the first text node under n, verbatim.
func firstText(n *html.Node) (string, bool) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			return c.Data, true
		}
		if t, ok := firstText(c); ok {
			return t, true
		}
	}
	return "", false
}

func elementAncestor(n *html.Node, levels int) *html.Node {
	for i := 0; i < levels; i++ {
		if n == nil {
			return nil
		}
		n = n.Parent
	}
	if n == nil || n.Type != html.ElementNode {
		return nil
	}
	return n
}

// flattenBox turns a schedule box into one text blob: text nodes are kept
// verbatim, <br> elements become newlines, every other element boundary is
// dropped, and the fragments are joined with single spaces.
func flattenBox(box *html.Node) string {
	var frags []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			frags = append(frags, n.Data)
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			frags = append(frags, "\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(box)
	return strings.Join(frags, " ")
}
