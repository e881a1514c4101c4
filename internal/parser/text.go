package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// blockTags end a line when flattening a card subtree to text. Listing
// emails are table soup; row and cell boundaries are the only reliable
// separators between the price, spec and address fragments of a card.
var blockTags = map[string]bool{
	"table": true, "tr": true, "div": true, "p": true, "li": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

var inlineSpaceTags = map[string]bool{
	"td": true, "th": true, "span": true, "a": true,
}

var (
	runSpaceRe = regexp.MustCompile(`[ \t\r\x{00a0}]+`)
	runLineRe  = regexp.MustCompile(`\s*\n\s*`)
)

// flattenText renders a card subtree as plain text with newlines at block
// boundaries and collapsed whitespace.
func flattenText(sel *goquery.Selection) string {
	var sb strings.Builder
	for _, n := range sel.Nodes {
		writeText(n, &sb)
	}
	out := runSpaceRe.ReplaceAllString(sb.String(), " ")
	out = runLineRe.ReplaceAllString(out, "\n")
	return strings.TrimSpace(out)
}

func writeText(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "head":
			return
		case "br":
			sb.WriteString("\n")
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(c, sb)
	}
	if n.Type == html.ElementNode {
		if blockTags[n.Data] {
			sb.WriteString("\n")
		} else if inlineSpaceTags[n.Data] {
			sb.WriteString(" ")
		}
	}
}
