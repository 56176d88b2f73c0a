package document

import (
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// LoadFile parses an HTML file into a document root. The host calls this
// once at bootstrap; hosted modules then share the resulting tree.
func LoadFile(path string) (*Root, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	return Parse(string(data))
}

// Parse builds a document root from HTML markup. The document title and the
// body subtree are lifted onto the document surface.
func Parse(markup string) (*Root, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	r := NewRoot()
	r.Set("title", strings.TrimSpace(doc.Find("title").First().Text()))

	body := doc.Find("body").First()
	if len(body.Nodes) > 0 {
		for child := body.Nodes[0].FirstChild; child != nil; child = child.NextSibling {
			if el := fromNode(child); el != nil {
				r.Tree().Append(el)
			}
		}
	}
	return r, nil
}

// fromNode converts a parsed HTML node into an element, dropping
// non-element nodes except text, which folds into TextContent.
func fromNode(n *html.Node) *Element {
	if n.Type != html.ElementNode {
		return nil
	}
	el := &Element{
		TagName:    n.Data,
		Attributes: make(map[string]string),
	}
	for _, attr := range n.Attr {
		el.SetAttribute(attr.Key, attr.Val)
	}
	var text strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case html.TextNode:
			text.WriteString(child.Data)
		case html.ElementNode:
			if sub := fromNode(child); sub != nil {
				el.Append(sub)
			}
		}
	}
	el.TextContent = strings.TrimSpace(text.String())
	return el
}
