package crawler

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Node is a read-only view of one node in a parsed HTML document.
// Element nodes and text nodes are exposed; comments and doctypes are not.
type Node interface {
	// Tag returns the lower-case element name, or "" for text nodes.
	Tag() string

	// IsText reports whether the node is a text segment.
	IsText() bool

	// Attr returns the value of the named attribute, or "" if absent.
	Attr(key string) string

	// HasAttr reports whether the named attribute is present.
	HasAttr(key string) bool

	// Text returns the node's text content: the segment itself for text
	// nodes, the concatenation of all descendant text for elements.
	Text() string

	// Children returns the direct element and text children in document order.
	Children() []Node

	// FindAll returns every descendant (not the node itself) matching the
	// predicate, in document order.
	FindAll(match Predicate) []Node

	// Find returns the first descendant matching the predicate.
	Find(match Predicate) (Node, bool)

	// Contains reports whether any descendant matches the predicate.
	Contains(match Predicate) bool
}

// Predicate selects nodes during a search.
type Predicate func(Node) bool

// Tag matches element nodes with the given name.
func Tag(name string) Predicate {
	name = strings.ToLower(name)
	return func(n Node) bool {
		return n.Tag() == name
	}
}

// TagWithAttr matches element nodes with the given name that carry attr.
func TagWithAttr(name, attr string) Predicate {
	byTag := Tag(name)
	return func(n Node) bool {
		return byTag(n) && n.HasAttr(attr)
	}
}

// Document is a parsed HTML page.
type Document struct {
	root *html.Node
}

// Parse parses HTML content into a Document.
// Malformed markup is repaired the way browsers do; Parse only fails on
// read errors.
func Parse(content io.Reader) (*Document, error) {
	root, err := html.Parse(content)
	if err != nil {
		return nil, err
	}
	return &Document{root: root}, nil
}

// Root returns the document node.
func (d *Document) Root() Node {
	return htmlNode{n: d.root}
}

// Title returns the trimmed text of the first <title> element.
func (d *Document) Title() string {
	title, ok := d.Root().Find(Tag("title"))
	if !ok {
		return ""
	}
	return strings.TrimSpace(title.Text())
}

// htmlNode adapts *html.Node to the Node interface.
type htmlNode struct {
	n *html.Node
}

func (h htmlNode) Tag() string {
	if h.n.Type != html.ElementNode {
		return ""
	}
	return h.n.Data
}

func (h htmlNode) IsText() bool {
	return h.n.Type == html.TextNode
}

func (h htmlNode) Attr(key string) string {
	return getAttr(h.n, key)
}

func (h htmlNode) HasAttr(key string) bool {
	for _, attr := range h.n.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}

func (h htmlNode) Text() string {
	if h.n.Type == html.TextNode {
		return h.n.Data
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(h.n)

	return sb.String()
}

func (h htmlNode) Children() []Node {
	children := make([]Node, 0)
	for c := h.n.FirstChild; c != nil; c = c.NextSibling {
		if visible(c) {
			children = append(children, htmlNode{n: c})
		}
	}
	return children
}

func (h htmlNode) FindAll(match Predicate) []Node {
	found := make([]Node, 0)
	h.walkDescendants(func(n Node) bool {
		if match(n) {
			found = append(found, n)
		}
		return true
	})
	return found
}

func (h htmlNode) Find(match Predicate) (Node, bool) {
	var found Node
	h.walkDescendants(func(n Node) bool {
		if match(n) {
			found = n
			return false
		}
		return true
	})
	return found, found != nil
}

func (h htmlNode) Contains(match Predicate) bool {
	_, ok := h.Find(match)
	return ok
}

// walkDescendants visits descendants depth-first in document order until
// visit returns false.
func (h htmlNode) walkDescendants(visit func(Node) bool) {
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !visible(c) {
				continue
			}
			if !visit(htmlNode{n: c}) {
				return false
			}
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(h.n)
}

// visible reports whether a raw node is exposed through Node.
func visible(n *html.Node) bool {
	return n.Type == html.ElementNode || n.Type == html.TextNode
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
