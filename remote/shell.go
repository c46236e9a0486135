// Package remote renders captured markup to PDF through an HTML conversion
// service.
//
// BuildShell wraps an element's outer HTML in a standalone document carrying
// the page's stylesheets. A Converter turns that document into PDF bytes;
// PDFShift is the HTTP implementation.
package remote

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// IgnoreAttributes mark elements that must not appear in captured output.
var IgnoreAttributes = []string{"data-html2canvas-ignore", "data-capture-ignore"}

// Shell describes the document wrapped around a captured fragment.
type Shell struct {
	Title string
	Lang  string
	// BaseURL resolves relative URLs in the fragment.
	BaseURL string
	// Stylesheets are linked in order, before InlineCSS.
	Stylesheets []string
	InlineCSS   string
}

// BuildShell returns a complete HTML document whose body is fragment with
// every ignore-marked element removed.
func BuildShell(fragment string, s Shell) (string, error) {
	body := element(atom.Body, nil)
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return "", fmt.Errorf("parsing fragment: %w", err)
	}
	for _, n := range nodes {
		if ignored(n) {
			continue
		}
		StripIgnored(n)
		body.AppendChild(n)
	}

	if s.Title == "" {
		s.Title = "Screen Capture"
	}
	if s.Lang == "" {
		s.Lang = "en"
	}

	head := element(atom.Head, nil)
	head.AppendChild(element(atom.Meta, []html.Attribute{{Key: "charset", Val: "utf-8"}}))
	title := element(atom.Title, nil)
	title.AppendChild(&html.Node{Type: html.TextNode, Data: s.Title})
	head.AppendChild(title)
	if s.BaseURL != "" {
		head.AppendChild(element(atom.Base, []html.Attribute{{Key: "href", Val: s.BaseURL}}))
	}
	for _, href := range s.Stylesheets {
		head.AppendChild(element(atom.Link, []html.Attribute{
			{Key: "rel", Val: "stylesheet"},
			{Key: "href", Val: href},
		}))
	}
	if s.InlineCSS != "" {
		style := element(atom.Style, nil)
		style.AppendChild(&html.Node{Type: html.TextNode, Data: s.InlineCSS})
		head.AppendChild(style)
	}

	root := element(atom.Html, []html.Attribute{{Key: "lang", Val: s.Lang}})
	root.AppendChild(head)
	root.AppendChild(body)

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	doc.AppendChild(root)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return "", fmt.Errorf("rendering shell: %w", err)
	}
	return buf.String(), nil
}

// StripIgnored removes every ignore-marked descendant of n.
func StripIgnored(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if ignored(c) {
			n.RemoveChild(c)
		} else {
			StripIgnored(c)
		}
		c = next
	}
}

// CleanStylesheetURL drops the query string and fragment from a stylesheet
// URL so cache-busting versions do not defeat a converter's cache.
func CleanStylesheetURL(href string) string {
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		return href[:i]
	}
	return href
}

func ignored(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, a := range n.Attr {
		for _, key := range IgnoreAttributes {
			if a.Key == key {
				return true
			}
		}
	}
	return false
}

func element(a atom.Atom, attrs []html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}
