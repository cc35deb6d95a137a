package page

import (
	"bytes"
	"html"
	"slices"
	"strings"

	xhtml "golang.org/x/net/html"
)

// untouchedInputs are never populated with submitted values.
var untouchedInputs = map[string]bool{
	"submit":   true,
	"button":   true,
	"reset":    true,
	"image":    true,
	"file":     true,
	"password": true,
}

// Page is a per-request copy of a Template.
type Page struct {
	doc    *xhtml.Node
	region *xhtml.Node
	tmpl   *Template
}

// Populate fills form controls with submitted values. Values are expected in
// their HTML-escaped intake form; they are unescaped here so rendering escapes
// them exactly once. Populating twice with the same values is a no-op.
func (p *Page) Populate(values map[string]string) {
	walk(p.doc, func(n *xhtml.Node) {
		name := attr(n, "name")
		if name == "" {
			return
		}
		escaped, ok := values[name]
		if !ok {
			return
		}
		value := html.UnescapeString(escaped)

		switch n.Data {
		case "input":
			populateInput(n, value)
		case "textarea":
			setText(n, value)
		case "select":
			walk(n, func(opt *xhtml.Node) {
				if opt.Data != "option" {
					return
				}
				optValue, ok := lookupAttr(opt, "value")
				if !ok {
					optValue = strings.TrimSpace(textContent(opt))
				}
				toggleAttr(opt, "selected", optValue == value)
			})
		}
	})
}

func populateInput(n *xhtml.Node, value string) {
	kind := strings.ToLower(attr(n, "type"))
	if untouchedInputs[kind] {
		return
	}
	if kind == "checkbox" || kind == "radio" {
		own, ok := lookupAttr(n, "value")
		if !ok {
			own = "on"
		}
		toggleAttr(n, "checked", own == value)
		return
	}
	setAttr(n, "value", value)
}

// Annotate inserts an error fragment next to each named field, in field name
// order. Fields missing from the page are skipped.
func (p *Page) Annotate(errors map[string]string) error {
	if len(errors) == 0 {
		return nil
	}

	opts := p.tmpl.opts
	fragment, err := parseElement(opts.ErrorMarkup)
	if err != nil {
		return err
	}

	fields := make([]string, 0, len(errors))
	for field := range errors {
		fields = append(fields, field)
	}
	slices.Sort(fields)

	for _, field := range fields {
		msg := errors[field]
		if msg == "" {
			continue
		}

		target := p.annotationTarget(field)
		if target == nil || target.Parent == nil {
			continue
		}

		note := cloneNode(fragment)
		setText(note, msg)
		if opts.AnnotateAfter {
			target.Parent.InsertBefore(note, target.NextSibling)
		} else {
			target.Parent.InsertBefore(note, target)
		}
	}
	return nil
}

func (p *Page) annotationTarget(field string) *xhtml.Node {
	opts := p.tmpl.opts
	if field == opts.CaptchaField {
		return findElement(p.doc, func(n *xhtml.Node) bool {
			return n.Data == "div" && slices.Contains(strings.Fields(attr(n, "class")), opts.CaptchaContainerClass)
		})
	}
	return findElement(p.doc, func(n *xhtml.Node) bool {
		return attr(n, "name") == field
	})
}

// Success replaces the content region with the success message.
func (p *Page) Success() error {
	return p.Custom(p.tmpl.opts.SuccessMarkup, p.tmpl.opts.ResponseID)
}

// Failure replaces the content region with the generic failure message.
func (p *Page) Failure() error {
	return p.Custom(p.tmpl.opts.FailureMarkup, p.tmpl.opts.ResponseID)
}

// Custom replaces the content region with sanitized markup and, when id is not
// empty, sets the region id. The page is left unchanged on error.
func (p *Page) Custom(markup, id string) error {
	nodes, err := p.tmpl.contentNodes(markup)
	if err != nil {
		return err
	}

	for c := p.region.FirstChild; c != nil; c = p.region.FirstChild {
		p.region.RemoveChild(c)
	}
	for _, n := range nodes {
		p.region.AppendChild(n)
	}
	if id != "" {
		setAttr(p.region, "id", id)
	}
	return nil
}

// Render serializes the page.
func (p *Page) Render() ([]byte, error) {
	var buf bytes.Buffer
	if err := xhtml.Render(&buf, p.doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Body serializes the page, falling back to PanicPage if rendering fails.
func (p *Page) Body() []byte {
	body, err := p.Render()
	if err != nil {
		return PanicPage
	}
	return body
}
