package page

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/ruteri/lambda-contact-page/interfaces"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	DefaultRegionTag             = "main"
	DefaultResponseID            = "response"
	DefaultErrorMarkup           = `<b class="error"></b>`
	DefaultCaptchaField          = "g-recaptcha-response"
	DefaultCaptchaContainerClass = "g-recaptcha"

	DefaultSuccessMarkup = `
<h1>Thank you for contacting us.</h1>
<p>You can expect a response within 2-3 business days.</p>
`

	DefaultFailureMarkup = `
<h1>Something went wrong.</h1>
<p>We know something is not working correctly and are working to fix it.</p>
<p>Please try to send your message again tomorrow.</p>
`
)

// PanicPage is served when not even the failure page can be rendered.
var PanicPage = []byte(`<!DOCTYPE html>
<html lang="en">
<head>
    <title>Error</title>
</head>
<body>
    <main>
        <h1>Something broke.</h1>
        <p>Please go back and try again.</p>
    </main>
</body>
</html>
`)

// Options configures how pages are rendered from a template.
type Options struct {
	// RegionTag and RegionID identify the content region; RegionID is optional.
	RegionTag string
	RegionID  string

	// ResponseID is assigned to the region by Success and Failure.
	ResponseID string

	SuccessMarkup string
	FailureMarkup string

	// ErrorMarkup is the element wrapping each annotation message.
	ErrorMarkup string
	// AnnotateAfter inserts annotations after the field instead of before it.
	AnnotateAfter bool

	CaptchaField          string
	CaptchaContainerClass string

	// Policy sanitizes all markup placed into the content region.
	Policy *bluemonday.Policy
}

func (o *Options) setDefaults() {
	if o.RegionTag == "" {
		o.RegionTag = DefaultRegionTag
	}
	if o.ResponseID == "" {
		o.ResponseID = DefaultResponseID
	}
	if o.SuccessMarkup == "" {
		o.SuccessMarkup = DefaultSuccessMarkup
	}
	if o.FailureMarkup == "" {
		o.FailureMarkup = DefaultFailureMarkup
	}
	if o.ErrorMarkup == "" {
		o.ErrorMarkup = DefaultErrorMarkup
	}
	if o.CaptchaField == "" {
		o.CaptchaField = DefaultCaptchaField
	}
	if o.CaptchaContainerClass == "" {
		o.CaptchaContainerClass = DefaultCaptchaContainerClass
	}
	if o.Policy == nil {
		o.Policy = ContentPolicy()
	}
}

// ContentPolicy is the default sanitizer for content region markup.
func ContentPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	return p
}

// Template is a parsed template page. It is never mutated; every request renders
// into its own Page copy.
type Template struct {
	doc  *html.Node
	opts Options
}

// NewTemplate parses raw and checks it can be rendered: the content region must
// exist and the configured markup must parse.
func NewTemplate(raw []byte, opts Options) (*Template, error) {
	opts.setDefaults()

	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	t := &Template{doc: doc, opts: opts}
	if t.findRegion(doc) == nil {
		return nil, fmt.Errorf("%w: <%s id=%q>", interfaces.ErrMissingContentRegion, opts.RegionTag, opts.RegionID)
	}

	if _, err := parseElement(opts.ErrorMarkup); err != nil {
		return nil, fmt.Errorf("error markup: %w", err)
	}
	for name, markup := range map[string]string{"success": opts.SuccessMarkup, "failure": opts.FailureMarkup} {
		if _, err := t.contentNodes(markup); err != nil {
			return nil, fmt.Errorf("%s markup: %w", name, err)
		}
	}

	return t, nil
}

// NewPage returns a fresh, independently mutable copy of the template.
func (t *Template) NewPage() *Page {
	doc := cloneNode(t.doc)
	return &Page{doc: doc, region: t.findRegion(doc), tmpl: t}
}

// Options returns the effective rendering options.
func (t *Template) Options() Options {
	return t.opts
}

func (t *Template) findRegion(doc *html.Node) *html.Node {
	return findElement(doc, func(n *html.Node) bool {
		if n.Data != t.opts.RegionTag {
			return false
		}
		return t.opts.RegionID == "" || attr(n, "id") == t.opts.RegionID
	})
}

// contentNodes sanitizes markup and parses it as children of the content region.
func (t *Template) contentNodes(markup string) ([]*html.Node, error) {
	clean := t.opts.Policy.Sanitize(markup)
	if strings.TrimSpace(clean) == "" {
		return nil, interfaces.ErrInvalidMarkup
	}

	nodes, err := html.ParseFragment(strings.NewReader(clean), &html.Node{
		Type:     html.ElementNode,
		Data:     t.opts.RegionTag,
		DataAtom: atom.Lookup([]byte(t.opts.RegionTag)),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidMarkup, err)
	}
	if len(nodes) == 0 {
		return nil, interfaces.ErrInvalidMarkup
	}
	return nodes, nil
}

// parseElement returns the first element of a markup fragment.
func parseElement(markup string) (*html.Node, error) {
	nodes, err := html.ParseFragment(strings.NewReader(markup), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidMarkup, err)
	}
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			return n, nil
		}
	}
	return nil, interfaces.ErrInvalidMarkup
}

func cloneNode(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(cloneNode(child))
	}
	return c
}
