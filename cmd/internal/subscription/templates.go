package subscription

import (
	"fmt"

	"github.com/osteele/liquid"
)

// Default confirmation email sources. Bindings: name, link.
const (
	DefaultSubjectTemplate = `Welcome!`
	DefaultHTMLTemplate    = `Welcome to our newsletter, {{ name | escape }}!<br />` +
		`Click <a href="{{ link }}">here</a> to confirm your subscription.`
	DefaultTextTemplate = "Welcome to our newsletter, {{ name }}!\n" +
		"Visit {{ link }} to confirm your subscription."
)

// Templates renders the confirmation email.
type Templates struct {
	subject *liquid.Template
	html    *liquid.Template
	text    *liquid.Template
}

// NewTemplates parses the three Liquid sources.
func NewTemplates(subject, html, text string) (*Templates, error) {
	eng := liquid.NewEngine()

	parse := func(name, src string) (*liquid.Template, error) {
		tpl, serr := eng.ParseString(src)
		if serr != nil {
			return nil, fmt.Errorf("subscription: parse %s template: %w", name, serr)
		}
		return tpl, nil
	}

	var (
		t   Templates
		err error
	)
	if t.subject, err = parse("subject", subject); err != nil {
		return nil, err
	}
	if t.html, err = parse("html", html); err != nil {
		return nil, err
	}
	if t.text, err = parse("text", text); err != nil {
		return nil, err
	}
	return &t, nil
}

// DefaultTemplates returns the built-in confirmation templates.
func DefaultTemplates() *Templates {
	t, err := NewTemplates(DefaultSubjectTemplate, DefaultHTMLTemplate, DefaultTextTemplate)
	if err != nil {
		panic(err)
	}
	return t
}

// Rendered is a rendered confirmation email.
type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

// Render fills the templates for one subscriber.
func (t *Templates) Render(name, link string) (Rendered, error) {
	b := liquid.Bindings{"name": name, "link": link}

	render := func(tpl *liquid.Template) (string, error) {
		out, serr := tpl.RenderString(b)
		if serr != nil {
			return "", serr
		}
		return out, nil
	}

	var (
		r   Rendered
		err error
	)
	if r.Subject, err = render(t.subject); err != nil {
		return Rendered{}, err
	}
	if r.HTML, err = render(t.html); err != nil {
		return Rendered{}, err
	}
	if r.Text, err = render(t.text); err != nil {
		return Rendered{}, err
	}
	return r, nil
}
