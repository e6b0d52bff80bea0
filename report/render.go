package report

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
)

// Variant selects the style set: on-screen or white-background export.
type Variant int

const (
	Screen Variant = iota
	Export
)

func ParseVariant(s string) Variant {
	if s == "export" || s == "pdf" {
		return Export
	}
	return Screen
}

type styles struct {
	heading      string
	headingFirst string
	list         string
	item         string
	paragraph    string
	strong       string
	spacer       string
}

var variantStyles = map[Variant]styles{
	Screen: {
		heading:      "rd-heading",
		headingFirst: "rd-heading",
		list:         "rd-list",
		item:         "rd-item",
		paragraph:    "rd-p",
		strong:       "rd-strong",
		spacer:       "rd-spacer",
	},
	Export: {
		heading:      "ex-heading",
		headingFirst: "ex-heading ex-first",
		list:         "ex-list",
		item:         "ex-item ex-avoid-break",
		paragraph:    "ex-p ex-avoid-break",
		strong:       "ex-strong",
		spacer:       "ex-spacer",
	},
}

var htmlRenderer renderer.Renderer = goldmark.New().Renderer()

// RenderText parses and renders model output in one step.
func RenderText(text string, v Variant) (string, error) {
	return Render(Parse(text), v)
}

// Render builds a goldmark document from the blocks and renders it as HTML.
// Consecutive list items share one <ul>.
func Render(blocks []Block, v Variant) (string, error) {
	st, ok := variantStyles[v]
	if !ok {
		return "", fmt.Errorf("unknown variant %d", v)
	}

	doc := ast.NewDocument()
	var list *ast.List
	headings := 0
	for _, b := range blocks {
		if b.Kind != KindListItem {
			list = nil
		}
		switch b.Kind {
		case KindHeading:
			h := ast.NewHeading(3)
			class := st.heading
			if headings == 0 {
				class = st.headingFirst
			}
			headings++
			setClass(h, class)
			appendSpans(h, b.Spans, st)
			doc.AppendChild(doc, h)
		case KindListItem:
			if list == nil {
				list = ast.NewList('-')
				list.IsTight = true
				setClass(list, st.list)
				doc.AppendChild(doc, list)
			}
			item := ast.NewListItem(2)
			setClass(item, st.item)
			tb := ast.NewTextBlock()
			appendSpans(tb, b.Spans, st)
			item.AppendChild(item, tb)
			list.AppendChild(list, item)
		case KindSpacer:
			p := ast.NewParagraph()
			setClass(p, st.spacer)
			doc.AppendChild(doc, p)
		default:
			p := ast.NewParagraph()
			setClass(p, st.paragraph)
			appendSpans(p, b.Spans, st)
			doc.AppendChild(doc, p)
		}
	}

	var buf bytes.Buffer
	if err := htmlRenderer.Render(&buf, nil, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func setClass(n ast.Node, class string) {
	n.SetAttributeString("class", []byte(class))
}

func appendSpans(parent ast.Node, spans []Span, st styles) {
	for _, s := range spans {
		text := ast.NewString([]byte(s.Text))
		if !s.Bold {
			parent.AppendChild(parent, text)
			continue
		}
		em := ast.NewEmphasis(2)
		setClass(em, st.strong)
		em.AppendChild(em, text)
		parent.AppendChild(parent, em)
	}
}
