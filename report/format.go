package report

import (
	"regexp"
	"strings"
)

// Kind is the rendering chosen for one line of model output.
type Kind int

const (
	KindParagraph Kind = iota
	KindHeading
	KindListItem
	KindSpacer
)

func (k Kind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindListItem:
		return "list_item"
	case KindSpacer:
		return "spacer"
	default:
		return "paragraph"
	}
}

// Span is a run of inline text, optionally bold.
type Span struct {
	Text string
	Bold bool
}

// Block is one classified line.
type Block struct {
	Kind  Kind
	Spans []Span
}

// Text joins the spans without markup.
func (b Block) Text() string {
	var sb strings.Builder
	for _, s := range b.Spans {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

var (
	headingMarker = regexp.MustCompile(`^#+\s*`)
	listMarker    = regexp.MustCompile(`^[*-]\s*`)
	boldSpan      = regexp.MustCompile(`\*\*(.*?)\*\*`)
)

// Classify sniffs the leading character of a line. A leading "**" opens a
// bold span rather than a bullet.
func Classify(line string) Kind {
	s := strings.TrimSpace(line)
	switch {
	case s == "":
		return KindSpacer
	case strings.HasPrefix(s, "#"):
		return KindHeading
	case strings.HasPrefix(s, "-"):
		return KindListItem
	case strings.HasPrefix(s, "*") && !strings.HasPrefix(s, "**"):
		return KindListItem
	default:
		return KindParagraph
	}
}

// Parse classifies every line independently.
func Parse(text string) []Block {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	blocks := make([]Block, 0, len(lines))
	for _, line := range lines {
		s := strings.TrimSpace(line)
		switch k := Classify(line); k {
		case KindHeading:
			blocks = append(blocks, Block{Kind: k, Spans: []Span{{Text: headingMarker.ReplaceAllString(s, "")}}})
		case KindListItem:
			blocks = append(blocks, Block{Kind: k, Spans: inlineSpans(listMarker.ReplaceAllString(s, ""))})
		case KindSpacer:
			blocks = append(blocks, Block{Kind: k})
		default:
			blocks = append(blocks, Block{Kind: k, Spans: inlineSpans(s)})
		}
	}
	return blocks
}

func inlineSpans(s string) []Span {
	var spans []Span
	last := 0
	for _, m := range boldSpan.FindAllStringSubmatchIndex(s, -1) {
		if m[0] > last {
			spans = append(spans, Span{Text: s[last:m[0]]})
		}
		if m[3] > m[2] {
			spans = append(spans, Span{Text: s[m[2]:m[3]], Bold: true})
		}
		last = m[1]
	}
	if last < len(s) {
		spans = append(spans, Span{Text: s[last:]})
	}
	return spans
}
