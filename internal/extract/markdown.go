package extract

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

var markdownParser = goldmark.New(
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
)

// markdownText renders markdown to plain text, one block per line. When the
// document has headings, the first one is prepended as "Title: ...".
func markdownText(source []byte) (string, error) {
	doc := markdownParser.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(6),
		toc.Compact(true),
	)
	if err != nil {
		return "", fmt.Errorf("%w: inspect TOC: %v", ErrUnreadable, err)
	}

	var b strings.Builder
	if title := firstTitle(tree.Items); title != "" {
		b.WriteString("Title: ")
		b.WriteString(title)
		b.WriteString("\n\n")
	}

	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				b.Write(node.Segment.Value(source))
				if node.HardLineBreak() {
					b.WriteString("\n")
				} else if node.SoftLineBreak() {
					b.WriteString(" ")
				}
			}
		case *ast.AutoLink:
			if entering {
				b.Write(node.Label(source))
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				writeLines(&b, n, source)
				return ast.WalkSkipChildren, nil
			}
		default:
			if !entering && n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument {
				if n.Kind() != ast.KindList && n.Kind() != ast.KindBlockquote {
					b.WriteString("\n")
				}
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	return collapseBlankLines(b.String()), nil
}

func firstTitle(items toc.Items) string {
	for _, item := range items {
		if len(item.Title) > 0 {
			return string(item.Title)
		}
		if t := firstTitle(item.Items); t != "" {
			return t
		}
	}
	return ""
}

func writeLines(b *strings.Builder, n ast.Node, source []byte) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	b.WriteString("\n")
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
