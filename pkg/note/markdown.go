package note

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ToMarkdown converts the editor's HTML into Markdown.
func ToMarkdown(src string) (string, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(src), body)
	if err != nil {
		return "", fmt.Errorf("failed to parse note: %w", err)
	}

	var b strings.Builder
	for _, n := range nodes {
		writeBlock(&b, n, 0)
	}
	return tidy(b.String()), nil
}

func writeBlock(b *strings.Builder, n *html.Node, depth int) {
	switch n.Type {
	case html.TextNode:
		if text := strings.TrimSpace(collapseSpace(n.Data)); text != "" {
			b.WriteString(text)
			b.WriteString("\n\n")
		}
		return
	case html.ElementNode:
	default:
		return
	}

	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level := int(n.Data[1] - '0')
		b.WriteString(strings.Repeat("#", level))
		b.WriteString(" ")
		b.WriteString(strings.TrimSpace(inline(n)))
		b.WriteString("\n\n")

	case atom.P:
		b.WriteString(strings.TrimSpace(inline(n)))
		b.WriteString("\n\n")

	case atom.Ul, atom.Ol:
		writeList(b, n, depth)
		if depth == 0 {
			b.WriteString("\n")
		}

	case atom.Blockquote:
		var inner strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeBlock(&inner, c, depth)
		}
		for _, line := range strings.Split(strings.TrimSpace(inner.String()), "\n") {
			if line == "" {
				b.WriteString(">\n")
				continue
			}
			b.WriteString("> ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")

	case atom.Pre:
		b.WriteString("```\n")
		b.WriteString(strings.TrimRight(textContent(n), "\n"))
		b.WriteString("\n```\n\n")

	case atom.Hr:
		b.WriteString("---\n\n")

	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeBlock(b, c, depth)
		}
	}
}

func writeList(b *strings.Builder, list *html.Node, depth int) {
	ordered := list.DataAtom == atom.Ol
	tasks := attr(list, "data-type") == "taskList"
	index := 1

	for li := list.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.DataAtom != atom.Li {
			continue
		}

		b.WriteString(strings.Repeat("  ", depth))
		if ordered {
			fmt.Fprintf(b, "%d. ", index)
			index++
		} else {
			b.WriteString("- ")
		}
		if tasks {
			if attr(li, "data-checked") == "true" {
				b.WriteString("[x] ")
			} else {
				b.WriteString("[ ] ")
			}
		}
		b.WriteString(strings.TrimSpace(collapseSpace(inline(li))))
		b.WriteString("\n")

		for _, nested := range nestedLists(li) {
			writeList(b, nested, depth+1)
		}
	}
}

// inline renders n's children as inline Markdown, skipping nested lists.
func inline(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeInline(&b, c)
	}
	return b.String()
}

func writeInline(b *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		b.WriteString(collapseSpace(n.Data))
		return
	}
	if n.Type != html.ElementNode {
		return
	}

	switch n.DataAtom {
	case atom.Ul, atom.Ol, atom.Label, atom.Input:
		return
	case atom.Strong, atom.B:
		wrap(b, "**", inline(n))
	case atom.Em, atom.I:
		wrap(b, "*", inline(n))
	case atom.S, atom.Del, atom.Strike:
		wrap(b, "~~", inline(n))
	case atom.Code:
		wrap(b, "`", textContent(n))
	case atom.A:
		fmt.Fprintf(b, "[%s](%s)", strings.TrimSpace(inline(n)), attr(n, "href"))
	case atom.Br:
		b.WriteString("\n")
	case atom.P, atom.Div:
		text := strings.TrimSpace(inline(n))
		if text == "" {
			return
		}
		if b.Len() > 0 && !strings.HasSuffix(b.String(), " ") {
			b.WriteString(" ")
		}
		b.WriteString(text)
	default:
		b.WriteString(inline(n))
	}
}

func wrap(b *strings.Builder, marker, text string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return
	}
	b.WriteString(marker)
	b.WriteString(trimmed)
	b.WriteString(marker)
}

func nestedLists(li *html.Node) []*html.Node {
	var lists []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if c.DataAtom == atom.Ul || c.DataAtom == atom.Ol {
				lists = append(lists, c)
				continue
			}
			walk(c)
		}
	}
	walk(li)
	return lists
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func collapseSpace(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return s
}

// tidy trims the output and limits blank lines to one.
func tidy(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return s + "\n"
}

// MarkdownExporter writes the note as a Markdown file.
type MarkdownExporter struct {
	now func() time.Time
}

// NewMarkdownExporter creates an exporter stamping metadata with the wall
// clock.
func NewMarkdownExporter() *MarkdownExporter {
	return &MarkdownExporter{now: time.Now}
}

// Export converts content and writes it to path, preceded by a front matter
// block when includeMetadata is set.
func (e *MarkdownExporter) Export(content, path string, includeMetadata bool) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("markdown export path is not configured")
	}
	path, err := expandHome(path)
	if err != nil {
		return err
	}

	body, err := ToMarkdown(content)
	if err != nil {
		return err
	}

	var b strings.Builder
	if includeMetadata {
		b.WriteString("---\n")
		b.WriteString("source: quicknote\n")
		fmt.Fprintf(&b, "exported_at: %s\n", e.now().UTC().Format(time.RFC3339))
		b.WriteString("---\n\n")
	}
	b.WriteString(body)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write markdown export: %w", err)
	}
	return nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
