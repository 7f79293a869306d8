// Package richtext converts between plain text and the ProseMirror-style
// document JSON the platform stores for descriptions and comments.
//
// Only paragraphs and single-level bullet lists are modeled; the round trip
// is intentionally lossy for anything richer.
package richtext

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Node is one node of the document tree.
type Node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []Node         `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
}

// Mark is a text formatting mark. Decoding ignores marks; the type exists
// so documents written by the platform's own editor unmarshal cleanly.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

var bulletLine = regexp.MustCompile(`^[-*]\s*(.*)$`)

// Encode builds a document tree from plain text. A run of consecutive
// `-`/`*` lines becomes one bulletList; every other line (blank included)
// becomes a paragraph.
func Encode(plain string) Node {
	normalized := strings.ReplaceAll(plain, "\r\n", "\n")
	doc := Node{Type: "doc"}

	var run []Node
	flush := func() {
		if len(run) > 0 {
			doc.Content = append(doc.Content, Node{Type: "bulletList", Content: run})
			run = nil
		}
	}

	for _, line := range strings.Split(normalized, "\n") {
		if m := bulletLine.FindStringSubmatch(line); m != nil {
			run = append(run, listItem(m[1]))
			continue
		}
		flush()
		doc.Content = append(doc.Content, paragraph(strings.TrimSpace(line)))
	}
	flush()
	return doc
}

// EncodeJSON returns the serialized document, the form that comment bodies
// and collaborative-doc uploads carry on the wire.
func EncodeJSON(plain string) string {
	data, err := json.Marshal(Encode(plain))
	if err != nil {
		return plain
	}
	return string(data)
}

// Decode renders a serialized document back to plain text. Malformed or
// unrecognized input comes back unchanged; this path never fails.
func Decode(raw string) string {
	var doc Node
	if err := json.Unmarshal([]byte(raw), &doc); err != nil || doc.Type != "doc" {
		return raw
	}

	var lines []string
	for _, block := range doc.Content {
		switch block.Type {
		case "paragraph":
			lines = append(lines, textOf(block))
		case "bulletList":
			for _, item := range block.Content {
				lines = append(lines, "- "+textOf(item))
			}
		default:
			if text := textOf(block); text != "" {
				lines = append(lines, text)
			}
		}
	}
	return strings.Join(lines, "\n")
}

func paragraph(text string) Node {
	if text == "" {
		return Node{Type: "paragraph"}
	}
	return Node{Type: "paragraph", Content: []Node{{Type: "text", Text: text}}}
}

func listItem(text string) Node {
	return Node{Type: "listItem", Content: []Node{paragraph(text)}}
}

// textOf concatenates every text node under n.
func textOf(n Node) string {
	if n.Type == "text" {
		return n.Text
	}
	var b strings.Builder
	for _, child := range n.Content {
		b.WriteString(textOf(child))
	}
	return b.String()
}
