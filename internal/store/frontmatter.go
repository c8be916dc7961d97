package store

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	kasherrors "github.com/kashrun/kash/pkg/errors"
	"github.com/kashrun/kash/internal/item"
)

const frontmatterDelim = "---"

// encodeFrontmatter renders an item as "---\n<yaml>\n---\n<body>", in the
// stable key order item.Item.Metadata() returns.
func encodeFrontmatter(it item.Item) ([]byte, error) {
	fields := it.Metadata()

	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range fields {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: f.Key}
		valNode := &yaml.Node{}
		if err := valNode.Encode(f.Value); err != nil {
			return nil, fmt.Errorf("encoding frontmatter field %q: %w", f.Key, err)
		}
		node.Content = append(node.Content, keyNode, valNode)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return nil, fmt.Errorf("marshaling frontmatter: %w", err)
	}
	enc.Close()

	var out bytes.Buffer
	out.WriteString(frontmatterDelim)
	out.WriteByte('\n')
	out.Write(buf.Bytes())
	out.WriteString(frontmatterDelim)
	out.WriteByte('\n')
	if it.Body != "" {
		out.WriteString(it.Body)
	}
	return out.Bytes(), nil
}

// decodeFrontmatter splits raw file content into its YAML frontmatter map
// and body text. Content with no frontmatter delimiters is treated as a
// bodyless file (frontmatter=nil, body=the whole content) rather than an
// error — callers decide whether that is acceptable for the format.
func decodeFrontmatter(raw []byte) (meta map[string]any, body string, err error) {
	s := string(raw)
	if !strings.HasPrefix(s, frontmatterDelim) {
		return nil, s, nil
	}

	rest := s[len(frontmatterDelim):]
	rest = strings.TrimPrefix(rest, "\n")
	end := strings.Index(rest, "\n"+frontmatterDelim)
	if end < 0 {
		return nil, "", &kasherrors.SkippableError{
			Path:  "",
			Cause: fmt.Errorf("unterminated frontmatter block"),
		}
	}

	yamlPart := rest[:end]
	bodyPart := rest[end+len("\n"+frontmatterDelim):]
	bodyPart = strings.TrimPrefix(bodyPart, "\n")

	var m map[string]any
	if err := yaml.Unmarshal([]byte(yamlPart), &m); err != nil {
		return nil, "", &kasherrors.SkippableError{
			Path:  "",
			Cause: fmt.Errorf("invalid frontmatter YAML: %w", err),
		}
	}
	return m, bodyPart, nil
}
