// Package frontmatter splits a leading YAML block off page templates.
package frontmatter

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document opened a front matter
// block but never closed it.
var ErrMissingClosingDelimiter = errors.New("front matter start delimiter found but closing delimiter is missing")

// Split separates a `---` delimited YAML block from the rest of the page.
//
// If content does not start with the delimiter, had is false and body is the
// full input.
func Split(content []byte) (front []byte, body []byte, had bool, err error) {
	nl := newline(content)
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, nil
	}

	start := len(open)
	if bytes.HasPrefix(content[start:], open) {
		return []byte{}, content[start+len(open):], true, nil
	}

	closeSeq := []byte(nl + "---" + nl)
	idx := bytes.Index(content[start:], closeSeq)
	if idx < 0 {
		return nil, nil, false, ErrMissingClosingDelimiter
	}
	return content[start : start+idx+len(nl)], content[start+idx+len(closeSeq):], true, nil
}

// Parse splits content and decodes the front matter. Pages without a block
// yield an empty map and the untouched content.
func Parse(content []byte) (map[string]any, []byte, error) {
	front, body, had, err := Split(content)
	if err != nil {
		return nil, nil, err
	}
	fields := map[string]any{}
	if !had || len(front) == 0 {
		return fields, body, nil
	}
	if err := yaml.Unmarshal(front, &fields); err != nil {
		return nil, nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, body, nil
}

func newline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
