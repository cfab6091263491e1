package document

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/relevance/internal/jsonx"
)

// JSON keys recognized in a document file. Other keys are ignored.
const (
	KeyTitle           = "title"
	KeyContent         = "content"
	KeyContentFallback = "text"
)

// ErrNotObject signals a document file whose top-level JSON value is not an object.
var ErrNotObject = errors.New("document must be a JSON object")

// Document is an article as seen by the classifier (immutable value object).
type Document struct {
	title   string
	content string
}

// New creates a Document. Empty fields are allowed.
func New(title, content string) Document {
	return Document{title: title, content: content}
}

// Title returns the article title.
func (d Document) Title() string { return d.title }

// Content returns the article body.
func (d Document) Content() string { return d.content }

// Text returns the classifier input: title and content joined by a single space.
// The separator is always present, so an empty document yields " ".
func (d Document) Text() string { return d.title + " " + d.content }

// Parse decodes a document file.
// Missing or null fields default to "". Content falls back to the "text" key
// when "content" is missing or empty. A recognized key holding a non-string
// value is an error, as is any top-level value other than an object.
func Parse(data []byte) (Document, error) {
	var raw any
	if err := jsonx.Unmarshal(data, &raw); err != nil {
		return Document{}, fmt.Errorf("decode json: %w", err)
	}
	fields, ok := raw.(map[string]any)
	if !ok {
		return Document{}, ErrNotObject
	}

	title, err := stringField(fields, KeyTitle)
	if err != nil {
		return Document{}, err
	}
	content, err := stringField(fields, KeyContent)
	if err != nil {
		return Document{}, err
	}
	if content == "" {
		content, err = stringField(fields, KeyContentFallback)
		if err != nil {
			return Document{}, err
		}
	}
	return New(title, content), nil
}

func stringField(fields map[string]any, key string) (string, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q must be a string, got %T", key, v)
	}
	return s, nil
}
