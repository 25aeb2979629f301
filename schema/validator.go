// Package docschema validates batch-import document payloads against the
// embedded JSON Schema plus semantic rules the schema cannot express.
package docschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"horse.fit/shelf/internal/document"
)

//go:embed document.schema.json
var documentSchemaJSON string

// DocumentPayload is one importable document. URL is the only required
// field; pointers distinguish absent optional fields from empty ones.
type DocumentPayload struct {
	URL           string   `json:"url"`
	Title         *string  `json:"title,omitempty"`
	Author        *string  `json:"author,omitempty"`
	Summary       *string  `json:"summary,omitempty"`
	PublishedDate *string  `json:"published_date,omitempty"`
	ImageURL      *string  `json:"image_url,omitempty"`
	Location      *string  `json:"location,omitempty"`
	Category      *string  `json:"category,omitempty"`
	Notes         *string  `json:"notes,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateDocumentPayload checks one JSON object against the schema and the
// semantic rules and returns the decoded payload.
func ValidateDocumentPayload(payload json.RawMessage) (*DocumentPayload, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var doc DocumentPayload
	if err := json.Unmarshal(normalized, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

// ValidateDocumentPayloads accepts either a single payload object or a JSON
// array of payloads and validates every element.
func ValidateDocumentPayloads(raw json.RawMessage) ([]*DocumentPayload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	if trimmed[0] != '[' {
		doc, err := ValidateDocumentPayload(trimmed)
		if err != nil {
			return nil, err
		}
		return []*DocumentPayload{doc}, nil
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(trimmed, &elements); err != nil {
		return nil, fmt.Errorf("decode payload array: %w", err)
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("payload array is empty")
	}

	docs := make([]*DocumentPayload, 0, len(elements))
	for i, element := range elements {
		doc, err := ValidateDocumentPayload(element)
		if err != nil {
			return nil, fmt.Errorf("payload[%d]: %w", i, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// ToSaveRequest converts a validated payload into the store save shape.
func (p *DocumentPayload) ToSaveRequest() document.SaveRequest {
	req := document.SaveRequest{
		URL:           strings.TrimSpace(p.URL),
		Title:         optionalString(p.Title),
		Author:        optionalString(p.Author),
		Summary:       optionalString(p.Summary),
		PublishedDate: optionalString(p.PublishedDate),
		ImageURL:      optionalString(p.ImageURL),
		Location:      optionalString(p.Location),
		Category:      optionalString(p.Category),
		Notes:         optionalString(p.Notes),
	}
	for _, tag := range p.Tags {
		req.Tags = append(req.Tags, strings.TrimSpace(tag))
	}
	return req
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("document.schema.json", strings.NewReader(documentSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("document.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(doc *DocumentPayload) error {
	if doc == nil {
		return fmt.Errorf("payload is nil")
	}

	if err := validateURI("url", doc.URL); err != nil {
		return err
	}
	if doc.ImageURL != nil {
		if err := validateURI("image_url", *doc.ImageURL); err != nil {
			return err
		}
	}

	if doc.Location != nil {
		location := strings.TrimSpace(*doc.Location)
		if !document.IsValidLocation(location) {
			return fmt.Errorf("location must be one of %s", strings.Join(document.ValidLocations, ", "))
		}
	}
	if doc.Category != nil {
		category := strings.TrimSpace(*doc.Category)
		if !document.IsValidCategory(category) {
			return fmt.Errorf("category must be one of %s", strings.Join(document.ValidCategories, ", "))
		}
	}

	if doc.PublishedDate != nil {
		if _, ok := document.ParseTime(*doc.PublishedDate); !ok {
			return fmt.Errorf("published_date must be a recognized timestamp: %q", *doc.PublishedDate)
		}
	}

	for i, tag := range doc.Tags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("tags[%d] must not be empty", i)
		}
	}

	return nil
}

func validateURI(fieldName, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s must not be empty", fieldName)
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return fmt.Errorf("%s is not a valid URI: %w", fieldName, err)
	}
	return nil
}

func optionalString(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
