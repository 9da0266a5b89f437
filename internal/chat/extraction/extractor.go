// Package extraction runs the second, JSON-constrained LLM pass that
// normalizes a shopping query into a category/price document. Everything
// here is best effort: the result is a hint and failures yield an empty
// document rather than an error.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"storefront-workers/internal/common/logger"
	"storefront-workers/internal/models"
)

const promptTemplate = `Extract shopping category and price information from the customer message below.
Respond with ONLY a JSON object, no prose, no code fences, matching exactly this shape:
{"main_category": string or null, "subcategory": string or null, "sub_subcategory": string or null, "min_price": number or null, "max_price": number or null}
Use null for anything not present in the message.

Customer message: %q`

const resultSchema = `{
	"type": "object",
	"properties": {
		"main_category":   {"type": ["string", "null"]},
		"subcategory":     {"type": ["string", "null"]},
		"sub_subcategory": {"type": ["string", "null"]},
		"min_price":       {"type": ["number", "null"]},
		"max_price":       {"type": ["number", "null"]}
	}
}`

var schema = gojsonschema.NewStringLoader(resultSchema)

// Dispatcher is the single-shot completion capability the extractor needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, prompt, modelOverride string) (string, error)
	IsConfigured() bool
}

// Extractor asks a stronger model for structured category info.
type Extractor struct {
	dispatcher Dispatcher
	model      string
	logger     logger.Logger
}

func New(dispatcher Dispatcher, model string, log logger.Logger) *Extractor {
	return &Extractor{dispatcher: dispatcher, model: model, logger: log}
}

// Extract returns structured category hints for the message. It never
// returns an error: an unconfigured dispatcher, a failed request, or an
// unparseable reply all yield the empty document.
func (e *Extractor) Extract(ctx context.Context, text string) models.StructuredCategoryInfo {
	var empty models.StructuredCategoryInfo
	if !e.dispatcher.IsConfigured() {
		return empty
	}

	reply, err := e.dispatcher.Dispatch(ctx, fmt.Sprintf(promptTemplate, text), e.model)
	if err != nil {
		e.logger.Warn("structured extraction request failed", map[string]interface{}{
			"error": err.Error(),
		})
		return empty
	}

	info, err := parseFirstJSONObject(reply)
	if err != nil {
		e.logger.Debug("structured extraction reply not parseable", map[string]interface{}{
			"error": err.Error(),
		})
		return empty
	}
	return info
}

// parseFirstJSONObject locates the first brace-delimited JSON object in the
// reply, validates its shape, and decodes it. The model sometimes wraps the
// object in prose despite instructions, so everything before the first brace
// and everything after the object is ignored.
func parseFirstJSONObject(reply string) (models.StructuredCategoryInfo, error) {
	var info models.StructuredCategoryInfo

	idx := strings.Index(reply, "{")
	if idx < 0 {
		return info, fmt.Errorf("no JSON object in reply")
	}

	var raw map[string]interface{}
	dec := json.NewDecoder(strings.NewReader(reply[idx:]))
	if err := dec.Decode(&raw); err != nil {
		return info, fmt.Errorf("decode object: %w", err)
	}

	result, err := gojsonschema.Validate(schema, gojsonschema.NewGoLoader(raw))
	if err != nil {
		return info, fmt.Errorf("validate object: %w", err)
	}
	if !result.Valid() {
		return info, fmt.Errorf("object does not match schema: %v", result.Errors())
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal(encoded, &info); err != nil {
		return info, fmt.Errorf("map object: %w", err)
	}
	return info, nil
}
