package productapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nichegen/pipeline/internal/domain"
)

// decodeSearchPayload extracts the product list from the shapes this API family returns:
//
//	{"data": {"products": [...]}}
//	{"data": [...]}
//	{"products": [...]}
//	[...]
func decodeSearchPayload(body []byte) ([]map[string]any, error) {
	var payload any
	if err := json.Unmarshal(bytes.TrimSpace(body), &payload); err != nil {
		return nil, err
	}

	switch v := payload.(type) {
	case []any:
		return objectList(v), nil
	case map[string]any:
		if err := statusError(v); err != nil {
			return nil, err
		}
		if data, ok := v["data"]; ok {
			switch d := data.(type) {
			case []any:
				return objectList(d), nil
			case map[string]any:
				if products, ok := d["products"].([]any); ok {
					return objectList(products), nil
				}
				return nil, nil
			}
		}
		if products, ok := v["products"].([]any); ok {
			return objectList(products), nil
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected payload type %T", payload)
	}
}

// decodeDetailPayload returns the single product object from {"data": {...}} or a bare object.
func decodeDetailPayload(body []byte) (map[string]any, error) {
	var payload any
	if err := json.Unmarshal(bytes.TrimSpace(body), &payload); err != nil {
		return nil, err
	}

	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected payload type %T", payload)
	}
	if err := statusError(obj); err != nil {
		return nil, err
	}

	if data, ok := obj["data"]; ok {
		if d, ok := data.(map[string]any); ok {
			return d, nil
		}
		return nil, nil
	}

	delete(obj, "status")
	delete(obj, "request_id")
	return obj, nil
}

// statusError reports envelopes like {"status": "ERROR", "error": {"message": "..."}}
func statusError(obj map[string]any) error {
	status, _ := obj["status"].(string)
	if !strings.EqualFold(status, "error") {
		return nil
	}

	msg := "unknown error"
	switch e := obj["error"].(type) {
	case string:
		msg = e
	case map[string]any:
		if m, ok := e["message"].(string); ok {
			msg = m
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrAPIFailure, msg)
}

func objectList(items []any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

// toCandidates tags each product object with this source
func toCandidates(products []map[string]any) []domain.RawCandidate {
	candidates := make([]domain.RawCandidate, 0, len(products))
	for _, p := range products {
		candidates = append(candidates, domain.NewRawCandidate(SourceName, p))
	}
	return candidates
}
