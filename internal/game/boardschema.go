package game

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const boardSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["hexes", "vertices", "edges"],
  "properties": {
    "hexes": {
      "type": "array",
      "minItems": 1,
      "maxItems": 64,
      "items": {
        "type": "object",
        "required": ["id", "x", "y", "resource"],
        "properties": {
          "id": {"type": "integer", "minimum": 0},
          "q": {"type": "integer"},
          "r": {"type": "integer"},
          "x": {"type": "number"},
          "y": {"type": "number"},
          "resource": {"enum": ["forest", "hill", "mountain", "field", "pasture", "desert"]},
          "number": {"type": ["integer", "null"], "minimum": 0, "maximum": 12}
        }
      }
    },
    "vertices": {
      "type": "array",
      "maxItems": 256,
      "items": {
        "type": "object",
        "required": ["id", "x", "y"],
        "properties": {
          "id": {"type": "integer", "minimum": 0},
          "x": {"type": "number"},
          "y": {"type": "number"}
        }
      }
    },
    "edges": {
      "type": "array",
      "maxItems": 512,
      "items": {
        "type": "object",
        "required": ["id", "v1", "v2"],
        "properties": {
          "id": {"type": "integer", "minimum": 0},
          "v1": {"type": "integer", "minimum": 0},
          "v2": {"type": "integer", "minimum": 0}
        }
      }
    },
    "ports": {
      "type": "array",
      "maxItems": 32,
      "items": {
        "type": "object",
        "required": ["type", "v1", "v2"],
        "properties": {
          "type": {"enum": ["any", "forest", "hill", "mountain", "field", "pasture"]},
          "v1": {"type": "integer", "minimum": 0},
          "v2": {"type": "integer", "minimum": 0}
        }
      }
    }
  }
}`

var boardSchema = jsonschema.MustCompileString("board.schema.json", boardSchemaJSON)

// DecodeBoard parses client-supplied board data. The payload is checked
// against the board schema, ownership is stripped and adjacency is rebuilt
// from geometry, so nothing the client claims about placement is trusted.
func DecodeBoard(raw []byte) (*Board, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBoard, err)
	}
	if err := boardSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBoard, err)
	}
	var b Board
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBoard, err)
	}
	if b.Ports == nil {
		b.Ports = []Port{}
	}
	for _, h := range b.Hexes {
		if h.Resource != Desert && (h.Number < 2 || h.Number > 12 || h.Number == 7) {
			return nil, fmt.Errorf("%w: hex %d has token %d", ErrInvalidBoard, h.ID, h.Number)
		}
	}
	b.clearOwnership()
	if err := b.index(); err != nil {
		return nil, err
	}
	return &b, nil
}
