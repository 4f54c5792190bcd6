package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// BoundingBox is the canonical origin/extent rectangle stored on an image
// record. Inputs arrive in one of two JSON shapes (see BoundingBoxInput)
// and are normalized to this form before they touch storage.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Flatten renders the 4-field comma-joined form used by CSV export.
func (b BoundingBox) Flatten() string {
	parts := []string{
		formatCoord(b.X),
		formatCoord(b.Y),
		formatCoord(b.Width),
		formatCoord(b.Height),
	}
	return strings.Join(parts, ",")
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Value stores the box as a JSON document (jsonb on postgres). A nil box
// stores as NULL.
func (b *BoundingBox) Value() (driver.Value, error) {
	if b == nil {
		return nil, nil
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (b *BoundingBox) Scan(src any) error {
	if src == nil {
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported bounding box column type %T", src)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, b)
}

// Corner is one point of the corner-pair input shape.
type Corner struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundingBoxInput accepts both rectangle shapes the upload clients send:
// origin/extent {x,y,width,height} and corner-pair {topLeft,bottomRight}.
// When both are structurally present the origin/extent form wins.
type BoundingBoxInput struct {
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`

	TopLeft     *Corner `json:"topLeft,omitempty"`
	BottomRight *Corner `json:"bottomRight,omitempty"`
}

// Normalize converts the input to the canonical representation. A nil
// input yields a nil box. An input that carries neither complete shape is
// a validation error.
func (in *BoundingBoxInput) Normalize() (*BoundingBox, error) {
	if in == nil {
		return nil, nil
	}
	if in.X != nil && in.Y != nil && in.Width != nil && in.Height != nil {
		return &BoundingBox{X: *in.X, Y: *in.Y, Width: *in.Width, Height: *in.Height}, nil
	}
	if in.TopLeft != nil && in.BottomRight != nil {
		return &BoundingBox{
			X:      in.TopLeft.X,
			Y:      in.TopLeft.Y,
			Width:  in.BottomRight.X - in.TopLeft.X,
			Height: in.BottomRight.Y - in.TopLeft.Y,
		}, nil
	}
	return nil, &ValidationError{
		Field:  "boundingBox",
		Reason: "expected either {x,y,width,height} or {topLeft,bottomRight}",
	}
}

// ParseBoundingBoxInput decodes a raw JSON value as sent in multipart form
// fields. Empty and literal "undefined" values are treated as absent, the
// same way the upload clients have always sent them.
func ParseBoundingBoxInput(raw string) (*BoundingBoxInput, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "undefined" || raw == "null" {
		return nil, nil
	}
	var in BoundingBoxInput
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return nil, &ValidationError{Field: "boundingBox", Reason: "malformed JSON: " + err.Error()}
	}
	return &in, nil
}
