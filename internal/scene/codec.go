package scene

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var (
	ErrUnknownKind       = errors.New("unknown object type")
	ErrUnknownBackground = errors.New("unknown background kind")
)

type documentJSON struct {
	Version          int               `json:"version"`
	Background       Background        `json:"background"`
	Objects          []json.RawMessage `json:"objects"`
	RenderedImage    string            `json:"renderedImage,omitempty"`
	RenderedImageURL string            `json:"renderedImageUrl,omitempty"`
}

// MarshalJSON writes the document in its persisted form. Objects carry a
// "type" discriminator.
func (d Document) MarshalJSON() ([]byte, error) {
	out := documentJSON{
		Version:          d.Version,
		Background:       d.Background,
		Objects:          make([]json.RawMessage, 0, len(d.Objects)),
		RenderedImage:    d.RenderedImage,
		RenderedImageURL: d.RenderedImageURL,
	}
	for i, o := range d.Objects {
		raw, err := MarshalObject(o)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		out.Objects = append(out.Objects, raw)
	}
	return json.Marshal(out)
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var in documentJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Background.Kind {
	case BackgroundTemplate, BackgroundImage:
	case "":
		in.Background = TemplateBackground(FullPitch)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackground, in.Background.Kind)
	}

	objects := make([]Object, 0, len(in.Objects))
	for i, raw := range in.Objects {
		o, err := UnmarshalObject(raw)
		if err != nil {
			return fmt.Errorf("object %d: %w", i, err)
		}
		objects = append(objects, o)
	}

	*d = Document{
		Version:          in.Version,
		Background:       in.Background,
		Objects:          objects,
		RenderedImage:    in.RenderedImage,
		RenderedImageURL: in.RenderedImageURL,
	}
	return nil
}

// MarshalObject encodes a single object with its "type" field.
func MarshalObject(o Object) ([]byte, error) {
	switch v := o.(type) {
	case Player:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			Player
		}{KindPlayer, v})
	case Cone:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			Cone
		}{KindCone, v})
	case Goal:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			Goal
		}{KindGoal, v})
	case Ball:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			Ball
		}{KindBall, v})
	case Rect:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			Rect
		}{KindRect, v})
	case Circle:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			Circle
		}{KindCircle, v})
	case Arrow:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			Arrow
		}{KindArrow, v})
	case Text:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			Text
		}{KindText, v})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, o)
	}
}

// UnmarshalObject decodes a single object, dispatching on its "type" field.
func UnmarshalObject(data []byte) (Object, error) {
	var head struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	switch head.Type {
	case KindPlayer:
		return decodeAs[Player](data)
	case KindCone:
		return decodeAs[Cone](data)
	case KindGoal:
		return decodeAs[Goal](data)
	case KindBall:
		return decodeAs[Ball](data)
	case KindRect:
		return decodeAs[Rect](data)
	case KindCircle:
		return decodeAs[Circle](data)
	case KindArrow:
		return decodeAs[Arrow](data)
	case KindText:
		return decodeAs[Text](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, head.Type)
	}
}

func decodeAs[T Object](data []byte) (Object, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Decode parses a persisted document. An empty or "null" blob yields an
// empty document.
func Decode(data []byte) (Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return New(), nil
	}
	var d Document
	if err := json.Unmarshal(trimmed, &d); err != nil {
		return Document{}, err
	}
	EnsureUniqueIDs(&d, UUIDGenerator{})
	return d, nil
}

// ReadFile loads a document from a JSON file.
func ReadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	d, err := Decode(data)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// WriteFile stores a document as indented JSON.
func WriteFile(d Document, path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
