package worksheet

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// FormatVersion is the version written by Encode and the only one Decode accepts.
const FormatVersion = 1

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// isolate json usage so Element.MarshalJSON and Encode share one encoder setup.
var (
	jsonMarshal   = json.Marshal
	jsonUnmarshal = json.Unmarshal
)

type (
	documentRecord struct {
		Version  int               `json:"version"`
		Canvas   Canvas            `json:"canvas"`
		Outline  bool              `json:"outline,omitempty"`
		Elements []json.RawMessage `json:"elements"`
	}

	elementHeader struct {
		ID     string `json:"id"`
		ZOrder int    `json:"zOrder"`
	}

	taggedHeader struct {
		elementHeader
		Kind string `json:"kind"`
	}

	shapeRecord struct {
		elementHeader
		Shape
	}

	compoundRecord struct {
		elementHeader
		Kind string `json:"kind"`
		Compound
	}

	labelRecord struct {
		elementHeader
		Kind string `json:"kind"`
		Label
	}
)

func encodeElement(el Element) (interface{}, error) {
	hdr := elementHeader{ID: el.ID, ZOrder: el.ZOrder}
	switch b := el.Body.(type) {
	case *Shape:
		return shapeRecord{elementHeader: hdr, Shape: *b}, nil
	case *Compound:
		return compoundRecord{elementHeader: hdr, Kind: string(TypeCompound), Compound: *b}, nil
	case *Label:
		return labelRecord{elementHeader: hdr, Kind: string(TypeLabel), Label: *b}, nil
	}
	return nil, errors.Errorf("element %q has no body", el.ID)
}

// Encode serializes the document into the versioned JSON format. Documents
// that Decode would reject are refused with a *CorruptDocumentError and
// nothing is written.
func Encode(d *Document) ([]byte, error) {
	if err := Check(d); err != nil {
		return nil, err
	}
	rec := documentRecord{
		Version:  FormatVersion,
		Canvas:   d.Canvas,
		Outline:  d.Outline,
		Elements: make([]json.RawMessage, 0, len(d.elements)),
	}
	for _, el := range d.elements {
		er, err := encodeElement(el)
		if err != nil {
			return nil, err
		}
		raw, err := jsonMarshal(er)
		if err != nil {
			return nil, errors.Wrapf(err, "encoding element %q", el.ID)
		}
		rec.Elements = append(rec.Elements, raw)
	}
	return jsonMarshal(rec)
}

// Check reports every problem that would stop d from surviving an
// Encode/Decode round trip.
func Check(d *Document) error {
	var problems []ElementProblem
	if err := validate.Struct(d.Canvas); err != nil {
		problems = append(problems, ElementProblem{Index: -1, Reason: "canvas: " + describe(err)})
	}
	for i, el := range d.elements {
		if reason := bodyProblem(el.Body); reason != "" {
			problems = append(problems, ElementProblem{Index: i, ID: el.ID, Kind: el.Kind(), Reason: reason})
		}
	}
	if len(problems) > 0 {
		return &CorruptDocumentError{Problems: problems}
	}
	return nil
}

type decodeOptions struct {
	skipCorrupt bool
}

type DecodeOption func(*decodeOptions)

// SkipCorrupt makes Decode keep every element it can rebuild. When only
// elements are corrupt the document is returned together with the
// *CorruptDocumentError reporting what was dropped.
func SkipCorrupt() DecodeOption {
	return func(o *decodeOptions) { o.skipCorrupt = true }
}

// Decode rebuilds a document produced by Encode. Any unknown kind, missing
// geometry, duplicate ID or out-of-order zOrder yields a *CorruptDocumentError.
func Decode(data []byte, opts ...DecodeOption) (*Document, error) {
	var o decodeOptions
	for _, opt := range opts {
		opt(&o)
	}

	var rec documentRecord
	if err := jsonUnmarshal(data, &rec); err != nil {
		return nil, &CorruptDocumentError{Problems: []ElementProblem{{Index: -1, Reason: "invalid JSON: " + err.Error()}}}
	}
	if rec.Version != FormatVersion {
		return nil, &CorruptDocumentError{Problems: []ElementProblem{{
			Index:  -1,
			Reason: fmt.Sprintf("unsupported format version %d", rec.Version),
		}}}
	}
	if err := validate.Struct(rec.Canvas); err != nil {
		return nil, &CorruptDocumentError{Problems: []ElementProblem{{Index: -1, Reason: "canvas: " + describe(err)}}}
	}

	d := New(rec.Canvas)
	d.Outline = rec.Outline

	var problems []ElementProblem
	lastZ := -1
	for i, raw := range rec.Elements {
		el, problem := decodeElement(raw)
		if problem == "" {
			switch _, dup := d.index[el.ID]; {
			case dup:
				problem = "duplicate id"
			case el.ZOrder <= lastZ:
				problem = fmt.Sprintf("zOrder %d is not greater than %d", el.ZOrder, lastZ)
			}
		}
		if problem != "" {
			problems = append(problems, ElementProblem{Index: i, ID: el.ID, Kind: el.kindTag, Reason: problem})
			continue
		}
		lastZ = el.ZOrder
		d.index[el.ID] = len(d.elements)
		d.elements = append(d.elements, el.Element)
	}
	d.nextZ = lastZ + 1

	if len(problems) > 0 {
		err := &CorruptDocumentError{Problems: problems}
		if o.skipCorrupt {
			return d, err
		}
		return nil, err
	}
	return d, nil
}

type decodedElement struct {
	Element
	kindTag string
}

func decodeElement(raw json.RawMessage) (decodedElement, string) {
	var hdr taggedHeader
	if err := jsonUnmarshal(raw, &hdr); err != nil {
		return decodedElement{}, "invalid JSON: " + err.Error()
	}
	out := decodedElement{Element: Element{ID: hdr.ID, ZOrder: hdr.ZOrder}, kindTag: hdr.Kind}
	if strings.TrimSpace(hdr.ID) == "" {
		return out, "missing id"
	}
	if hdr.ZOrder < 0 {
		return out, "negative zOrder"
	}

	switch {
	case hdr.Kind == string(TypeCompound):
		var rec compoundRecord
		if err := jsonUnmarshal(raw, &rec); err != nil {
			return out, "invalid compound: " + err.Error()
		}
		c := rec.Compound
		out.Body = &c
	case hdr.Kind == string(TypeLabel):
		var rec labelRecord
		if err := jsonUnmarshal(raw, &rec); err != nil {
			return out, "invalid label: " + err.Error()
		}
		l := rec.Label
		out.Body = &l
	case Kind(hdr.Kind).Valid():
		var rec shapeRecord
		if err := jsonUnmarshal(raw, &rec); err != nil {
			return out, "invalid shape: " + err.Error()
		}
		s := rec.Shape
		out.Body = &s
	default:
		return out, fmt.Sprintf("unknown kind %q", hdr.Kind)
	}
	out.Body.normalize()
	if reason := bodyProblem(out.Body); reason != "" {
		out.Body = nil
		return out, reason
	}
	return out, ""
}

// bodyProblem returns why b cannot be stored, or "" when it can. b is not modified.
func bodyProblem(b Body) string {
	switch b := b.(type) {
	case *Shape:
		s := *b
		return checkShape(&s)
	case *Compound:
		if len(b.Parts) == 0 {
			return "compound has no parts"
		}
		for i := range b.Parts {
			p := b.Parts[i]
			if reason := checkShape(&p); reason != "" {
				return fmt.Sprintf("part %d: %s", i, reason)
			}
		}
	case *Label:
		l := *b
		l.Style = l.Style.normalized()
		if reason := l.problem(); reason != "" {
			return reason
		}
		if err := validate.Struct(l.Style); err != nil {
			return "style: " + describe(err)
		}
	case nil:
		return "missing body"
	}
	return ""
}

func checkShape(s *Shape) string {
	s.Style = s.Style.normalized()
	if reason := s.geometryProblem(); reason != "" {
		return reason
	}
	if err := validate.Struct(s.Style); err != nil {
		return "style: " + describe(err)
	}
	return ""
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return strings.Join(msgs, ", ")
}

func (d *Document) MarshalJSON() ([]byte, error) { return Encode(d) }

func (d *Document) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*d = *decoded
	return nil
}
