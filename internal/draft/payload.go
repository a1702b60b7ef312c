// Package draft turns AI-generated settlement payloads into the normalized
// models.Draft shape, and applies the edits the confirmation screen allows.
//
// Payloads are loosely shaped: the same field can live under several aliases
// and at several nesting levels. Every lookup here is an ordered list of
// accessors tried in sequence, so the fallback order can be read (and tested)
// in one place.
package draft

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mmynk/nbbang/internal/money"
)

var ErrNoMeeting = errors.New("response carries no meeting")

// ParsePayload decodes raw JSON into a dynamic struct.
func ParsePayload(data []byte) (*structpb.Struct, error) {
	s := &structpb.Struct{}
	if err := s.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return s, nil
}

// envelope is one accepted response shape.
type envelope struct {
	name   string
	unwrap func(root *structpb.Struct) *structpb.Struct
}

// envelopes lists the accepted meeting envelopes in the order they are tried.
var envelopes = []envelope{
	{"meeting", func(root *structpb.Struct) *structpb.Struct {
		return structField(root, "meeting")
	}},
	{"bare", func(root *structpb.Struct) *structpb.Struct {
		if hasField(root, "id") {
			return root
		}
		return nil
	}},
	{"data.meeting", func(root *structpb.Struct) *structpb.Struct {
		return structField(structField(root, "data"), "meeting")
	}},
	{"data", func(root *structpb.Struct) *structpb.Struct {
		data := structField(root, "data")
		if hasField(data, "id") {
			return data
		}
		return nil
	}},
}

// UnwrapMeeting finds the meeting object inside a response, trying
// {meeting:{...}}, {id,...}, {data:{meeting:{...}}} and {data:{id,...}} in order.
func UnwrapMeeting(root *structpb.Struct) (*structpb.Struct, error) {
	for _, e := range envelopes {
		if m := e.unwrap(root); m != nil {
			return m, nil
		}
	}
	return nil, ErrNoMeeting
}

func field(s *structpb.Struct, key string) *structpb.Value {
	if s == nil {
		return nil
	}
	v, ok := s.GetFields()[key]
	if !ok {
		return nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil
	}
	return v
}

func hasField(s *structpb.Struct, key string) bool {
	return field(s, key) != nil
}

func structField(s *structpb.Struct, key string) *structpb.Struct {
	return field(s, key).GetStructValue()
}

// firstField returns the first present value among keys.
func firstField(s *structpb.Struct, keys ...string) *structpb.Value {
	for _, k := range keys {
		if v := field(s, k); v != nil {
			return v
		}
	}
	return nil
}

func listField(s *structpb.Struct, keys ...string) []*structpb.Value {
	return firstField(s, keys...).GetListValue().GetValues()
}

// text reads a name-like value: a string, a number, or an object carrying one
// under "name".
func text(v *structpb.Value) string {
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return strings.TrimSpace(k.StringValue)
	case *structpb.Value_NumberValue:
		return decimal.NewFromFloat(k.NumberValue).String()
	case *structpb.Value_StructValue:
		return text(field(k.StructValue, "name"))
	default:
		return ""
	}
}

func textField(s *structpb.Struct, keys ...string) string {
	for _, k := range keys {
		if t := text(field(s, k)); t != "" {
			return t
		}
	}
	return ""
}

// number reads a numeric value that may arrive as a JSON number or as a
// formatted string. ok is false when the value is absent.
func number(v *structpb.Value) (d decimal.Decimal, ok bool, err error) {
	switch k := v.GetKind().(type) {
	case nil:
		return decimal.Zero, false, nil
	case *structpb.Value_NumberValue:
		return decimal.NewFromFloat(k.NumberValue), true, nil
	case *structpb.Value_StringValue:
		d, err := money.ParseDecimal(k.StringValue)
		return d, true, err
	default:
		return decimal.Zero, false, fmt.Errorf("unexpected %T for a number", k)
	}
}
