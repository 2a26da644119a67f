package jsonser

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/gokiota/errors"
	"github.com/kbukum/gokiota/serialization"
)

// object keeps properties in payload order.
type object struct {
	keys   []string
	fields map[string]*ParseNode
}

// ParseNode is a JSON implementation of serialization.ParseNode. The value
// is one of *object, []*ParseNode, string, bool, json.Number or nil.
type ParseNode struct {
	value any
	hooks *serialization.ParseHooks
}

// NewParseNode decodes content into a node tree and returns its root.
func NewParseNode(content []byte) (*ParseNode, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, errors.MissingArgument("content")
	}
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()
	hooks := &serialization.ParseHooks{}
	root, err := loadNode(dec, hooks)
	if err != nil {
		return nil, errors.Deserialization("invalid JSON payload", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.Deserialization("unexpected data after the JSON value", err)
	}
	return root, nil
}

func loadNode(dec *json.Decoder, hooks *serialization.ParseHooks) (*ParseNode, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	node := &ParseNode{hooks: hooks}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := &object{fields: make(map[string]*ParseNode)}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("expected property name, got %v", keyTok)
				}
				child, err := loadNode(dec, hooks)
				if err != nil {
					return nil, err
				}
				if _, seen := obj.fields[key]; !seen {
					obj.keys = append(obj.keys, key)
				}
				obj.fields[key] = child
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			node.value = obj
		case '[':
			arr := make([]*ParseNode, 0)
			for dec.More() {
				child, err := loadNode(dec, hooks)
				if err != nil {
					return nil, err
				}
				arr = append(arr, child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			node.value = arr
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", t)
		}
	case string, bool, json.Number:
		node.value = t
	case nil:
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
	return node, nil
}

// Hooks returns the observers shared by the whole tree.
func (n *ParseNode) Hooks() *serialization.ParseHooks {
	if n.hooks == nil {
		n.hooks = &serialization.ParseHooks{}
	}
	return n.hooks
}

// GetChildNode returns the named property, or nil if absent or not an object.
func (n *ParseNode) GetChildNode(name string) (serialization.ParseNode, error) {
	if name == "" {
		return nil, errors.MissingArgument("name")
	}
	if n == nil {
		return nil, nil
	}
	obj, ok := n.value.(*object)
	if !ok {
		return nil, nil
	}
	child, ok := obj.fields[name]
	if !ok {
		return nil, nil
	}
	return child, nil
}

// GetObjectValue builds a model and assigns each property through its field
// deserializers. Null properties are skipped; unknown ones go to the
// additional data of AdditionalDataHolder models.
func (n *ParseNode) GetObjectValue(factory serialization.ParsableFactory) (serialization.Parsable, error) {
	if factory == nil {
		return nil, errors.MissingArgument("factory")
	}
	if n == nil || n.value == nil {
		return nil, nil
	}
	obj, ok := n.value.(*object)
	if !ok {
		return nil, errors.Deserialization(fmt.Sprintf("expected a JSON object, got %s", n.kindName()), nil)
	}
	result, err := factory(n)
	if err != nil {
		return nil, errors.Deserialization("model factory failed", err)
	}
	if result == nil {
		return nil, errors.Deserialization("model factory returned nil", nil)
	}
	hooks := n.Hooks()
	if err := hooks.FireBefore(result); err != nil {
		return nil, err
	}

	fields := result.GetFieldDeserializers()
	holder, isHolder := result.(serialization.AdditionalDataHolder)
	var additional map[string]any
	if isHolder {
		additional = holder.GetAdditionalData()
	}

	for _, key := range obj.keys {
		child := obj.fields[key]
		if child.value == nil {
			continue
		}
		if field, ok := fields[key]; ok {
			if err := field(child); err != nil {
				return nil, errors.Deserialization(fmt.Sprintf("failed to deserialize property %q", key), err)
			}
			continue
		}
		if !isHolder {
			continue
		}
		raw, err := child.GetRawValue()
		if err != nil {
			return nil, err
		}
		if additional == nil {
			additional = make(map[string]any)
		}
		additional[key] = raw
	}
	if isHolder && additional != nil {
		holder.SetAdditionalData(additional)
	}

	if err := hooks.FireAfter(result); err != nil {
		return nil, err
	}
	return result, nil
}

func (n *ParseNode) array() ([]*ParseNode, error) {
	arr, ok := n.value.([]*ParseNode)
	if !ok {
		return nil, errors.Deserialization(fmt.Sprintf("expected a JSON array, got %s", n.kindName()), nil)
	}
	return arr, nil
}

// GetCollectionOfObjectValues lazily parses each element with factory.
func (n *ParseNode) GetCollectionOfObjectValues(factory serialization.ParsableFactory) iter.Seq2[serialization.Parsable, error] {
	return func(yield func(serialization.Parsable, error) bool) {
		if n == nil || n.value == nil {
			return
		}
		if factory == nil {
			yield(nil, errors.MissingArgument("factory"))
			return
		}
		arr, err := n.array()
		if err != nil {
			yield(nil, err)
			return
		}
		for _, el := range arr {
			v, err := el.GetObjectValue(factory)
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

// GetCollectionOfPrimitiveValues lazily reads each element as kind.
func (n *ParseNode) GetCollectionOfPrimitiveValues(kind serialization.Kind) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		if n == nil || n.value == nil {
			return
		}
		arr, err := n.array()
		if err != nil {
			yield(nil, err)
			return
		}
		for _, el := range arr {
			v, err := serialization.PrimitiveValue(el, kind)
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

// GetCollectionOfEnumValues lazily parses each element with parser.
func (n *ParseNode) GetCollectionOfEnumValues(parser serialization.EnumFactory) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		if n == nil || n.value == nil {
			return
		}
		if parser == nil {
			yield(nil, errors.MissingArgument("parser"))
			return
		}
		arr, err := n.array()
		if err != nil {
			yield(nil, err)
			return
		}
		for _, el := range arr {
			v, err := el.GetEnumValue(parser)
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

func (n *ParseNode) mismatch(target string) error {
	return errors.Deserialization(fmt.Sprintf("JSON %s is not compatible with %s", n.kindName(), target), nil)
}

func (n *ParseNode) kindName() string {
	switch n.value.(type) {
	case *object:
		return "object"
	case []*ParseNode:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	default:
		return "null"
	}
}

// GetStringValue returns the string value.
func (n *ParseNode) GetStringValue() (*string, error) {
	if n == nil || n.value == nil {
		return nil, nil
	}
	s, ok := n.value.(string)
	if !ok {
		return nil, n.mismatch("string")
	}
	return &s, nil
}

// GetBoolValue returns the boolean value.
func (n *ParseNode) GetBoolValue() (*bool, error) {
	if n == nil || n.value == nil {
		return nil, nil
	}
	b, ok := n.value.(bool)
	if !ok {
		return nil, n.mismatch("bool")
	}
	return &b, nil
}

func (n *ParseNode) number() (json.Number, bool, error) {
	if n == nil || n.value == nil {
		return "", false, nil
	}
	num, ok := n.value.(json.Number)
	if !ok {
		return "", false, n.mismatch("number")
	}
	return num, true, nil
}

func (n *ParseNode) integer(target string, minVal, maxVal int64) (int64, bool, error) {
	num, ok, err := n.number()
	if !ok || err != nil {
		return 0, ok, err
	}
	v, err := num.Int64()
	if err != nil {
		// integral values written with an exponent or fraction, such as 1e3 or 2.0
		f, ferr := num.Float64()
		if ferr != nil || f != math.Trunc(f) || f < math.MinInt64 || f > math.MaxInt64 {
			return 0, false, errors.Deserialization(fmt.Sprintf("%s is not a valid %s", num, target), err)
		}
		v = int64(f)
	}
	if v < minVal || v > maxVal {
		return 0, false, errors.Deserialization(fmt.Sprintf("%s overflows %s", num, target), nil)
	}
	return v, true, nil
}

// GetByteValue returns the value as a byte.
func (n *ParseNode) GetByteValue() (*byte, error) {
	v, ok, err := n.integer("byte", 0, math.MaxUint8)
	if !ok || err != nil {
		return nil, err
	}
	b := byte(v)
	return &b, nil
}

// GetInt32Value returns the value as an int32.
func (n *ParseNode) GetInt32Value() (*int32, error) {
	v, ok, err := n.integer("int32", math.MinInt32, math.MaxInt32)
	if !ok || err != nil {
		return nil, err
	}
	i := int32(v)
	return &i, nil
}

// GetInt64Value returns the value as an int64.
func (n *ParseNode) GetInt64Value() (*int64, error) {
	v, ok, err := n.integer("int64", math.MinInt64, math.MaxInt64)
	if !ok || err != nil {
		return nil, err
	}
	return &v, nil
}

// GetFloat32Value returns the value as a float32.
func (n *ParseNode) GetFloat32Value() (*float32, error) {
	v, err := n.GetFloat64Value()
	if v == nil || err != nil {
		return nil, err
	}
	f := float32(*v)
	return &f, nil
}

// GetFloat64Value returns the value as a float64.
func (n *ParseNode) GetFloat64Value() (*float64, error) {
	num, ok, err := n.number()
	if !ok || err != nil {
		return nil, err
	}
	v, err := num.Float64()
	if err != nil {
		return nil, errors.Deserialization(fmt.Sprintf("%s is not a valid float64", num), err)
	}
	return &v, nil
}

// GetUUIDValue parses the string value as a UUID.
func (n *ParseNode) GetUUIDValue() (*uuid.UUID, error) {
	s, err := n.GetStringValue()
	if s == nil || err != nil {
		return nil, err
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, errors.Deserialization(fmt.Sprintf("%q is not a valid UUID", *s), err)
	}
	return &id, nil
}

// GetTimeValue parses the string value as an RFC 3339 timestamp.
func (n *ParseNode) GetTimeValue() (*time.Time, error) {
	s, err := n.GetStringValue()
	if s == nil || err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return nil, errors.Deserialization(fmt.Sprintf("%q is not an RFC 3339 timestamp", *s), err)
	}
	return &ts, nil
}

// GetEnumValue parses the string value with parser.
func (n *ParseNode) GetEnumValue(parser serialization.EnumFactory) (any, error) {
	if parser == nil {
		return nil, errors.MissingArgument("parser")
	}
	s, err := n.GetStringValue()
	if s == nil || err != nil {
		return nil, err
	}
	return parser(*s)
}

// GetByteArrayValue decodes the base64 string value.
func (n *ParseNode) GetByteArrayValue() ([]byte, error) {
	s, err := n.GetStringValue()
	if s == nil || err != nil {
		return nil, err
	}
	b, err := base64.StdEncoding.DecodeString(*s)
	if err != nil {
		return nil, errors.Deserialization("value is not valid base64", err)
	}
	return b, nil
}

// GetRawValue converts the node to plain Go values. Numbers become float64.
func (n *ParseNode) GetRawValue() (any, error) {
	if n == nil {
		return nil, nil
	}
	switch v := n.value.(type) {
	case *object:
		m := make(map[string]any, len(v.keys))
		for _, key := range v.keys {
			raw, err := v.fields[key].GetRawValue()
			if err != nil {
				return nil, err
			}
			m[key] = raw
		}
		return m, nil
	case []*ParseNode:
		out := make([]any, 0, len(v))
		for _, el := range v {
			raw, err := el.GetRawValue()
			if err != nil {
				return nil, err
			}
			out = append(out, raw)
		}
		return out, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, errors.Deserialization(fmt.Sprintf("%s is not a valid number", v), err)
		}
		return f, nil
	default:
		return v, nil
	}
}
