package yamlser

import (
	"encoding/base64"
	"fmt"
	"iter"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/kbukum/gokiota/errors"
	"github.com/kbukum/gokiota/serialization"
)

const (
	tagNull  = "!!null"
	tagBool  = "!!bool"
	tagInt   = "!!int"
	tagFloat = "!!float"
)

// ParseNode is a YAML implementation of serialization.ParseNode.
type ParseNode struct {
	node  *yaml.Node
	hooks *serialization.ParseHooks
}

// NewParseNode parses content and returns the root of the first document.
func NewParseNode(content []byte) (*ParseNode, error) {
	if len(content) == 0 {
		return nil, errors.MissingArgument("content")
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, errors.Deserialization("invalid YAML payload", err)
	}
	root := &doc
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root = doc.Content[0]
	}
	return &ParseNode{node: root, hooks: &serialization.ParseHooks{}}, nil
}

func (n *ParseNode) child(node *yaml.Node) *ParseNode {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return &ParseNode{node: node, hooks: n.hooks}
}

func (n *ParseNode) isNull() bool {
	return n == nil || n.node == nil || n.node.Kind == 0 ||
		(n.node.Kind == yaml.ScalarNode && n.node.Tag == tagNull)
}

// Hooks returns the observers shared by the whole tree.
func (n *ParseNode) Hooks() *serialization.ParseHooks { return n.hooks }

// GetChildNode returns the named mapping entry, or nil when absent.
func (n *ParseNode) GetChildNode(name string) (serialization.ParseNode, error) {
	if name == "" {
		return nil, errors.MissingArgument("name")
	}
	if n.isNull() || n.node.Kind != yaml.MappingNode {
		return nil, nil
	}
	for i := 0; i+1 < len(n.node.Content); i += 2 {
		if n.node.Content[i].Value == name {
			return n.child(n.node.Content[i+1]), nil
		}
	}
	return nil, nil
}

// GetObjectValue builds a model from a mapping node.
func (n *ParseNode) GetObjectValue(factory serialization.ParsableFactory) (serialization.Parsable, error) {
	if factory == nil {
		return nil, errors.MissingArgument("factory")
	}
	if n.isNull() {
		return nil, nil
	}
	if n.node.Kind != yaml.MappingNode {
		return nil, errors.Deserialization(fmt.Sprintf("expected a YAML mapping at line %d", n.node.Line), nil)
	}
	result, err := factory(n)
	if err != nil {
		return nil, errors.Deserialization("model factory failed", err)
	}
	if result == nil {
		return nil, errors.Deserialization("model factory returned nil", nil)
	}
	if err := n.hooks.FireBefore(result); err != nil {
		return nil, err
	}

	fields := result.GetFieldDeserializers()
	holder, isHolder := result.(serialization.AdditionalDataHolder)
	var additional map[string]any
	if isHolder {
		additional = holder.GetAdditionalData()
	}
	for i := 0; i+1 < len(n.node.Content); i += 2 {
		key := n.node.Content[i].Value
		child := n.child(n.node.Content[i+1])
		if child.isNull() {
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
	if err := n.hooks.FireAfter(result); err != nil {
		return nil, err
	}
	return result, nil
}

func (n *ParseNode) elements() iter.Seq2[*ParseNode, error] {
	return func(yield func(*ParseNode, error) bool) {
		if n.isNull() {
			return
		}
		if n.node.Kind != yaml.SequenceNode {
			yield(nil, errors.Deserialization(fmt.Sprintf("expected a YAML sequence at line %d", n.node.Line), nil))
			return
		}
		for _, el := range n.node.Content {
			if !yield(n.child(el), nil) {
				return
			}
		}
	}
}

// GetCollectionOfObjectValues lazily parses each sequence element with factory.
func (n *ParseNode) GetCollectionOfObjectValues(factory serialization.ParsableFactory) iter.Seq2[serialization.Parsable, error] {
	return func(yield func(serialization.Parsable, error) bool) {
		for el, err := range n.elements() {
			if err != nil {
				yield(nil, err)
				return
			}
			v, err := el.GetObjectValue(factory)
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

// GetCollectionOfPrimitiveValues lazily reads each sequence element as kind.
func (n *ParseNode) GetCollectionOfPrimitiveValues(kind serialization.Kind) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		for el, err := range n.elements() {
			if err != nil {
				yield(nil, err)
				return
			}
			v, err := serialization.PrimitiveValue(el, kind)
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

// GetCollectionOfEnumValues lazily parses each sequence element with parser.
func (n *ParseNode) GetCollectionOfEnumValues(parser serialization.EnumFactory) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		for el, err := range n.elements() {
			if err != nil {
				yield(nil, err)
				return
			}
			v, err := el.GetEnumValue(parser)
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

func (n *ParseNode) scalar() (*yaml.Node, error) {
	if n.isNull() {
		return nil, nil
	}
	if n.node.Kind != yaml.ScalarNode {
		return nil, errors.Deserialization(fmt.Sprintf("expected a YAML scalar at line %d", n.node.Line), nil)
	}
	return n.node, nil
}

func decode[T any](n *ParseNode, target string) (*T, error) {
	node, err := n.scalar()
	if node == nil || err != nil {
		return nil, err
	}
	var v T
	if err := node.Decode(&v); err != nil {
		return nil, errors.Deserialization(fmt.Sprintf("%q is not a valid %s", node.Value, target), err)
	}
	return &v, nil
}

func (n *ParseNode) GetStringValue() (*string, error) {
	node, err := n.scalar()
	if node == nil || err != nil {
		return nil, err
	}
	v := node.Value
	return &v, nil
}

func (n *ParseNode) GetBoolValue() (*bool, error)       { return decode[bool](n, "bool") }
func (n *ParseNode) GetByteValue() (*byte, error)       { return decode[uint8](n, "byte") }
func (n *ParseNode) GetInt32Value() (*int32, error)     { return decode[int32](n, "int32") }
func (n *ParseNode) GetInt64Value() (*int64, error)     { return decode[int64](n, "int64") }
func (n *ParseNode) GetFloat32Value() (*float32, error) { return decode[float32](n, "float32") }
func (n *ParseNode) GetFloat64Value() (*float64, error) { return decode[float64](n, "float64") }

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

// GetRawValue converts the node to plain Go values; numbers become float64.
func (n *ParseNode) GetRawValue() (any, error) {
	if n.isNull() {
		return nil, nil
	}
	switch n.node.Kind {
	case yaml.MappingNode:
		m := make(map[string]any, len(n.node.Content)/2)
		for i := 0; i+1 < len(n.node.Content); i += 2 {
			raw, err := n.child(n.node.Content[i+1]).GetRawValue()
			if err != nil {
				return nil, err
			}
			m[n.node.Content[i].Value] = raw
		}
		return m, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.node.Content))
		for _, el := range n.node.Content {
			raw, err := n.child(el).GetRawValue()
			if err != nil {
				return nil, err
			}
			out = append(out, raw)
		}
		return out, nil
	}
	switch n.node.Tag {
	case tagBool:
		v, err := decode[bool](n, "bool")
		if err != nil {
			return nil, err
		}
		return *v, nil
	case tagInt, tagFloat:
		v, err := decode[float64](n, "number")
		if err != nil {
			return nil, err
		}
		if math.IsInf(*v, 0) || math.IsNaN(*v) {
			return strconv.FormatFloat(*v, 'g', -1, 64), nil
		}
		return *v, nil
	default:
		return n.node.Value, nil
	}
}
