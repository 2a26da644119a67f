package formser

import (
	"encoding/base64"
	"fmt"
	"iter"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/gokiota/errors"
	"github.com/kbukum/gokiota/serialization"
)

// ContentType is the content type handled by this package.
const ContentType = "application/x-www-form-urlencoded"

func errNested() error {
	return errors.Configuration("form payloads do not support nested objects")
}

// ParseNode reads a form payload. The root holds every field; child
// nodes hold the values of one field.
type ParseNode struct {
	fields url.Values
	order  []string
	values []string
	root   bool
	hooks  *serialization.ParseHooks
}

// NewParseNode parses an encoded form.
func NewParseNode(content string) (*ParseNode, error) {
	values, err := url.ParseQuery(content)
	if err != nil {
		return nil, errors.Deserialization("invalid form payload", err)
	}
	var order []string
	for _, pair := range strings.Split(content, "&") {
		k, _, _ := strings.Cut(pair, "=")
		if k, err = url.QueryUnescape(k); err == nil && k != "" && !slices.Contains(order, k) {
			order = append(order, k)
		}
	}
	return &ParseNode{fields: values, order: order, root: true, hooks: &serialization.ParseHooks{}}, nil
}

func (n *ParseNode) Hooks() *serialization.ParseHooks { return n.hooks }

func (n *ParseNode) GetChildNode(name string) (serialization.ParseNode, error) {
	if name == "" {
		return nil, errors.MissingArgument("name")
	}
	if !n.root {
		return nil, errNested()
	}
	vals, ok := n.fields[name]
	if !ok {
		return nil, nil
	}
	return &ParseNode{values: vals, hooks: n.hooks}, nil
}

func (n *ParseNode) GetObjectValue(factory serialization.ParsableFactory) (serialization.Parsable, error) {
	if factory == nil {
		return nil, errors.MissingArgument("factory")
	}
	if !n.root {
		return nil, errNested()
	}
	result, err := factory(n)
	if err != nil {
		return nil, errors.Deserialization("model factory failed", err)
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
	for _, key := range n.order {
		child := &ParseNode{values: n.fields[key], hooks: n.hooks}
		if child.isNull() {
			continue
		}
		if field, ok := fields[key]; ok {
			if err := field(child); err != nil {
				return nil, errors.Deserialization(fmt.Sprintf("failed to deserialize field %q", key), err)
			}
			continue
		}
		if isHolder {
			if additional == nil {
				additional = make(map[string]any)
			}
			additional[key], _ = child.GetRawValue()
		}
	}
	if isHolder && additional != nil {
		holder.SetAdditionalData(additional)
	}
	if err := n.hooks.FireAfter(result); err != nil {
		return nil, err
	}
	return result, nil
}

func (n *ParseNode) isNull() bool {
	return len(n.values) == 0 || (len(n.values) == 1 && n.values[0] == "null")
}

func (n *ParseNode) GetCollectionOfObjectValues(serialization.ParsableFactory) iter.Seq2[serialization.Parsable, error] {
	return func(yield func(serialization.Parsable, error) bool) { yield(nil, errNested()) }
}

func (n *ParseNode) elements() []*ParseNode {
	out := make([]*ParseNode, 0, len(n.values))
	for _, v := range n.values {
		for part := range strings.SplitSeq(v, ",") {
			out = append(out, &ParseNode{values: []string{part}, hooks: n.hooks})
		}
	}
	return out
}

func (n *ParseNode) GetCollectionOfPrimitiveValues(kind serialization.Kind) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		for _, el := range n.elements() {
			v, err := serialization.PrimitiveValue(el, kind)
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

func (n *ParseNode) GetCollectionOfEnumValues(parser serialization.EnumFactory) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		for _, el := range n.elements() {
			v, err := el.GetEnumValue(parser)
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

func (n *ParseNode) first() (string, bool) {
	if n.root || n.isNull() {
		return "", false
	}
	return n.values[0], true
}

func parsed[T any](n *ParseNode, target string, parse func(string) (T, error)) (*T, error) {
	s, ok := n.first()
	if !ok {
		return nil, nil
	}
	v, err := parse(s)
	if err != nil {
		return nil, errors.Deserialization(fmt.Sprintf("%q is not a valid %s", s, target), err)
	}
	return &v, nil
}

func (n *ParseNode) GetStringValue() (*string, error) {
	return parsed(n, "string", func(s string) (string, error) { return s, nil })
}

func (n *ParseNode) GetBoolValue() (*bool, error) {
	return parsed(n, "bool", strconv.ParseBool)
}

func (n *ParseNode) GetByteValue() (*byte, error) {
	return parsed(n, "byte", func(s string) (byte, error) {
		v, err := strconv.ParseUint(s, 10, 8)
		return byte(v), err
	})
}

func (n *ParseNode) GetInt32Value() (*int32, error) {
	return parsed(n, "int32", func(s string) (int32, error) {
		v, err := strconv.ParseInt(s, 10, 32)
		return int32(v), err
	})
}

func (n *ParseNode) GetInt64Value() (*int64, error) {
	return parsed(n, "int64", func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
}

func (n *ParseNode) GetFloat32Value() (*float32, error) {
	return parsed(n, "float32", func(s string) (float32, error) {
		v, err := strconv.ParseFloat(s, 32)
		return float32(v), err
	})
}

func (n *ParseNode) GetFloat64Value() (*float64, error) {
	return parsed(n, "float64", func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func (n *ParseNode) GetUUIDValue() (*uuid.UUID, error) {
	return parsed(n, "uuid", uuid.Parse)
}

func (n *ParseNode) GetTimeValue() (*time.Time, error) {
	return parsed(n, "time", func(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) })
}

func (n *ParseNode) GetEnumValue(parser serialization.EnumFactory) (any, error) {
	if parser == nil {
		return nil, errors.MissingArgument("parser")
	}
	s, ok := n.first()
	if !ok {
		return nil, nil
	}
	return parser(s)
}

func (n *ParseNode) GetByteArrayValue() ([]byte, error) {
	s, ok := n.first()
	if !ok {
		return nil, nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.Deserialization("value is not valid base64", err)
	}
	return b, nil
}

// GetRawValue returns the field's string, or a []any for repeated fields.
func (n *ParseNode) GetRawValue() (any, error) {
	if n.root {
		m := make(map[string]any, len(n.fields))
		for _, k := range n.order {
			m[k], _ = (&ParseNode{values: n.fields[k]}).GetRawValue()
		}
		return m, nil
	}
	switch len(n.values) {
	case 0:
		return nil, nil
	case 1:
		return n.values[0], nil
	default:
		out := make([]any, len(n.values))
		for i, v := range n.values {
			out[i] = v
		}
		return out, nil
	}
}

// SerializationWriter writes form fields in call order.
type SerializationWriter struct {
	pairs  []string
	depth  int
	hooks  serialization.WriteHooks
	closed bool
}

// NewSerializationWriter creates an empty form writer.
func NewSerializationWriter() *SerializationWriter {
	return &SerializationWriter{}
}

func (w *SerializationWriter) Hooks() *serialization.WriteHooks { return &w.hooks }

func (w *SerializationWriter) add(key, value string) error {
	if w.closed {
		return errors.Configuration("the serialization writer is closed")
	}
	if key == "" {
		return errors.Configuration("form fields need a name")
	}
	w.pairs = append(w.pairs, url.QueryEscape(key)+"="+url.QueryEscape(value))
	return nil
}

func (w *SerializationWriter) WriteStringValue(key string, value *string) error {
	if value == nil {
		return nil
	}
	return w.add(key, *value)
}

func (w *SerializationWriter) WriteBoolValue(key string, value *bool) error {
	if value == nil {
		return nil
	}
	return w.add(key, strconv.FormatBool(*value))
}

func (w *SerializationWriter) WriteByteValue(key string, value *byte) error {
	if value == nil {
		return nil
	}
	return w.add(key, strconv.FormatUint(uint64(*value), 10))
}

func (w *SerializationWriter) WriteInt32Value(key string, value *int32) error {
	if value == nil {
		return nil
	}
	return w.add(key, strconv.FormatInt(int64(*value), 10))
}

func (w *SerializationWriter) WriteInt64Value(key string, value *int64) error {
	if value == nil {
		return nil
	}
	return w.add(key, strconv.FormatInt(*value, 10))
}

func (w *SerializationWriter) WriteFloat32Value(key string, value *float32) error {
	if value == nil {
		return nil
	}
	return w.add(key, strconv.FormatFloat(float64(*value), 'g', -1, 32))
}

func (w *SerializationWriter) WriteFloat64Value(key string, value *float64) error {
	if value == nil {
		return nil
	}
	return w.add(key, strconv.FormatFloat(*value, 'g', -1, 64))
}

func (w *SerializationWriter) WriteUUIDValue(key string, value *uuid.UUID) error {
	if value == nil {
		return nil
	}
	return w.add(key, value.String())
}

func (w *SerializationWriter) WriteTimeValue(key string, value *time.Time) error {
	if value == nil {
		return nil
	}
	return w.add(key, value.Format(time.RFC3339Nano))
}

func (w *SerializationWriter) WriteByteArrayValue(key string, value []byte) error {
	if value == nil {
		return nil
	}
	return w.add(key, base64.StdEncoding.EncodeToString(value))
}

func (w *SerializationWriter) WriteEnumValue(key string, value fmt.Stringer) error {
	if value == nil {
		return nil
	}
	return w.add(key, value.String())
}

func (w *SerializationWriter) WriteNullValue(key string) error {
	return w.add(key, "null")
}

// WriteObjectValue writes the root model's fields; nested objects are rejected.
func (w *SerializationWriter) WriteObjectValue(key string, item serialization.Parsable) error {
	if item == nil {
		return nil
	}
	if w.depth > 0 || key != "" {
		return errNested()
	}
	if err := w.hooks.FireBefore(item); err != nil {
		return err
	}
	w.depth++
	if err := w.hooks.FireStart(item, w); err != nil {
		return err
	}
	if err := item.Serialize(w); err != nil {
		return errors.Serialization("model serialization failed", err)
	}
	w.depth--
	return w.hooks.FireAfter(item)
}

func (w *SerializationWriter) WriteCollectionOfObjectValues(string, []serialization.Parsable) error {
	return errNested()
}

func (w *SerializationWriter) WriteCollectionOfStringValues(key string, values []string) error {
	for _, v := range values {
		if err := w.add(key, v); err != nil {
			return err
		}
	}
	return nil
}

func (w *SerializationWriter) WriteCollectionOfPrimitiveValues(key string, values []any) error {
	for _, v := range values {
		if err := w.WriteAnyValue(key, v); err != nil {
			return err
		}
	}
	return nil
}

func (w *SerializationWriter) WriteCollectionOfEnumValues(key string, values []fmt.Stringer) error {
	for _, v := range values {
		if err := w.WriteEnumValue(key, v); err != nil {
			return err
		}
	}
	return nil
}

func (w *SerializationWriter) WriteAnyValue(key string, value any) error {
	switch v := value.(type) {
	case nil:
		return w.WriteNullValue(key)
	case string:
		return w.add(key, v)
	case []byte:
		return w.WriteByteArrayValue(key, v)
	case time.Time:
		return w.WriteTimeValue(key, &v)
	case fmt.Stringer:
		return w.add(key, v.String())
	case bool, int, int32, int64, uint8, float32, float64:
		return w.add(key, fmt.Sprint(v))
	case []string:
		return w.WriteCollectionOfStringValues(key, v)
	case []any:
		return w.WriteCollectionOfPrimitiveValues(key, v)
	default:
		return errNested()
	}
}

func (w *SerializationWriter) WriteAdditionalData(data map[string]any) error {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := w.WriteAnyValue(k, data[k]); err != nil {
			return err
		}
	}
	return nil
}

func (w *SerializationWriter) GetSerializedContent() ([]byte, error) {
	if w.closed {
		return nil, errors.Configuration("the serialization writer is closed")
	}
	return []byte(strings.Join(w.pairs, "&")), nil
}

func (w *SerializationWriter) Close() error {
	w.closed = true
	w.pairs = nil
	return nil
}

// ParseNodeFactory creates form parse nodes.
type ParseNodeFactory struct{}

// NewParseNodeFactory creates a form parse node factory.
func NewParseNodeFactory() *ParseNodeFactory { return &ParseNodeFactory{} }

func (f *ParseNodeFactory) GetValidContentType() (string, error) { return ContentType, nil }

func (f *ParseNodeFactory) GetRootParseNode(contentType string, content []byte) (serialization.ParseNode, error) {
	if err := checkContentType(contentType); err != nil {
		return nil, err
	}
	return NewParseNode(string(content))
}

// SerializationWriterFactory creates form writers.
type SerializationWriterFactory struct{}

// NewSerializationWriterFactory creates a form writer factory.
func NewSerializationWriterFactory() *SerializationWriterFactory {
	return &SerializationWriterFactory{}
}

func (f *SerializationWriterFactory) GetValidContentType() (string, error) { return ContentType, nil }

func (f *SerializationWriterFactory) GetSerializationWriter(contentType string) (serialization.SerializationWriter, error) {
	if err := checkContentType(contentType); err != nil {
		return nil, err
	}
	return NewSerializationWriter(), nil
}

func checkContentType(contentType string) error {
	if contentType == "" {
		return errors.MissingArgument("contentType")
	}
	if serialization.NormalizeContentType(contentType) != ContentType {
		return errors.UnsupportedContentType(contentType)
	}
	return nil
}

// Register adds the form factories to the given registries.
func Register(parsers *serialization.ParseNodeFactoryRegistry, writers *serialization.SerializationWriterFactoryRegistry) error {
	if parsers != nil {
		if err := parsers.Register(ContentType, NewParseNodeFactory()); err != nil {
			return err
		}
	}
	if writers != nil {
		if err := writers.Register(ContentType, NewSerializationWriterFactory()); err != nil {
			return err
		}
	}
	return nil
}
