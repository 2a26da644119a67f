package textser

import (
	"encoding/base64"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/gokiota/errors"
	"github.com/kbukum/gokiota/serialization"
)

// ContentType is the content type handled by this package.
const ContentType = "text/plain"

func errNoStructure() error {
	return errors.Configuration("text payloads hold a single scalar value")
}

// ParseNode reads one scalar from a text payload.
type ParseNode struct {
	value string
	hooks serialization.ParseHooks
}

// NewParseNode creates a node over content. Surrounding quotes are trimmed.
func NewParseNode(content string) (*ParseNode, error) {
	if content == "" {
		return nil, errors.MissingArgument("content")
	}
	if len(content) >= 2 && content[0] == '"' && content[len(content)-1] == '"' {
		content = content[1 : len(content)-1]
	}
	return &ParseNode{value: content}, nil
}

func (n *ParseNode) Hooks() *serialization.ParseHooks { return &n.hooks }

func (n *ParseNode) GetChildNode(string) (serialization.ParseNode, error) {
	return nil, errNoStructure()
}

func (n *ParseNode) GetObjectValue(serialization.ParsableFactory) (serialization.Parsable, error) {
	return nil, errNoStructure()
}

func (n *ParseNode) GetCollectionOfObjectValues(serialization.ParsableFactory) iter.Seq2[serialization.Parsable, error] {
	return func(yield func(serialization.Parsable, error) bool) { yield(nil, errNoStructure()) }
}

func (n *ParseNode) GetCollectionOfPrimitiveValues(serialization.Kind) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) { yield(nil, errNoStructure()) }
}

func (n *ParseNode) GetCollectionOfEnumValues(serialization.EnumFactory) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) { yield(nil, errNoStructure()) }
}

func (n *ParseNode) GetStringValue() (*string, error) {
	v := n.value
	return &v, nil
}

func (n *ParseNode) GetBoolValue() (*bool, error) {
	v, err := strconv.ParseBool(strings.TrimSpace(n.value))
	if err != nil {
		return nil, invalid(n.value, "bool", err)
	}
	return &v, nil
}

func (n *ParseNode) GetByteValue() (*byte, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(n.value), 10, 8)
	if err != nil {
		return nil, invalid(n.value, "byte", err)
	}
	b := byte(v)
	return &b, nil
}

func (n *ParseNode) GetInt32Value() (*int32, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(n.value), 10, 32)
	if err != nil {
		return nil, invalid(n.value, "int32", err)
	}
	i := int32(v)
	return &i, nil
}

func (n *ParseNode) GetInt64Value() (*int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(n.value), 10, 64)
	if err != nil {
		return nil, invalid(n.value, "int64", err)
	}
	return &v, nil
}

func (n *ParseNode) GetFloat32Value() (*float32, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(n.value), 32)
	if err != nil {
		return nil, invalid(n.value, "float32", err)
	}
	f := float32(v)
	return &f, nil
}

func (n *ParseNode) GetFloat64Value() (*float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(n.value), 64)
	if err != nil {
		return nil, invalid(n.value, "float64", err)
	}
	return &v, nil
}

func (n *ParseNode) GetUUIDValue() (*uuid.UUID, error) {
	v, err := uuid.Parse(strings.TrimSpace(n.value))
	if err != nil {
		return nil, invalid(n.value, "uuid", err)
	}
	return &v, nil
}

func (n *ParseNode) GetTimeValue() (*time.Time, error) {
	v, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(n.value))
	if err != nil {
		return nil, invalid(n.value, "time", err)
	}
	return &v, nil
}

func (n *ParseNode) GetEnumValue(parser serialization.EnumFactory) (any, error) {
	if parser == nil {
		return nil, errors.MissingArgument("parser")
	}
	return parser(n.value)
}

func (n *ParseNode) GetByteArrayValue() ([]byte, error) {
	v, err := base64.StdEncoding.DecodeString(strings.TrimSpace(n.value))
	if err != nil {
		return nil, invalid(n.value, "base64", err)
	}
	return v, nil
}

func (n *ParseNode) GetRawValue() (any, error) {
	return n.value, nil
}

func invalid(value, target string, cause error) error {
	return errors.Deserialization(fmt.Sprintf("%q is not a valid %s", value, target), cause)
}

// SerializationWriter writes a single scalar as text.
type SerializationWriter struct {
	value   *string
	hooks   serialization.WriteHooks
	written bool
}

// NewSerializationWriter creates an empty text writer.
func NewSerializationWriter() *SerializationWriter {
	return &SerializationWriter{}
}

func (w *SerializationWriter) Hooks() *serialization.WriteHooks { return &w.hooks }

func (w *SerializationWriter) set(key, value string) error {
	if key != "" {
		return errors.Configuration("text payloads cannot hold named values")
	}
	if w.written {
		return errors.Configuration("a text payload holds only one value")
	}
	w.written = true
	w.value = &value
	return nil
}

func (w *SerializationWriter) WriteStringValue(key string, value *string) error {
	if value == nil {
		return nil
	}
	return w.set(key, *value)
}

func (w *SerializationWriter) WriteBoolValue(key string, value *bool) error {
	if value == nil {
		return nil
	}
	return w.set(key, strconv.FormatBool(*value))
}

func (w *SerializationWriter) WriteByteValue(key string, value *byte) error {
	if value == nil {
		return nil
	}
	return w.set(key, strconv.FormatUint(uint64(*value), 10))
}

func (w *SerializationWriter) WriteInt32Value(key string, value *int32) error {
	if value == nil {
		return nil
	}
	return w.set(key, strconv.FormatInt(int64(*value), 10))
}

func (w *SerializationWriter) WriteInt64Value(key string, value *int64) error {
	if value == nil {
		return nil
	}
	return w.set(key, strconv.FormatInt(*value, 10))
}

func (w *SerializationWriter) WriteFloat32Value(key string, value *float32) error {
	if value == nil {
		return nil
	}
	return w.set(key, strconv.FormatFloat(float64(*value), 'g', -1, 32))
}

func (w *SerializationWriter) WriteFloat64Value(key string, value *float64) error {
	if value == nil {
		return nil
	}
	return w.set(key, strconv.FormatFloat(*value, 'g', -1, 64))
}

func (w *SerializationWriter) WriteUUIDValue(key string, value *uuid.UUID) error {
	if value == nil {
		return nil
	}
	return w.set(key, value.String())
}

func (w *SerializationWriter) WriteTimeValue(key string, value *time.Time) error {
	if value == nil {
		return nil
	}
	return w.set(key, value.Format(time.RFC3339Nano))
}

func (w *SerializationWriter) WriteByteArrayValue(key string, value []byte) error {
	if value == nil {
		return nil
	}
	return w.set(key, base64.StdEncoding.EncodeToString(value))
}

func (w *SerializationWriter) WriteEnumValue(key string, value fmt.Stringer) error {
	if value == nil {
		return nil
	}
	return w.set(key, value.String())
}

func (w *SerializationWriter) WriteNullValue(key string) error {
	return w.set(key, "null")
}

func (w *SerializationWriter) WriteObjectValue(string, serialization.Parsable) error {
	return errNoStructure()
}

func (w *SerializationWriter) WriteCollectionOfObjectValues(string, []serialization.Parsable) error {
	return errNoStructure()
}

func (w *SerializationWriter) WriteCollectionOfStringValues(string, []string) error {
	return errNoStructure()
}

func (w *SerializationWriter) WriteCollectionOfPrimitiveValues(string, []any) error {
	return errNoStructure()
}

func (w *SerializationWriter) WriteCollectionOfEnumValues(string, []fmt.Stringer) error {
	return errNoStructure()
}

func (w *SerializationWriter) WriteAnyValue(key string, value any) error {
	switch v := value.(type) {
	case nil:
		return w.WriteNullValue(key)
	case string:
		return w.set(key, v)
	case []byte:
		return w.WriteByteArrayValue(key, v)
	case fmt.Stringer:
		return w.set(key, v.String())
	case bool, int, int32, int64, uint8, float32, float64:
		return w.set(key, fmt.Sprint(v))
	default:
		return errNoStructure()
	}
}

func (w *SerializationWriter) WriteAdditionalData(data map[string]any) error {
	if len(data) > 0 {
		return errNoStructure()
	}
	return nil
}

func (w *SerializationWriter) GetSerializedContent() ([]byte, error) {
	if w.value == nil {
		return []byte{}, nil
	}
	return []byte(*w.value), nil
}

func (w *SerializationWriter) Close() error {
	w.value = nil
	return nil
}

// ParseNodeFactory creates text parse nodes.
type ParseNodeFactory struct{}

// NewParseNodeFactory creates a text parse node factory.
func NewParseNodeFactory() *ParseNodeFactory { return &ParseNodeFactory{} }

func (f *ParseNodeFactory) GetValidContentType() (string, error) { return ContentType, nil }

func (f *ParseNodeFactory) GetRootParseNode(contentType string, content []byte) (serialization.ParseNode, error) {
	if err := checkContentType(contentType); err != nil {
		return nil, err
	}
	return NewParseNode(string(content))
}

// SerializationWriterFactory creates text writers.
type SerializationWriterFactory struct{}

// NewSerializationWriterFactory creates a text writer factory.
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

// Register adds the text factories to the given registries.
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
