package jsonser

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/gokiota/errors"
	"github.com/kbukum/gokiota/serialization"
)

// SerializationWriter is a JSON implementation of serialization.SerializationWriter.
type SerializationWriter struct {
	buf    bytes.Buffer
	counts []int // values written in each open container
	hooks  serialization.WriteHooks
	closed bool
}

// NewSerializationWriter creates an empty JSON writer.
func NewSerializationWriter() *SerializationWriter {
	return &SerializationWriter{}
}

// Hooks returns the observers fired around object writes.
func (w *SerializationWriter) Hooks() *serialization.WriteHooks {
	return &w.hooks
}

func (w *SerializationWriter) ensureOpen() error {
	if w.closed {
		return errors.Configuration("the serialization writer is closed")
	}
	return nil
}

// writeKey emits the separator and, inside an object, the property name.
func (w *SerializationWriter) writeKey(key string) {
	if n := len(w.counts); n > 0 {
		if w.counts[n-1] > 0 {
			w.buf.WriteByte(',')
		}
		w.counts[n-1]++
	}
	if key != "" {
		w.writeQuoted(key)
		w.buf.WriteByte(':')
	}
}

func (w *SerializationWriter) open(delim byte) {
	w.buf.WriteByte(delim)
	w.counts = append(w.counts, 0)
}

func (w *SerializationWriter) close(delim byte) {
	w.buf.WriteByte(delim)
	w.counts = w.counts[:len(w.counts)-1]
}

func (w *SerializationWriter) writeQuoted(s string) {
	b, _ := json.Marshal(s)
	w.buf.Write(b)
}

func (w *SerializationWriter) writeRaw(key, raw string) error {
	if err := w.ensureOpen(); err != nil {
		return err
	}
	w.writeKey(key)
	w.buf.WriteString(raw)
	return nil
}

func (w *SerializationWriter) writeString(key, s string) error {
	if err := w.ensureOpen(); err != nil {
		return err
	}
	w.writeKey(key)
	w.writeQuoted(s)
	return nil
}

func formatFloat(v float64, bits int) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", errors.Serialization(fmt.Sprintf("%v cannot be represented in JSON", v), nil)
	}
	return strconv.FormatFloat(v, 'g', -1, bits), nil
}

// WriteStringValue writes a string; nil values are omitted.
func (w *SerializationWriter) WriteStringValue(key string, value *string) error {
	if value == nil {
		return nil
	}
	return w.writeString(key, *value)
}

// WriteBoolValue writes a boolean; nil values are omitted.
func (w *SerializationWriter) WriteBoolValue(key string, value *bool) error {
	if value == nil {
		return nil
	}
	return w.writeRaw(key, strconv.FormatBool(*value))
}

// WriteByteValue writes a byte as a number; nil values are omitted.
func (w *SerializationWriter) WriteByteValue(key string, value *byte) error {
	if value == nil {
		return nil
	}
	return w.writeRaw(key, strconv.FormatUint(uint64(*value), 10))
}

// WriteInt32Value writes an int32; nil values are omitted.
func (w *SerializationWriter) WriteInt32Value(key string, value *int32) error {
	if value == nil {
		return nil
	}
	return w.writeRaw(key, strconv.FormatInt(int64(*value), 10))
}

// WriteInt64Value writes an int64; nil values are omitted.
func (w *SerializationWriter) WriteInt64Value(key string, value *int64) error {
	if value == nil {
		return nil
	}
	return w.writeRaw(key, strconv.FormatInt(*value, 10))
}

// WriteFloat32Value writes a float32; nil values are omitted.
func (w *SerializationWriter) WriteFloat32Value(key string, value *float32) error {
	if value == nil {
		return nil
	}
	s, err := formatFloat(float64(*value), 32)
	if err != nil {
		return err
	}
	return w.writeRaw(key, s)
}

// WriteFloat64Value writes a float64; nil values are omitted.
func (w *SerializationWriter) WriteFloat64Value(key string, value *float64) error {
	if value == nil {
		return nil
	}
	s, err := formatFloat(*value, 64)
	if err != nil {
		return err
	}
	return w.writeRaw(key, s)
}

// WriteUUIDValue writes a UUID as a string; nil values are omitted.
func (w *SerializationWriter) WriteUUIDValue(key string, value *uuid.UUID) error {
	if value == nil {
		return nil
	}
	return w.writeString(key, value.String())
}

// WriteTimeValue writes an RFC 3339 timestamp; nil values are omitted.
func (w *SerializationWriter) WriteTimeValue(key string, value *time.Time) error {
	if value == nil {
		return nil
	}
	return w.writeString(key, value.Format(time.RFC3339Nano))
}

// WriteByteArrayValue writes base64 content; nil values are omitted.
func (w *SerializationWriter) WriteByteArrayValue(key string, value []byte) error {
	if value == nil {
		return nil
	}
	return w.writeString(key, base64.StdEncoding.EncodeToString(value))
}

// WriteEnumValue writes the enum's string form; nil values are omitted.
func (w *SerializationWriter) WriteEnumValue(key string, value fmt.Stringer) error {
	if isNil(value) {
		return nil
	}
	return w.writeString(key, value.String())
}

// WriteNullValue writes an explicit null.
func (w *SerializationWriter) WriteNullValue(key string) error {
	return w.writeRaw(key, "null")
}

// WriteObjectValue writes item as a JSON object; nil items are omitted.
func (w *SerializationWriter) WriteObjectValue(key string, item serialization.Parsable) error {
	if isNil(item) {
		return nil
	}
	if err := w.ensureOpen(); err != nil {
		return err
	}
	w.writeKey(key)
	if err := w.hooks.FireBefore(item); err != nil {
		return err
	}
	w.open('{')
	if err := w.hooks.FireStart(item, w); err != nil {
		return err
	}
	if err := item.Serialize(w); err != nil {
		return errors.Serialization("model serialization failed", err)
	}
	w.close('}')
	return w.hooks.FireAfter(item)
}

// WriteCollectionOfObjectValues writes items as an array; nil elements become null.
func (w *SerializationWriter) WriteCollectionOfObjectValues(key string, items []serialization.Parsable) error {
	if items == nil {
		return nil
	}
	return w.writeArray(key, len(items), func(i int) error {
		if isNil(items[i]) {
			return w.WriteNullValue("")
		}
		return w.WriteObjectValue("", items[i])
	})
}

// WriteCollectionOfStringValues writes values as an array of strings.
func (w *SerializationWriter) WriteCollectionOfStringValues(key string, values []string) error {
	if values == nil {
		return nil
	}
	return w.writeArray(key, len(values), func(i int) error {
		return w.writeString("", values[i])
	})
}

// WriteCollectionOfPrimitiveValues writes scalars as an array.
func (w *SerializationWriter) WriteCollectionOfPrimitiveValues(key string, values []any) error {
	if values == nil {
		return nil
	}
	return w.writeArray(key, len(values), func(i int) error {
		return w.WriteAnyValue("", values[i])
	})
}

// WriteCollectionOfEnumValues writes enums as an array of strings.
func (w *SerializationWriter) WriteCollectionOfEnumValues(key string, values []fmt.Stringer) error {
	if values == nil {
		return nil
	}
	return w.writeArray(key, len(values), func(i int) error {
		if isNil(values[i]) {
			return w.WriteNullValue("")
		}
		return w.writeString("", values[i].String())
	})
}

func (w *SerializationWriter) writeArray(key string, n int, element func(i int) error) error {
	if err := w.ensureOpen(); err != nil {
		return err
	}
	w.writeKey(key)
	w.open('[')
	for i := 0; i < n; i++ {
		if err := element(i); err != nil {
			return err
		}
	}
	w.close(']')
	return nil
}

// WriteAnyValue writes a plain Go value. Maps are written with sorted keys;
// unknown types fall back to encoding/json.
func (w *SerializationWriter) WriteAnyValue(key string, value any) error {
	if isNil(value) {
		return w.WriteNullValue(key)
	}
	switch v := value.(type) {
	case string:
		return w.writeString(key, v)
	case *string:
		return w.WriteStringValue(key, v)
	case bool:
		return w.WriteBoolValue(key, &v)
	case *bool:
		return w.WriteBoolValue(key, v)
	case byte:
		return w.WriteByteValue(key, &v)
	case int:
		return w.writeRaw(key, strconv.Itoa(v))
	case int32:
		return w.WriteInt32Value(key, &v)
	case *int32:
		return w.WriteInt32Value(key, v)
	case int64:
		return w.WriteInt64Value(key, &v)
	case *int64:
		return w.WriteInt64Value(key, v)
	case float32:
		return w.WriteFloat32Value(key, &v)
	case float64:
		return w.WriteFloat64Value(key, &v)
	case *float64:
		return w.WriteFloat64Value(key, v)
	case json.Number:
		return w.writeRaw(key, v.String())
	case uuid.UUID:
		return w.WriteUUIDValue(key, &v)
	case time.Time:
		return w.WriteTimeValue(key, &v)
	case []byte:
		return w.WriteByteArrayValue(key, v)
	case serialization.Parsable:
		return w.WriteObjectValue(key, v)
	case fmt.Stringer:
		return w.WriteEnumValue(key, v)
	case []string:
		return w.WriteCollectionOfStringValues(key, v)
	case []any:
		return w.WriteCollectionOfPrimitiveValues(key, v)
	case map[string]any:
		if err := w.ensureOpen(); err != nil {
			return err
		}
		w.writeKey(key)
		w.open('{')
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if err := w.WriteAnyValue(k, v[k]); err != nil {
				return err
			}
		}
		w.close('}')
		return nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return errors.Serialization(fmt.Sprintf("unsupported value of type %T", v), err)
		}
		return w.writeRaw(key, string(b))
	}
}

// WriteAdditionalData writes every entry in sorted key order.
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

// GetSerializedContent returns a copy of the payload written so far.
func (w *SerializationWriter) GetSerializedContent() ([]byte, error) {
	if err := w.ensureOpen(); err != nil {
		return nil, err
	}
	if len(w.counts) > 0 {
		return nil, errors.Serialization("the payload has unclosed containers", nil)
	}
	return bytes.Clone(w.buf.Bytes()), nil
}

// Close releases the buffer.
func (w *SerializationWriter) Close() error {
	w.closed = true
	w.buf.Reset()
	w.counts = nil
	return nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
