package yamlser

import (
	"encoding/base64"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/kbukum/gokiota/errors"
	"github.com/kbukum/gokiota/serialization"
)

// SerializationWriter builds a YAML node tree.
type SerializationWriter struct {
	root   *yaml.Node
	stack  []*yaml.Node
	hooks  serialization.WriteHooks
	closed bool
}

// NewSerializationWriter creates an empty YAML writer.
func NewSerializationWriter() *SerializationWriter {
	return &SerializationWriter{}
}

func (w *SerializationWriter) Hooks() *serialization.WriteHooks { return &w.hooks }

// attach places value under key in the current container, or as the root.
func (w *SerializationWriter) attach(key string, value *yaml.Node) error {
	if w.closed {
		return errors.Configuration("the serialization writer is closed")
	}
	if len(w.stack) == 0 {
		if w.root != nil {
			return errors.Configuration("a YAML document holds only one root value")
		}
		w.root = value
		return nil
	}
	parent := w.stack[len(w.stack)-1]
	if parent.Kind == yaml.MappingNode {
		if key == "" {
			return errors.Configuration("mapping entries need a key")
		}
		parent.Content = append(parent.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, value)
		return nil
	}
	parent.Content = append(parent.Content, value)
	return nil
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func (w *SerializationWriter) push(key string, kind yaml.Kind) error {
	tag := "!!map"
	if kind == yaml.SequenceNode {
		tag = "!!seq"
	}
	node := &yaml.Node{Kind: kind, Tag: tag}
	if err := w.attach(key, node); err != nil {
		return err
	}
	w.stack = append(w.stack, node)
	return nil
}

func (w *SerializationWriter) pop() {
	w.stack = w.stack[:len(w.stack)-1]
}

func (w *SerializationWriter) WriteStringValue(key string, value *string) error {
	if value == nil {
		return nil
	}
	return w.attach(key, scalar("!!str", *value))
}

func (w *SerializationWriter) WriteBoolValue(key string, value *bool) error {
	if value == nil {
		return nil
	}
	return w.attach(key, scalar(tagBool, strconv.FormatBool(*value)))
}

func (w *SerializationWriter) WriteByteValue(key string, value *byte) error {
	if value == nil {
		return nil
	}
	return w.attach(key, scalar(tagInt, strconv.FormatUint(uint64(*value), 10)))
}

func (w *SerializationWriter) WriteInt32Value(key string, value *int32) error {
	if value == nil {
		return nil
	}
	return w.attach(key, scalar(tagInt, strconv.FormatInt(int64(*value), 10)))
}

func (w *SerializationWriter) WriteInt64Value(key string, value *int64) error {
	if value == nil {
		return nil
	}
	return w.attach(key, scalar(tagInt, strconv.FormatInt(*value, 10)))
}

func (w *SerializationWriter) WriteFloat32Value(key string, value *float32) error {
	if value == nil {
		return nil
	}
	return w.attach(key, scalar(tagFloat, strconv.FormatFloat(float64(*value), 'g', -1, 32)))
}

func (w *SerializationWriter) WriteFloat64Value(key string, value *float64) error {
	if value == nil {
		return nil
	}
	return w.attach(key, scalar(tagFloat, strconv.FormatFloat(*value, 'g', -1, 64)))
}

func (w *SerializationWriter) WriteUUIDValue(key string, value *uuid.UUID) error {
	if value == nil {
		return nil
	}
	return w.attach(key, scalar("!!str", value.String()))
}

func (w *SerializationWriter) WriteTimeValue(key string, value *time.Time) error {
	if value == nil {
		return nil
	}
	return w.attach(key, scalar("!!str", value.Format(time.RFC3339Nano)))
}

func (w *SerializationWriter) WriteByteArrayValue(key string, value []byte) error {
	if value == nil {
		return nil
	}
	return w.attach(key, scalar("!!str", base64.StdEncoding.EncodeToString(value)))
}

func (w *SerializationWriter) WriteEnumValue(key string, value fmt.Stringer) error {
	if value == nil {
		return nil
	}
	return w.attach(key, scalar("!!str", value.String()))
}

func (w *SerializationWriter) WriteNullValue(key string) error {
	return w.attach(key, scalar(tagNull, "null"))
}

// WriteObjectValue writes item as a mapping, firing hooks around it.
func (w *SerializationWriter) WriteObjectValue(key string, item serialization.Parsable) error {
	if item == nil {
		return nil
	}
	if err := w.hooks.FireBefore(item); err != nil {
		return err
	}
	if err := w.push(key, yaml.MappingNode); err != nil {
		return err
	}
	if err := w.hooks.FireStart(item, w); err != nil {
		return err
	}
	if err := item.Serialize(w); err != nil {
		return errors.Serialization("model serialization failed", err)
	}
	w.pop()
	return w.hooks.FireAfter(item)
}

func (w *SerializationWriter) writeSequence(key string, n int, element func(i int) error) error {
	if err := w.push(key, yaml.SequenceNode); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := element(i); err != nil {
			return err
		}
	}
	w.pop()
	return nil
}

func (w *SerializationWriter) WriteCollectionOfObjectValues(key string, items []serialization.Parsable) error {
	if items == nil {
		return nil
	}
	return w.writeSequence(key, len(items), func(i int) error {
		if items[i] == nil {
			return w.WriteNullValue("")
		}
		return w.WriteObjectValue("", items[i])
	})
}

func (w *SerializationWriter) WriteCollectionOfStringValues(key string, values []string) error {
	if values == nil {
		return nil
	}
	return w.writeSequence(key, len(values), func(i int) error {
		return w.WriteStringValue("", &values[i])
	})
}

func (w *SerializationWriter) WriteCollectionOfPrimitiveValues(key string, values []any) error {
	if values == nil {
		return nil
	}
	return w.writeSequence(key, len(values), func(i int) error {
		return w.WriteAnyValue("", values[i])
	})
}

func (w *SerializationWriter) WriteCollectionOfEnumValues(key string, values []fmt.Stringer) error {
	if values == nil {
		return nil
	}
	return w.writeSequence(key, len(values), func(i int) error {
		if values[i] == nil {
			return w.WriteNullValue("")
		}
		return w.WriteEnumValue("", values[i])
	})
}

// WriteAnyValue writes a plain Go value; maps are written with sorted keys.
func (w *SerializationWriter) WriteAnyValue(key string, value any) error {
	switch v := value.(type) {
	case nil:
		return w.WriteNullValue(key)
	case string:
		return w.WriteStringValue(key, &v)
	case bool:
		return w.WriteBoolValue(key, &v)
	case int:
		return w.attach(key, scalar(tagInt, strconv.Itoa(v)))
	case int32:
		return w.WriteInt32Value(key, &v)
	case int64:
		return w.WriteInt64Value(key, &v)
	case byte:
		return w.WriteByteValue(key, &v)
	case float32:
		return w.WriteFloat32Value(key, &v)
	case float64:
		return w.WriteFloat64Value(key, &v)
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
		if err := w.push(key, yaml.MappingNode); err != nil {
			return err
		}
		if err := w.WriteAdditionalData(v); err != nil {
			return err
		}
		w.pop()
		return nil
	default:
		var node yaml.Node
		if err := node.Encode(v); err != nil {
			return errors.Serialization(fmt.Sprintf("unsupported value of type %T", v), err)
		}
		return w.attach(key, &node)
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

// GetSerializedContent marshals the tree built so far.
func (w *SerializationWriter) GetSerializedContent() ([]byte, error) {
	if w.closed {
		return nil, errors.Configuration("the serialization writer is closed")
	}
	if len(w.stack) > 0 {
		return nil, errors.Serialization("the payload has unclosed containers", nil)
	}
	if w.root == nil {
		return []byte{}, nil
	}
	out, err := yaml.Marshal(w.root)
	if err != nil {
		return nil, errors.Serialization("failed to marshal YAML", err)
	}
	return out, nil
}

func (w *SerializationWriter) Close() error {
	w.closed = true
	w.root = nil
	w.stack = nil
	return nil
}
