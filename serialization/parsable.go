package serialization

import (
	"fmt"

	"github.com/kbukum/gokiota/errors"
)

// Parsable is implemented by every model that can be read from a ParseNode
// and written to a SerializationWriter.
type Parsable interface {
	// Serialize writes the model's fields to the writer.
	Serialize(writer SerializationWriter) error
	// GetFieldDeserializers returns a deserializer per wire field name.
	GetFieldDeserializers() map[string]func(ParseNode) error
}

// AdditionalDataHolder is implemented by models that keep payload fields
// without a declared property.
type AdditionalDataHolder interface {
	GetAdditionalData() map[string]any
	SetAdditionalData(value map[string]any)
}

// ParsableFactory constructs a model instance for the given node. It may
// inspect the node (for example a discriminator) to pick a derived type.
type ParsableFactory func(ParseNode) (Parsable, error)

// EnumFactory converts a wire string into an enum value.
type EnumFactory func(string) (any, error)

// ParsableAction is a hook invoked with the model being parsed or written.
type ParsableAction func(Parsable) error

// ParsableWriter is a hook invoked once an object boundary has been opened.
type ParsableWriter func(Parsable, SerializationWriter) error

// SetValue calls setter with the value returned by source when it is non-nil.
// It keeps generated field deserializers down to one line each.
func SetValue[T any](source func() (*T, error), setter func(*T)) error {
	val, err := source()
	if err != nil {
		return err
	}
	if val != nil {
		setter(val)
	}
	return nil
}

// SetObjectValue reads a nested model from node and passes it to setter
// after asserting its concrete type.
func SetObjectValue[T Parsable](node ParseNode, factory ParsableFactory, setter func(T)) error {
	val, err := node.GetObjectValue(factory)
	if err != nil {
		return err
	}
	if val == nil {
		return nil
	}
	typed, ok := val.(T)
	if !ok {
		return errors.Deserialization("factory returned an unexpected type", nil).WithDetail("type", fmt.Sprintf("%T", val))
	}
	setter(typed)
	return nil
}
