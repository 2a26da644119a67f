package serialization

import (
	"fmt"
	"iter"

	"github.com/kbukum/gokiota/errors"
)

// CollectObjects materializes a lazy model sequence, stopping at the first error.
func CollectObjects(seq iter.Seq2[Parsable, error]) ([]Parsable, error) {
	var out []Parsable
	for item, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// CollectValues materializes a lazy scalar or enum sequence, stopping at the first error.
func CollectValues(seq iter.Seq2[any, error]) ([]any, error) {
	var out []any
	for item, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// CollectAs materializes a lazy model sequence as a typed slice.
func CollectAs[T Parsable](seq iter.Seq2[Parsable, error]) ([]T, error) {
	var out []T
	for item, err := range seq {
		if err != nil {
			return nil, err
		}
		typed, ok := item.(T)
		if !ok && item != nil {
			return nil, errors.Deserialization("collection element has an unexpected type", nil).WithDetail("type", fmt.Sprintf("%T", item))
		}
		out = append(out, typed)
	}
	return out, nil
}

// Serialize writes model using the writer factory registered for contentType.
func Serialize(factory SerializationWriterFactory, contentType string, model Parsable) ([]byte, error) {
	if model == nil {
		return nil, errors.MissingArgument("model")
	}
	writer, err := factory.GetSerializationWriter(contentType)
	if err != nil {
		return nil, err
	}
	defer func() { _ = writer.Close() }()
	if err := writer.WriteObjectValue("", model); err != nil {
		return nil, err
	}
	return writer.GetSerializedContent()
}

// SerializeCollection writes models as a top-level collection.
func SerializeCollection(factory SerializationWriterFactory, contentType string, models []Parsable) ([]byte, error) {
	writer, err := factory.GetSerializationWriter(contentType)
	if err != nil {
		return nil, err
	}
	defer func() { _ = writer.Close() }()
	if err := writer.WriteCollectionOfObjectValues("", models); err != nil {
		return nil, err
	}
	return writer.GetSerializedContent()
}

// Deserialize parses content into a model using the parse node factory registered for contentType.
func Deserialize(factory ParseNodeFactory, contentType string, content []byte, ctor ParsableFactory) (Parsable, error) {
	if ctor == nil {
		return nil, errors.MissingArgument("ctor")
	}
	node, err := factory.GetRootParseNode(contentType, content)
	if err != nil {
		return nil, err
	}
	return node.GetObjectValue(ctor)
}

// DeserializeCollection parses content into a slice of models.
func DeserializeCollection(factory ParseNodeFactory, contentType string, content []byte, ctor ParsableFactory) ([]Parsable, error) {
	if ctor == nil {
		return nil, errors.MissingArgument("ctor")
	}
	node, err := factory.GetRootParseNode(contentType, content)
	if err != nil {
		return nil, err
	}
	return CollectObjects(node.GetCollectionOfObjectValues(ctor))
}
