package serialization

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SerializationWriter is a single-pass, append-only payload writer. An
// empty key writes a bare value (a collection element or the root).
type SerializationWriter interface {
	WriteStringValue(key string, value *string) error
	WriteBoolValue(key string, value *bool) error
	WriteByteValue(key string, value *byte) error
	WriteInt32Value(key string, value *int32) error
	WriteInt64Value(key string, value *int64) error
	WriteFloat32Value(key string, value *float32) error
	WriteFloat64Value(key string, value *float64) error
	WriteUUIDValue(key string, value *uuid.UUID) error
	WriteTimeValue(key string, value *time.Time) error
	WriteByteArrayValue(key string, value []byte) error
	WriteEnumValue(key string, value fmt.Stringer) error
	// WriteNullValue writes an explicit null for key.
	WriteNullValue(key string) error
	// WriteObjectValue fires before hooks, opens the object, fires start
	// hooks, calls item.Serialize, closes the object and fires after hooks.
	WriteObjectValue(key string, item Parsable) error
	WriteCollectionOfObjectValues(key string, items []Parsable) error
	WriteCollectionOfStringValues(key string, values []string) error
	WriteCollectionOfPrimitiveValues(key string, values []any) error
	WriteCollectionOfEnumValues(key string, values []fmt.Stringer) error
	// WriteAnyValue writes a plain Go value (scalars, maps, slices, Parsable).
	WriteAnyValue(key string, value any) error
	WriteAdditionalData(data map[string]any) error

	// GetSerializedContent returns the bytes written so far.
	GetSerializedContent() ([]byte, error)
	// Close releases the writer; it must not be used afterwards.
	Close() error

	// Hooks returns the observer lists fired by WriteObjectValue.
	Hooks() *WriteHooks
}

// SerializationWriterFactory creates writers for one content type.
type SerializationWriterFactory interface {
	GetValidContentType() (string, error)
	GetSerializationWriter(contentType string) (SerializationWriter, error)
}

// WriteHooks holds ordered observers fired around each object write.
// The zero value is ready to use.
type WriteHooks struct {
	before []ParsableAction
	after  []ParsableAction
	start  []ParsableWriter
}

// OnBefore appends an observer fired before the object boundary is opened.
func (h *WriteHooks) OnBefore(action ParsableAction) {
	if action != nil {
		h.before = append(h.before, action)
	}
}

// OnAfter appends an observer fired after the object boundary is closed.
func (h *WriteHooks) OnAfter(action ParsableAction) {
	if action != nil {
		h.after = append(h.after, action)
	}
}

// OnStart appends an observer fired right after the object boundary is
// opened and before the model writes its own fields.
func (h *WriteHooks) OnStart(action ParsableWriter) {
	if action != nil {
		h.start = append(h.start, action)
	}
}

// Len returns the number of registered observers.
func (h *WriteHooks) Len() int {
	return len(h.before) + len(h.after) + len(h.start)
}

// FireBefore runs the before observers in registration order.
func (h *WriteHooks) FireBefore(p Parsable) error { return fire(h.before, p) }

// FireAfter runs the after observers in registration order.
func (h *WriteHooks) FireAfter(p Parsable) error { return fire(h.after, p) }

// FireStart runs the start observers in registration order.
func (h *WriteHooks) FireStart(p Parsable, w SerializationWriter) error {
	for _, action := range h.start {
		if err := action(p, w); err != nil {
			return err
		}
	}
	return nil
}
