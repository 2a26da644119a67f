package serialization

import (
	"iter"
	"time"

	"github.com/google/uuid"
)

// ParseNode is a read handle on one position of a deserialized payload.
// Nodes are read-only; child nodes and collection element nodes share the
// hooks of the node they were produced from.
type ParseNode interface {
	// GetChildNode returns the node for a named property, or nil when absent.
	GetChildNode(name string) (ParseNode, error)
	// GetObjectValue builds a model with factory and feeds every property
	// through the model's field deserializers.
	GetObjectValue(factory ParsableFactory) (Parsable, error)
	// GetCollectionOfObjectValues lazily parses each array element as a model.
	GetCollectionOfObjectValues(factory ParsableFactory) iter.Seq2[Parsable, error]
	// GetCollectionOfPrimitiveValues lazily reads each array element as a scalar.
	GetCollectionOfPrimitiveValues(kind Kind) iter.Seq2[any, error]
	// GetCollectionOfEnumValues lazily parses each array element with parser.
	GetCollectionOfEnumValues(parser EnumFactory) iter.Seq2[any, error]

	GetStringValue() (*string, error)
	GetBoolValue() (*bool, error)
	GetByteValue() (*byte, error)
	GetInt32Value() (*int32, error)
	GetInt64Value() (*int64, error)
	GetFloat32Value() (*float32, error)
	GetFloat64Value() (*float64, error)
	GetUUIDValue() (*uuid.UUID, error)
	GetTimeValue() (*time.Time, error)
	GetEnumValue(parser EnumFactory) (any, error)
	GetByteArrayValue() ([]byte, error)
	// GetRawValue returns the node converted to plain Go values
	// (map[string]any, []any, string, bool, float64, nil).
	GetRawValue() (any, error)

	// Hooks returns the observer lists fired by GetObjectValue.
	Hooks() *ParseHooks
}

// ParseNodeFactory creates root parse nodes for one content type.
type ParseNodeFactory interface {
	// GetValidContentType returns the content type this factory handles.
	GetValidContentType() (string, error)
	// GetRootParseNode parses content into a tree and returns its root.
	GetRootParseNode(contentType string, content []byte) (ParseNode, error)
}

// ParseHooks holds ordered before/after observers for object parsing.
// The zero value is ready to use.
type ParseHooks struct {
	before []ParsableAction
	after  []ParsableAction
}

// OnBefore appends an observer fired after the model is constructed and
// before any field is assigned.
func (h *ParseHooks) OnBefore(action ParsableAction) {
	if action != nil {
		h.before = append(h.before, action)
	}
}

// OnAfter appends an observer fired once every field has been assigned.
func (h *ParseHooks) OnAfter(action ParsableAction) {
	if action != nil {
		h.after = append(h.after, action)
	}
}

// Len returns the number of registered observers.
func (h *ParseHooks) Len() int {
	return len(h.before) + len(h.after)
}

// FireBefore runs the before observers in registration order.
func (h *ParseHooks) FireBefore(p Parsable) error {
	return fire(h.before, p)
}

// FireAfter runs the after observers in registration order.
func (h *ParseHooks) FireAfter(p Parsable) error {
	return fire(h.after, p)
}

func fire(actions []ParsableAction, p Parsable) error {
	for _, action := range actions {
		if err := action(p); err != nil {
			return err
		}
	}
	return nil
}
