package store

// SubscriptionCallback is invoked after every Set with the key and the
// previous and new values.
type SubscriptionCallback func(key string, oldValue, newValue any)

// BackingStore holds a model's property values and their change state.
type BackingStore interface {
	// Get returns the value for key. When only changed values are
	// returned, an unchanged value reads as nil.
	Get(key string) (any, error)
	// Set stores value and notifies subscribers.
	Set(key string, value any) error
	// Enumerate returns every value, or only the changed ones.
	Enumerate() map[string]any
	// EnumerateKeysForValuesChangedToNull returns the keys whose value was
	// changed to nil.
	EnumerateKeysForValuesChangedToNull() []string
	// Subscribe registers callback under a generated id and returns it.
	Subscribe(callback SubscriptionCallback) string
	// SubscribeWithID registers callback under id, replacing any previous one.
	SubscribeWithID(callback SubscriptionCallback, id string) error
	Unsubscribe(id string) error
	// Clear drops every value.
	Clear()
	GetInitializationCompleted() bool
	// SetInitializationCompleted marks every value clean (true) or dirty (false).
	SetInitializationCompleted(value bool)
	GetReturnOnlyChangedValues() bool
	SetReturnOnlyChangedValues(value bool)
}

// BackedModel is implemented by models that keep their state in a BackingStore.
type BackedModel interface {
	GetBackingStore() BackingStore
}

// BackingStoreFactory creates the store a new model instance starts with.
type BackingStoreFactory func() BackingStore

// DefaultBackingStoreFactory creates in-memory stores.
var DefaultBackingStoreFactory BackingStoreFactory = func() BackingStore {
	return NewInMemoryBackingStore()
}
