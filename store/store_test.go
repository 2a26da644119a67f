package store

import (
	"reflect"
	"slices"
	"testing"

	"github.com/kbukum/gokiota/errors"
	"github.com/kbukum/gokiota/serialization"
	"github.com/kbukum/gokiota/serialization/jsonser"
)

type contact struct {
	store BackingStore
}

func newContact() *contact { return &contact{store: DefaultBackingStoreFactory()} }

func contactFactory(serialization.ParseNode) (serialization.Parsable, error) {
	return newContact(), nil
}

func (c *contact) GetBackingStore() BackingStore { return c.store }

func (c *contact) getString(key string) *string {
	v, _ := c.store.Get(key)
	s, _ := v.(*string)
	return s
}

func (c *contact) getManager() *contact {
	v, _ := c.store.Get("manager")
	m, _ := v.(*contact)
	return m
}

func (c *contact) setManager(m *contact) {
	if m == nil {
		_ = c.store.Set("manager", nil)
		return
	}
	_ = c.store.Set("manager", m)
}

func (c *contact) GetFieldDeserializers() map[string]func(serialization.ParseNode) error {
	str := func(key string) func(serialization.ParseNode) error {
		return func(n serialization.ParseNode) error {
			return serialization.SetValue(n.GetStringValue, func(v *string) { _ = c.store.Set(key, v) })
		}
	}
	return map[string]func(serialization.ParseNode) error{
		"name":  str("name"),
		"email": str("email"),
		"manager": func(n serialization.ParseNode) error {
			return serialization.SetObjectValue(n, contactFactory, c.setManager)
		},
	}
}

func (c *contact) Serialize(w serialization.SerializationWriter) error {
	if err := w.WriteStringValue("name", c.getString("name")); err != nil {
		return err
	}
	if err := w.WriteStringValue("email", c.getString("email")); err != nil {
		return err
	}
	if m := c.getManager(); m != nil {
		return w.WriteObjectValue("manager", m)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

func TestInMemoryBackingStore_DirtyTracking(t *testing.T) {
	s := NewInMemoryBackingStore()
	if err := s.Set("a", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.SetReturnOnlyChangedValues(true)
	if v, _ := s.Get("a"); v != 1 {
		t.Errorf("expected value set after initialization to be changed, got %v", v)
	}

	s.SetInitializationCompleted(true)
	if v, _ := s.Get("a"); v != nil {
		t.Errorf("expected clean value to be hidden, got %v", v)
	}
	if len(s.Enumerate()) != 0 {
		t.Errorf("expected no changed values, got %v", s.Enumerate())
	}

	_ = s.Set("b", 2)
	if got := s.Enumerate(); !reflect.DeepEqual(got, map[string]any{"b": 2}) {
		t.Errorf("expected only b, got %v", got)
	}

	s.SetReturnOnlyChangedValues(false)
	if got := s.Enumerate(); len(got) != 2 {
		t.Errorf("expected every value, got %v", got)
	}

	s.SetInitializationCompleted(false)
	s.SetReturnOnlyChangedValues(true)
	if got := s.Enumerate(); len(got) != 2 {
		t.Errorf("expected every value dirty, got %v", got)
	}
}

func TestInMemoryBackingStore_ChangedToNull(t *testing.T) {
	s := NewInMemoryBackingStore()
	s.SetInitializationCompleted(false)
	_ = s.Set("kept", ptr("x"))
	_ = s.Set("cleared", ptr("y"))
	s.SetInitializationCompleted(true)

	var typedNil *string
	_ = s.Set("cleared", typedNil)
	_ = s.Set("added", nil)

	keys := s.EnumerateKeysForValuesChangedToNull()
	slices.Sort(keys)
	if !reflect.DeepEqual(keys, []string{"added", "cleared"}) {
		t.Errorf("unexpected keys %v", keys)
	}
}

func TestInMemoryBackingStore_Subscriptions(t *testing.T) {
	s := NewInMemoryBackingStore()
	type change struct {
		key      string
		old, new any
	}
	var changes []change
	id := s.Subscribe(func(key string, oldValue, newValue any) {
		changes = append(changes, change{key, oldValue, newValue})
	})
	if id == "" {
		t.Fatal("expected a subscription id")
	}
	_ = s.Set("k", "v1")
	_ = s.Set("k", "v2")
	if !reflect.DeepEqual(changes, []change{{"k", nil, "v1"}, {"k", "v1", "v2"}}) {
		t.Errorf("unexpected changes %v", changes)
	}

	if err := s.Unsubscribe(id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = s.Set("k", "v3")
	if len(changes) != 2 {
		t.Errorf("expected no callback after unsubscribe, got %d", len(changes))
	}
}

func TestInMemoryBackingStore_Arguments(t *testing.T) {
	s := NewInMemoryBackingStore()
	tests := []struct {
		name string
		fn   func() error
	}{
		{"get", func() error { _, err := s.Get(""); return err }},
		{"set", func() error { return s.Set("", 1) }},
		{"subscribe id", func() error { return s.SubscribeWithID(func(string, any, any) {}, "") }},
		{"subscribe callback", func() error { return s.SubscribeWithID(nil, "x") }},
		{"unsubscribe", func() error { return s.Unsubscribe("") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, errors.ErrCodeMissingArgument) {
				t.Errorf("expected MISSING_ARGUMENT, got %v", err)
			}
		})
	}
}

func TestInMemoryBackingStore_Clear(t *testing.T) {
	s := NewInMemoryBackingStore()
	_ = s.Set("a", 1)
	s.Clear()
	if v, _ := s.Get("a"); v != nil {
		t.Errorf("expected cleared store, got %v", v)
	}
}

func TestInMemoryBackingStore_NestedModelMarksParent(t *testing.T) {
	parent := newContact()
	child := newContact()
	_ = parent.store.Set("manager", child)
	parent.store.SetInitializationCompleted(true)
	if child.store.GetInitializationCompleted() != true {
		t.Fatal("expected initialization state to propagate to nested model")
	}

	parent.store.SetReturnOnlyChangedValues(true)
	if v, _ := parent.store.Get("manager"); v != nil {
		t.Fatalf("expected clean nested model hidden, got %v", v)
	}
	parent.store.SetReturnOnlyChangedValues(false)

	_ = child.store.Set("name", ptr("changed"))
	parent.store.SetReturnOnlyChangedValues(true)
	if v, _ := parent.store.Get("manager"); v != child {
		t.Errorf("expected nested change to mark parent, got %v", v)
	}
}

func TestInMemoryBackingStore_CollectionOfModels(t *testing.T) {
	parent := NewInMemoryBackingStore()
	a, b := newContact(), newContact()
	parent.SetInitializationCompleted(false)
	_ = parent.Set("members", []*contact{a, b})
	parent.SetInitializationCompleted(true)

	parent.SetReturnOnlyChangedValues(true)
	if v, _ := parent.Get("members"); v != nil {
		t.Fatalf("expected clean collection hidden, got %v", v)
	}
	parent.SetReturnOnlyChangedValues(false)
	_ = b.store.Set("email", ptr("b@x"))
	parent.SetReturnOnlyChangedValues(true)
	if v, _ := parent.Get("members"); v == nil {
		t.Error("expected a changed element to mark the collection dirty")
	}
}

func newRegistries(t *testing.T) (*serialization.ParseNodeFactoryRegistry, *serialization.SerializationWriterFactoryRegistry) {
	t.Helper()
	parsers := serialization.NewParseNodeFactoryRegistry()
	writers := serialization.NewSerializationWriterFactoryRegistry()
	if err := jsonser.Register(parsers, writers); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := EnableBackingStoreForParseNodeRegistry(parsers); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := EnableBackingStoreForSerializationWriterRegistry(writers); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return parsers, writers
}

func TestBackingStoreProxies_WriteOnlyChanges(t *testing.T) {
	parsers, writers := newRegistries(t)
	payload := []byte(`{"name":"Ada","email":"ada@example.com","manager":{"name":"Bob"}}`)
	parsed, err := serialization.Deserialize(parsers, jsonser.ContentType, payload, contactFactory)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := parsed.(*contact)
	if *c.getString("name") != "Ada" || *c.getManager().getString("name") != "Bob" {
		t.Fatalf("unexpected contact")
	}

	content, err := serialization.Serialize(writers, jsonser.ContentType, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(content) != "{}" {
		t.Errorf("expected unchanged model to write nothing, got %s", content)
	}

	var cleared *string
	_ = c.store.Set("email", cleared)
	_ = c.store.Set("name", ptr("Ada L."))
	content, err = serialization.Serialize(writers, jsonser.ContentType, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := `{"email":null,"name":"Ada L."}`
	if string(content) != expected {
		t.Errorf("expected %s, got %s", expected, content)
	}
	if c.store.GetReturnOnlyChangedValues() {
		t.Error("expected writer to restore full reads")
	}
}

func TestBackingStoreProxies_NestedChange(t *testing.T) {
	parsers, writers := newRegistries(t)
	parsed, err := serialization.Deserialize(parsers, jsonser.ContentType, []byte(`{"name":"Ada","manager":{"name":"Bob"}}`), contactFactory)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := parsed.(*contact)
	_ = c.getManager().store.Set("email", ptr("bob@example.com"))

	content, err := serialization.Serialize(writers, jsonser.ContentType, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := `{"manager":{"name":"Bob","email":"bob@example.com"}}`
	if string(content) != expected {
		t.Errorf("expected %s, got %s", expected, content)
	}
}

func TestEnableBackingStore_SkipsWrapped(t *testing.T) {
	parsers, writers := newRegistries(t)
	if err := EnableBackingStoreForParseNodeRegistry(parsers); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f, _ := parsers.Lookup(jsonser.ContentType)
	proxy, ok := f.(*BackingStoreParseNodeFactory)
	if !ok {
		t.Fatalf("expected backing store factory, got %T", f)
	}
	if _, nested := proxy.Unwrap().(*BackingStoreParseNodeFactory); nested {
		t.Error("expected a single wrapping layer")
	}

	if err := writers.Register("text/plain", jsonser.NewSerializationWriterFactory()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w, _ := writers.Lookup("text/plain")
	if _, ok := w.(*BackingStoreSerializationWriterProxyFactory); ok {
		t.Error("expected factories registered later to stay unwrapped")
	}
}

// recordingContact notes whether its store reported initialization as
// completed while each field was being assigned.
type recordingContact struct {
	store  BackingStore
	states *[]bool
}

func recordingContactFactory(states *[]bool) serialization.ParsableFactory {
	return func(serialization.ParseNode) (serialization.Parsable, error) {
		return &recordingContact{store: DefaultBackingStoreFactory(), states: states}, nil
	}
}

func (c *recordingContact) GetBackingStore() BackingStore { return c.store }

func (c *recordingContact) GetFieldDeserializers() map[string]func(serialization.ParseNode) error {
	return map[string]func(serialization.ParseNode) error{
		"name": func(n serialization.ParseNode) error {
			*c.states = append(*c.states, c.store.GetInitializationCompleted())
			return serialization.SetValue(n.GetStringValue, func(v *string) { _ = c.store.Set("name", v) })
		},
		"manager": func(n serialization.ParseNode) error {
			*c.states = append(*c.states, c.store.GetInitializationCompleted())
			return serialization.SetObjectValue(n, recordingContactFactory(c.states), func(m *recordingContact) {
				_ = c.store.Set("manager", m)
			})
		},
	}
}

func (c *recordingContact) Serialize(serialization.SerializationWriter) error { return nil }

func TestBackingStoreParseNodeFactory_InitializationDuringParse(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		fields  int
	}{
		{"flat", `{"name":"Ada"}`, 1},
		{"nested", `{"name":"Ada","manager":{"name":"Bob"}}`, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsers, _ := newRegistries(t)
			var states []bool
			parsed, err := serialization.Deserialize(parsers, jsonser.ContentType, []byte(tt.payload), recordingContactFactory(&states))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(states) != tt.fields {
				t.Fatalf("expected %d field assignments, got %d", tt.fields, len(states))
			}
			for i, completed := range states {
				if completed {
					t.Errorf("field %d: expected initialization incomplete while parsing", i)
				}
			}
			c := parsed.(*recordingContact)
			if !c.store.GetInitializationCompleted() {
				t.Error("expected initialization completed after parsing")
			}
			if v, _ := c.store.Get("manager"); v != nil {
				if m := v.(*recordingContact); !m.store.GetInitializationCompleted() {
					t.Error("expected the nested model to be initialized after parsing")
				}
			}
		})
	}
}
