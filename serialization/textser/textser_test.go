package textser

import (
	"testing"

	"github.com/kbukum/gokiota/errors"
	"github.com/kbukum/gokiota/serialization"
)

func TestParseNode_Scalars(t *testing.T) {
	node, err := NewParseNode(`"42"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, _ := node.GetStringValue()
	if *s != "42" {
		t.Errorf("expected quotes trimmed, got %q", *s)
	}
	i, err := node.GetInt32Value()
	if err != nil || *i != 42 {
		t.Errorf("unexpected int32 %v (%v)", i, err)
	}
	v, err := serialization.PrimitiveValue(node, serialization.KindInt64)
	if err != nil || v != int64(42) {
		t.Errorf("unexpected primitive %v (%v)", v, err)
	}
	if _, err := node.GetUUIDValue(); !errors.Is(err, errors.ErrCodeDeserialization) {
		t.Errorf("expected DESERIALIZATION error, got %v", err)
	}
}

func TestParseNode_NoStructure(t *testing.T) {
	node, _ := NewParseNode("hello")
	if _, err := node.GetObjectValue(nil); err == nil {
		t.Error("expected error for object read")
	}
	if _, err := node.GetChildNode("a"); err == nil {
		t.Error("expected error for child node")
	}
	if _, err := serialization.CollectValues(node.GetCollectionOfPrimitiveValues(serialization.KindString)); err == nil {
		t.Error("expected error for collection read")
	}
}

func TestSerializationWriter_SingleValue(t *testing.T) {
	w := NewSerializationWriter()
	v := int64(7)
	if err := w.WriteInt64Value("", &v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.WriteInt64Value("", &v); err == nil {
		t.Error("expected error for second value")
	}
	content, _ := w.GetSerializedContent()
	if string(content) != "7" {
		t.Errorf("expected 7, got %q", content)
	}
}

func TestSerializationWriter_RejectsKeysAndObjects(t *testing.T) {
	w := NewSerializationWriter()
	s := "x"
	if err := w.WriteStringValue("name", &s); err == nil {
		t.Error("expected error for named value")
	}
	if err := w.WriteObjectValue("", nil); err == nil {
		t.Error("expected error for object")
	}
	if err := w.WriteAdditionalData(map[string]any{"a": 1}); err == nil {
		t.Error("expected error for additional data")
	}
}

func TestFactory_ContentType(t *testing.T) {
	f := NewParseNodeFactory()
	if _, err := f.GetRootParseNode("text/plain; charset=utf-8", []byte("ok")); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := f.GetRootParseNode("application/json", []byte("ok")); err == nil {
		t.Error("expected error for json content type")
	}
}
