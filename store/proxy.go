package store

import (
	"github.com/kbukum/gokiota/serialization"
)

// BackingStoreParseNodeFactory marks models read through it as clean once
// parsing completes.
type BackingStoreParseNodeFactory struct {
	*serialization.ParseNodeProxyFactory
}

// NewBackingStoreParseNodeFactory wraps concrete with backing store hooks.
func NewBackingStoreParseNodeFactory(concrete serialization.ParseNodeFactory) (*BackingStoreParseNodeFactory, error) {
	proxy, err := serialization.NewParseNodeProxyFactory(concrete,
		func(p serialization.Parsable) error {
			if bs := backingStoreOf(p); bs != nil {
				bs.SetInitializationCompleted(false)
			}
			return nil
		},
		func(p serialization.Parsable) error {
			if bs := backingStoreOf(p); bs != nil {
				bs.SetInitializationCompleted(true)
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return &BackingStoreParseNodeFactory{ParseNodeProxyFactory: proxy}, nil
}

// BackingStoreSerializationWriterProxyFactory writes only changed values
// and explicit nulls for values cleared since parsing.
type BackingStoreSerializationWriterProxyFactory struct {
	*serialization.SerializationWriterProxyFactory
}

// NewBackingStoreSerializationWriterProxyFactory wraps concrete with backing store hooks.
func NewBackingStoreSerializationWriterProxyFactory(concrete serialization.SerializationWriterFactory) (*BackingStoreSerializationWriterProxyFactory, error) {
	proxy, err := serialization.NewSerializationWriterProxyFactory(concrete,
		func(p serialization.Parsable) error {
			if bs := backingStoreOf(p); bs != nil {
				bs.SetReturnOnlyChangedValues(true)
			}
			return nil
		},
		func(p serialization.Parsable) error {
			if bs := backingStoreOf(p); bs != nil {
				bs.SetReturnOnlyChangedValues(false)
				bs.SetInitializationCompleted(true)
			}
			return nil
		},
		func(p serialization.Parsable, w serialization.SerializationWriter) error {
			bs := backingStoreOf(p)
			if bs == nil {
				return nil
			}
			for _, key := range bs.EnumerateKeysForValuesChangedToNull() {
				if err := w.WriteNullValue(key); err != nil {
					return err
				}
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return &BackingStoreSerializationWriterProxyFactory{SerializationWriterProxyFactory: proxy}, nil
}

// EnableBackingStoreForParseNodeRegistry wraps every factory currently in
// registry. Factories already wrapped are left as they are; factories
// registered later are not wrapped.
func EnableBackingStoreForParseNodeRegistry(registry *serialization.ParseNodeFactoryRegistry) error {
	var failed error
	registry.WrapAll(func(_ string, f serialization.ParseNodeFactory) serialization.ParseNodeFactory {
		if _, ok := f.(*BackingStoreParseNodeFactory); ok {
			return f
		}
		wrapped, err := NewBackingStoreParseNodeFactory(f)
		if err != nil {
			failed = err
			return f
		}
		return wrapped
	})
	return failed
}

// EnableBackingStoreForSerializationWriterRegistry wraps every factory
// currently in registry, skipping factories already wrapped.
func EnableBackingStoreForSerializationWriterRegistry(registry *serialization.SerializationWriterFactoryRegistry) error {
	var failed error
	registry.WrapAll(func(_ string, f serialization.SerializationWriterFactory) serialization.SerializationWriterFactory {
		if _, ok := f.(*BackingStoreSerializationWriterProxyFactory); ok {
			return f
		}
		wrapped, err := NewBackingStoreSerializationWriterProxyFactory(f)
		if err != nil {
			failed = err
			return f
		}
		return wrapped
	})
	return failed
}

func backingStoreOf(p serialization.Parsable) BackingStore {
	if m, ok := p.(BackedModel); ok && !isNil(m) {
		return m.GetBackingStore()
	}
	return nil
}
