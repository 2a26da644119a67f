package serialization

import (
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/kbukum/gokiota/errors"
)

var vendorSpecificPrefix = regexp.MustCompile(`[^/]+\+`)

// NormalizeContentType strips parameters and lower-cases a content type.
func NormalizeContentType(contentType string) string {
	ct, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}

// VendorCleanedContentType collapses a vendor subtype onto its suffix:
// application/vnd.api+json becomes application/json.
func VendorCleanedContentType(contentType string) string {
	return vendorSpecificPrefix.ReplaceAllString(contentType, "")
}

// registry is a content-type keyed store shared by both factory registries.
type registry[F any] struct {
	mu        sync.RWMutex
	factories map[string]F
}

func newRegistry[F any]() registry[F] {
	return registry[F]{factories: make(map[string]F)}
}

func (r *registry[F]) register(contentType string, factory F) error {
	key := NormalizeContentType(contentType)
	if key == "" {
		return errors.MissingArgument("contentType")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[key] = factory
	return nil
}

// lookup tries the exact normalized type, then the vendor-collapsed one.
func (r *registry[F]) lookup(contentType string) (F, string, error) {
	var zero F
	key := NormalizeContentType(contentType)
	if key == "" {
		return zero, "", errors.MissingArgument("contentType")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if f, ok := r.factories[key]; ok {
		return f, key, nil
	}
	cleaned := VendorCleanedContentType(key)
	if f, ok := r.factories[cleaned]; ok {
		return f, cleaned, nil
	}
	return zero, "", errors.UnsupportedContentType(key)
}

func (r *registry[F]) contentTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.factories))
	for k := range r.factories {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (r *registry[F]) wrapAll(wrap func(contentType string, factory F) F) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, f := range r.factories {
		r.factories[k] = wrap(k, f)
	}
}

// ParseNodeFactoryRegistry dispatches to a ParseNodeFactory by content type.
// It is safe for concurrent use.
type ParseNodeFactoryRegistry struct {
	registry[ParseNodeFactory]
}

// NewParseNodeFactoryRegistry creates an empty registry.
func NewParseNodeFactoryRegistry() *ParseNodeFactoryRegistry {
	return &ParseNodeFactoryRegistry{registry: newRegistry[ParseNodeFactory]()}
}

// Register maps a content type to a factory, replacing any previous one.
func (r *ParseNodeFactoryRegistry) Register(contentType string, factory ParseNodeFactory) error {
	if factory == nil {
		return errors.MissingArgument("factory")
	}
	return r.register(contentType, factory)
}

// Lookup returns the factory for contentType after normalization.
func (r *ParseNodeFactoryRegistry) Lookup(contentType string) (ParseNodeFactory, error) {
	f, _, err := r.lookup(contentType)
	return f, err
}

// ContentTypes returns the registered keys in sorted order.
func (r *ParseNodeFactoryRegistry) ContentTypes() []string {
	return r.contentTypes()
}

// WrapAll replaces every currently registered factory with wrap's result.
func (r *ParseNodeFactoryRegistry) WrapAll(wrap func(contentType string, factory ParseNodeFactory) ParseNodeFactory) {
	r.wrapAll(wrap)
}

// GetValidContentType is not meaningful for a registry and always fails.
func (r *ParseNodeFactoryRegistry) GetValidContentType() (string, error) {
	return "", errors.Configuration("the registry supports multiple content types, get the registered factory instead")
}

// GetRootParseNode selects the factory for contentType and parses content with it.
func (r *ParseNodeFactoryRegistry) GetRootParseNode(contentType string, content []byte) (ParseNode, error) {
	if content == nil {
		return nil, errors.MissingArgument("content")
	}
	f, key, err := r.lookup(contentType)
	if err != nil {
		return nil, err
	}
	return f.GetRootParseNode(key, content)
}

// SerializationWriterFactoryRegistry dispatches to a SerializationWriterFactory
// by content type. It is safe for concurrent use.
type SerializationWriterFactoryRegistry struct {
	registry[SerializationWriterFactory]
}

// NewSerializationWriterFactoryRegistry creates an empty registry.
func NewSerializationWriterFactoryRegistry() *SerializationWriterFactoryRegistry {
	return &SerializationWriterFactoryRegistry{registry: newRegistry[SerializationWriterFactory]()}
}

// Register maps a content type to a factory, replacing any previous one.
func (r *SerializationWriterFactoryRegistry) Register(contentType string, factory SerializationWriterFactory) error {
	if factory == nil {
		return errors.MissingArgument("factory")
	}
	return r.register(contentType, factory)
}

// Lookup returns the factory for contentType after normalization.
func (r *SerializationWriterFactoryRegistry) Lookup(contentType string) (SerializationWriterFactory, error) {
	f, _, err := r.lookup(contentType)
	return f, err
}

// ContentTypes returns the registered keys in sorted order.
func (r *SerializationWriterFactoryRegistry) ContentTypes() []string {
	return r.contentTypes()
}

// WrapAll replaces every currently registered factory with wrap's result.
func (r *SerializationWriterFactoryRegistry) WrapAll(wrap func(contentType string, factory SerializationWriterFactory) SerializationWriterFactory) {
	r.wrapAll(wrap)
}

// GetValidContentType is not meaningful for a registry and always fails.
func (r *SerializationWriterFactoryRegistry) GetValidContentType() (string, error) {
	return "", errors.Configuration("the registry supports multiple content types, get the registered factory instead")
}

// GetSerializationWriter selects the factory for contentType and asks it for a writer.
func (r *SerializationWriterFactoryRegistry) GetSerializationWriter(contentType string) (SerializationWriter, error) {
	f, key, err := r.lookup(contentType)
	if err != nil {
		return nil, err
	}
	return f.GetSerializationWriter(key)
}

// Default registries used when a client is not given explicit ones.
var (
	DefaultParseNodeFactoryRegistry           = NewParseNodeFactoryRegistry()
	DefaultSerializationWriterFactoryRegistry = NewSerializationWriterFactoryRegistry()
)

// RegisterDefaultDeserializer registers a parse node factory in the default
// registry under the content type it reports.
func RegisterDefaultDeserializer(factory ParseNodeFactory) error {
	ct, err := factory.GetValidContentType()
	if err != nil {
		return err
	}
	return DefaultParseNodeFactoryRegistry.Register(ct, factory)
}

// RegisterDefaultSerializer registers a writer factory in the default
// registry under the content type it reports.
func RegisterDefaultSerializer(factory SerializationWriterFactory) error {
	ct, err := factory.GetValidContentType()
	if err != nil {
		return err
	}
	return DefaultSerializationWriterFactoryRegistry.Register(ct, factory)
}
