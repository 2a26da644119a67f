package jsonser

import (
	"github.com/kbukum/gokiota/errors"
	"github.com/kbukum/gokiota/serialization"
)

// ContentType is the content type handled by this package.
const ContentType = "application/json"

// ParseNodeFactory creates JSON parse nodes.
type ParseNodeFactory struct{}

// NewParseNodeFactory creates a JSON parse node factory.
func NewParseNodeFactory() *ParseNodeFactory {
	return &ParseNodeFactory{}
}

// GetValidContentType returns application/json.
func (f *ParseNodeFactory) GetValidContentType() (string, error) {
	return ContentType, nil
}

// GetRootParseNode parses content as JSON.
func (f *ParseNodeFactory) GetRootParseNode(contentType string, content []byte) (serialization.ParseNode, error) {
	if err := checkContentType(contentType); err != nil {
		return nil, err
	}
	return NewParseNode(content)
}

// SerializationWriterFactory creates JSON writers.
type SerializationWriterFactory struct{}

// NewSerializationWriterFactory creates a JSON writer factory.
func NewSerializationWriterFactory() *SerializationWriterFactory {
	return &SerializationWriterFactory{}
}

// GetValidContentType returns application/json.
func (f *SerializationWriterFactory) GetValidContentType() (string, error) {
	return ContentType, nil
}

// GetSerializationWriter returns a new JSON writer.
func (f *SerializationWriterFactory) GetSerializationWriter(contentType string) (serialization.SerializationWriter, error) {
	if err := checkContentType(contentType); err != nil {
		return nil, err
	}
	return NewSerializationWriter(), nil
}

func checkContentType(contentType string) error {
	if contentType == "" {
		return errors.MissingArgument("contentType")
	}
	if serialization.VendorCleanedContentType(serialization.NormalizeContentType(contentType)) != ContentType {
		return errors.UnsupportedContentType(contentType)
	}
	return nil
}

// Register adds the JSON factories to the given registries.
func Register(parsers *serialization.ParseNodeFactoryRegistry, writers *serialization.SerializationWriterFactoryRegistry) error {
	if parsers != nil {
		if err := parsers.Register(ContentType, NewParseNodeFactory()); err != nil {
			return err
		}
	}
	if writers != nil {
		if err := writers.Register(ContentType, NewSerializationWriterFactory()); err != nil {
			return err
		}
	}
	return nil
}

// RegisterDefaults adds the JSON factories to the default registries.
func RegisterDefaults() error {
	return Register(serialization.DefaultParseNodeFactoryRegistry, serialization.DefaultSerializationWriterFactoryRegistry)
}
