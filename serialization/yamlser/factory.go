package yamlser

import (
	"github.com/kbukum/gokiota/errors"
	"github.com/kbukum/gokiota/serialization"
)

// ContentType is the content type handled by this package.
const ContentType = "application/yaml"

var acceptedContentTypes = map[string]bool{
	ContentType:          true,
	"application/x-yaml": true,
	"text/yaml":          true,
}

// ParseNodeFactory creates YAML parse nodes.
type ParseNodeFactory struct{}

// NewParseNodeFactory creates a YAML parse node factory.
func NewParseNodeFactory() *ParseNodeFactory { return &ParseNodeFactory{} }

func (f *ParseNodeFactory) GetValidContentType() (string, error) { return ContentType, nil }

func (f *ParseNodeFactory) GetRootParseNode(contentType string, content []byte) (serialization.ParseNode, error) {
	if err := checkContentType(contentType); err != nil {
		return nil, err
	}
	return NewParseNode(content)
}

// SerializationWriterFactory creates YAML writers.
type SerializationWriterFactory struct{}

// NewSerializationWriterFactory creates a YAML writer factory.
func NewSerializationWriterFactory() *SerializationWriterFactory {
	return &SerializationWriterFactory{}
}

func (f *SerializationWriterFactory) GetValidContentType() (string, error) { return ContentType, nil }

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
	if !acceptedContentTypes[serialization.VendorCleanedContentType(serialization.NormalizeContentType(contentType))] {
		return errors.UnsupportedContentType(contentType)
	}
	return nil
}

// Register adds the YAML factories to the given registries under every
// YAML content type in common use.
func Register(parsers *serialization.ParseNodeFactoryRegistry, writers *serialization.SerializationWriterFactoryRegistry) error {
	for ct := range acceptedContentTypes {
		if parsers != nil {
			if err := parsers.Register(ct, NewParseNodeFactory()); err != nil {
				return err
			}
		}
		if writers != nil {
			if err := writers.Register(ct, NewSerializationWriterFactory()); err != nil {
				return err
			}
		}
	}
	return nil
}
