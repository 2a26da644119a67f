package serialization

import "github.com/kbukum/gokiota/errors"

// ParseNodeProxyFactory wraps a ParseNodeFactory and appends hooks to
// every root node it produces.
type ParseNodeProxyFactory struct {
	concrete ParseNodeFactory
	onBefore ParsableAction
	onAfter  ParsableAction
}

// NewParseNodeProxyFactory creates a proxy around concrete. Either action may be nil.
func NewParseNodeProxyFactory(concrete ParseNodeFactory, onBefore, onAfter ParsableAction) (*ParseNodeProxyFactory, error) {
	if concrete == nil {
		return nil, errors.MissingArgument("concrete")
	}
	return &ParseNodeProxyFactory{concrete: concrete, onBefore: onBefore, onAfter: onAfter}, nil
}

// GetValidContentType returns the wrapped factory's content type.
func (p *ParseNodeProxyFactory) GetValidContentType() (string, error) {
	return p.concrete.GetValidContentType()
}

// GetRootParseNode delegates to the wrapped factory and installs the hooks.
func (p *ParseNodeProxyFactory) GetRootParseNode(contentType string, content []byte) (ParseNode, error) {
	node, err := p.concrete.GetRootParseNode(contentType, content)
	if err != nil {
		return nil, err
	}
	hooks := node.Hooks()
	hooks.OnBefore(p.onBefore)
	hooks.OnAfter(p.onAfter)
	return node, nil
}

// Unwrap returns the wrapped factory.
func (p *ParseNodeProxyFactory) Unwrap() ParseNodeFactory {
	return p.concrete
}

// SerializationWriterProxyFactory wraps a SerializationWriterFactory and
// appends hooks to every writer it produces.
type SerializationWriterProxyFactory struct {
	concrete SerializationWriterFactory
	onBefore ParsableAction
	onAfter  ParsableAction
	onStart  ParsableWriter
}

// NewSerializationWriterProxyFactory creates a proxy around concrete. Any action may be nil.
func NewSerializationWriterProxyFactory(concrete SerializationWriterFactory, onBefore, onAfter ParsableAction, onStart ParsableWriter) (*SerializationWriterProxyFactory, error) {
	if concrete == nil {
		return nil, errors.MissingArgument("concrete")
	}
	return &SerializationWriterProxyFactory{
		concrete: concrete,
		onBefore: onBefore,
		onAfter:  onAfter,
		onStart:  onStart,
	}, nil
}

// GetValidContentType returns the wrapped factory's content type.
func (p *SerializationWriterProxyFactory) GetValidContentType() (string, error) {
	return p.concrete.GetValidContentType()
}

// GetSerializationWriter delegates to the wrapped factory and installs the hooks.
func (p *SerializationWriterProxyFactory) GetSerializationWriter(contentType string) (SerializationWriter, error) {
	writer, err := p.concrete.GetSerializationWriter(contentType)
	if err != nil {
		return nil, err
	}
	hooks := writer.Hooks()
	hooks.OnBefore(p.onBefore)
	hooks.OnAfter(p.onAfter)
	hooks.OnStart(p.onStart)
	return writer, nil
}

// Unwrap returns the wrapped factory.
func (p *SerializationWriterProxyFactory) Unwrap() SerializationWriterFactory {
	return p.concrete
}
