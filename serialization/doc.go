// Package serialization decouples generated models from wire formats.
//
// Models implement Parsable: they describe how to read themselves from a
// ParseNode (a field-name to deserializer map) and how to write themselves
// to a SerializationWriter. Format packages (jsonser, textser, yamlser,
// formser) provide the node and writer implementations and register
// their factories in a ParseNodeFactoryRegistry or
// SerializationWriterFactoryRegistry keyed by content type.
//
// Nodes and writers carry ordered hook lists (ParseHooks, WriteHooks)
// that proxy factories append to; the backing-store package uses them to
// bracket (de)serialization with change-tracking toggles.
package serialization
