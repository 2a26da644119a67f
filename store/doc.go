// Package store tracks which model properties changed since a model was
// deserialized, so that only the changes are written back.
//
// Models expose their state through BackedModel. The proxy factories in
// this package toggle the store around parsing and writing:
//
//	store.EnableBackingStoreForParseNodeRegistry(parsers)
//	store.EnableBackingStoreForSerializationWriterRegistry(writers)
//
// After that, a model read from a response is clean, and writing it back
// emits only the properties set afterwards, plus explicit nulls for the
// properties that were cleared.
package store
