// Package jsonser reads and writes application/json payloads.
//
// Parsing decodes the whole payload into a tree with encoding/json's
// token stream (numbers kept as json.Number until a typed getter asks);
// writing appends to a single buffer.
package jsonser
