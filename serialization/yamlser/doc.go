// Package yamlser reads and writes application/yaml payloads with gopkg.in/yaml.v3.
//
// Parsing keeps the yaml.v3 node tree and converts scalars lazily;
// writing builds a node tree and marshals it when the content is requested.
package yamlser
