// Package textser reads and writes text/plain payloads holding a single scalar.
package textser
