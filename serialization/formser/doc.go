// Package formser reads and writes application/x-www-form-urlencoded payloads.
//
// Forms are flat: a single object whose properties are scalars or
// repeated scalars. Nested objects are rejected.
package formser
