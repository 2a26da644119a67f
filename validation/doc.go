// Package validation validates configuration and option structs.
//
// Struct tags are checked with go-playground/validator; Validator offers
// a fluent builder for checks that tags cannot express. Both report a
// configuration error from the errors package.
package validation
