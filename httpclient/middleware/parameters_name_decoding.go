package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/kbukum/gokiota/request"
)

// ParametersNameDecodingKey identifies ParametersNameDecodingOptions.
var ParametersNameDecodingKey = request.OptionKey{Key: "ParametersNameDecodingHandler"}

// ParametersNameDecodingOptions lists the characters decoded in query
// parameter names. URI templates force names such as "$top" to be sent as
// "%24top"; many services only understand the literal form.
type ParametersNameDecodingOptions struct {
	Enable             bool
	ParametersToDecode []byte
}

// GetKey implements request.Option.
func (o *ParametersNameDecodingOptions) GetKey() request.OptionKey {
	return ParametersNameDecodingKey
}

// NewParametersNameDecodingOptions returns the default options: enabled,
// decoding '-', '.', '~' and '$'.
func NewParametersNameDecodingOptions() ParametersNameDecodingOptions {
	return ParametersNameDecodingOptions{
		Enable:             true,
		ParametersToDecode: []byte{'-', '.', '~', '$'},
	}
}

// ParametersNameDecodingHandler decodes characters in query parameter names.
type ParametersNameDecodingHandler struct {
	options ParametersNameDecodingOptions
}

// NewParametersNameDecodingHandler creates a handler with default options.
func NewParametersNameDecodingHandler() *ParametersNameDecodingHandler {
	return NewParametersNameDecodingHandlerWithOptions(NewParametersNameDecodingOptions())
}

// NewParametersNameDecodingHandlerWithOptions creates a handler with the given defaults.
func NewParametersNameDecodingHandlerWithOptions(options ParametersNameDecodingOptions) *ParametersNameDecodingHandler {
	return &ParametersNameDecodingHandler{options: options}
}

// Intercept implements Middleware.
func (h *ParametersNameDecodingHandler) Intercept(pipeline Pipeline, index int, req *http.Request) (*http.Response, error) {
	options := &h.options
	if o, ok := OptionFrom[*ParametersNameDecodingOptions](req.Context(), ParametersNameDecodingKey); ok {
		options = o
	}
	if options.Enable && len(options.ParametersToDecode) > 0 && req.URL != nil && strings.Contains(req.URL.RawQuery, "%") {
		decoded := DecodeParameterNames(req.URL.RawQuery, options.ParametersToDecode)
		if decoded != req.URL.RawQuery {
			req = req.Clone(req.Context())
			req.URL.RawQuery = decoded
		}
	}
	return pipeline.Next(req, index)
}

// DecodeParameterNames replaces the percent-encoded forms of chars in the
// names of rawQuery. Values are left untouched.
func DecodeParameterNames(rawQuery string, chars []byte) string {
	replacements := make([]string, 0, len(chars)*4)
	for _, c := range chars {
		replacements = append(replacements,
			fmt.Sprintf("%%%02X", c), string(c),
			fmt.Sprintf("%%%02x", c), string(c))
	}
	replacer := strings.NewReplacer(replacements...)

	pairs := strings.Split(rawQuery, "&")
	for i, pair := range pairs {
		name, value, hasValue := strings.Cut(pair, "=")
		name = replacer.Replace(name)
		if hasValue {
			pairs[i] = name + "=" + value
		} else {
			pairs[i] = name
		}
	}
	return strings.Join(pairs, "&")
}
