package middleware

import (
	"net/http"

	"github.com/kbukum/gokiota/request"
)

// TelemetryHandlerKey identifies TelemetryHandlerOptions.
var TelemetryHandlerKey = request.OptionKey{Key: "TelemetryHandler"}

// TelemetryConfigurator tags an outgoing request, typically with headers
// identifying the calling SDK.
type TelemetryConfigurator func(req *http.Request) *http.Request

// TelemetryHandlerOptions overrides the configurator for one request.
type TelemetryHandlerOptions struct {
	TelemetryConfigurator TelemetryConfigurator
}

// GetKey implements request.Option.
func (o *TelemetryHandlerOptions) GetKey() request.OptionKey {
	return TelemetryHandlerKey
}

// TelemetryHandler applies a TelemetryConfigurator before sending.
type TelemetryHandler struct {
	configurator TelemetryConfigurator
}

// NewTelemetryHandler creates a handler that tags nothing unless a request
// carries TelemetryHandlerOptions.
func NewTelemetryHandler() *TelemetryHandler {
	return &TelemetryHandler{}
}

// NewTelemetryHandlerWithConfigurator creates a handler applying configurator
// to every request without its own options.
func NewTelemetryHandlerWithConfigurator(configurator TelemetryConfigurator) *TelemetryHandler {
	return &TelemetryHandler{configurator: configurator}
}

// Intercept implements Middleware.
func (h *TelemetryHandler) Intercept(pipeline Pipeline, index int, req *http.Request) (*http.Response, error) {
	configurator := h.configurator
	if o, ok := OptionFrom[*TelemetryHandlerOptions](req.Context(), TelemetryHandlerKey); ok && o.TelemetryConfigurator != nil {
		configurator = o.TelemetryConfigurator
	}
	if configurator != nil {
		if tagged := configurator(req); tagged != nil {
			req = tagged
		}
	}
	return pipeline.Next(req, index)
}
