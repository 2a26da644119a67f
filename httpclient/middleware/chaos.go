package middleware

import (
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"

	"github.com/kbukum/gokiota/logger"
	"github.com/kbukum/gokiota/request"
)

// ChaosHandlerKey identifies ChaosHandlerOptions.
var ChaosHandlerKey = request.OptionKey{Key: "ChaosHandler"}

// PlannedChaosFunc returns the response to answer req with, or nil to let
// the request through.
type PlannedChaosFunc func(req *http.Request) *http.Response

// ChaosHandlerOptions configures fault injection. It is meant for testing
// client resilience, never for production traffic.
type ChaosHandlerOptions struct {
	// ChaosPercentage is the share of requests, 0 to 100, answered with a
	// failure from StatusCodes.
	ChaosPercentage int
	// StatusCodes lists the failures to pick from. Empty means 429, 503 and 504.
	StatusCodes []int
	// RetryAfterSeconds is sent on 429 and 503 answers. Zero means 3.
	RetryAfterSeconds int
	// PlannedChaos replaces random selection when set.
	PlannedChaos PlannedChaosFunc
}

// GetKey implements request.Option.
func (o *ChaosHandlerOptions) GetKey() request.OptionKey {
	return ChaosHandlerKey
}

// ChaosHandler answers a share of requests with synthetic failures.
type ChaosHandler struct {
	options ChaosHandlerOptions
	intn    func(n int) int
}

// NewChaosHandler creates a handler failing 10 percent of requests.
func NewChaosHandler() *ChaosHandler {
	return NewChaosHandlerWithOptions(ChaosHandlerOptions{ChaosPercentage: 10})
}

// NewChaosHandlerWithOptions creates a handler with the given defaults.
func NewChaosHandlerWithOptions(options ChaosHandlerOptions) *ChaosHandler {
	return &ChaosHandler{options: options, intn: rand.IntN}
}

// Intercept implements Middleware.
func (h *ChaosHandler) Intercept(pipeline Pipeline, index int, req *http.Request) (*http.Response, error) {
	options := &h.options
	if o, ok := OptionFrom[*ChaosHandlerOptions](req.Context(), ChaosHandlerKey); ok {
		options = o
	}

	var resp *http.Response
	switch {
	case options.PlannedChaos != nil:
		resp = options.PlannedChaos(req)
	case options.ChaosPercentage > 0 && h.intn(100) < options.ChaosPercentage:
		codes := options.StatusCodes
		if len(codes) == 0 {
			codes = []int{http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout}
		}
		resp = NewChaosResponse(req, codes[h.intn(len(codes))], options.retryAfter())
	}
	if resp == nil {
		return pipeline.Next(req, index)
	}
	if resp.Request == nil {
		resp.Request = req
	}
	componentLogger().Debug("answering with chaos response", logger.Fields(
		logger.FieldMethod, req.Method,
		logger.FieldURL, req.URL.String(),
		logger.FieldStatus, resp.StatusCode,
	))
	return resp, nil
}

func (o *ChaosHandlerOptions) retryAfter() int {
	if o.RetryAfterSeconds <= 0 {
		return 3
	}
	return o.RetryAfterSeconds
}

var chaosErrors = map[int][2]string{
	http.StatusTooManyRequests:     {"activityLimitReached", "The client application has been throttled."},
	http.StatusServiceUnavailable:  {"serviceNotAvailable", "The service is temporarily unavailable."},
	http.StatusGatewayTimeout:      {"gatewayTimeout", "The server did not respond in time."},
	http.StatusInternalServerError: {"internalServerError", "The server encountered an unexpected error."},
	http.StatusBadGateway:          {"badGateway", "The upstream server returned an invalid response."},
}

// NewChaosResponse builds a JSON error response for status. 429 and 503
// answers carry Retry-After.
func NewChaosResponse(req *http.Request, status, retryAfterSeconds int) *http.Response {
	code, message := "chaos", http.StatusText(status)
	if known, ok := chaosErrors[status]; ok {
		code, message = known[0], known[1]
	}
	body := fmt.Sprintf(`{"error":{"code":%q,"message":%q}}`, code, message)

	header := http.Header{}
	header.Set(contentTypeHeader, "application/json")
	if status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable {
		header.Set(retryAfterHeader, strconv.Itoa(retryAfterSeconds))
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
