package httpclient

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"regexp"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/gokiota/errors"
	"github.com/kbukum/gokiota/httpclient/sse"
	"github.com/kbukum/gokiota/logger"
	"github.com/kbukum/gokiota/observability"
	"github.com/kbukum/gokiota/request"
	"github.com/kbukum/gokiota/serialization"
)

const (
	contentTypeHeader     = "Content-Type"
	authenticateHeader    = "WWW-Authenticate"
	maxDrainedBodyBytes   = 64 << 10
	responseHandlerOption = "ResponseHandlerOption"
)

var claimsChallenge = regexp.MustCompile(`claims="([^"]+)"`)

// ResponseHandlerKey identifies ResponseHandlerOption.
var ResponseHandlerKey = request.OptionKey{Key: responseHandlerOption}

// ResponseHandler consumes a successful raw response. The adapter closes
// the body after the handler returns.
type ResponseHandler func(resp *http.Response, errorMappings ErrorMappings) (any, error)

// ResponseHandlerOption hands 2xx responses to Handler instead of the
// parse node factory. The handler's result is returned as is.
type ResponseHandlerOption struct {
	Handler ResponseHandler
}

// GetKey implements request.Option.
func (o *ResponseHandlerOption) GetKey() request.OptionKey {
	return ResponseHandlerKey
}

// response is a successful, fully read response.
type response struct {
	status      int
	header      http.Header
	contentType string
	body        []byte
	handled     bool
	result      any
}

func (r *response) empty() bool {
	return r.status == http.StatusNoContent || len(r.body) == 0
}

// dispatch resolves, authenticates and sends info, replaying once with the
// claims of a 401 challenge.
func (a *Adapter) dispatch(ctx context.Context, info *request.Information) (*http.Response, error) {
	if info == nil {
		return nil, errors.MissingArgument("info")
	}
	a.setBaseURLForRequest(info)

	resp, err := a.send(ctx, info, "")
	if err != nil {
		return nil, err
	}
	claims := challengedClaims(resp)
	if claims == "" {
		return resp, nil
	}
	a.log.Debug("retrying with claims challenge", logger.Fields(
		logger.FieldMethod, info.Method.String(),
		logger.FieldStatus, resp.StatusCode,
	))
	drain(resp)
	return a.send(ctx, info, claims)
}

func (a *Adapter) send(ctx context.Context, info *request.Information, claims string) (*http.Response, error) {
	if err := a.authenticate(ctx, info, claims); err != nil {
		return nil, err
	}
	req, err := a.buildRequest(ctx, info)
	if err != nil {
		return nil, err
	}
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String(observability.AttrHTTPMethod, req.Method),
		attribute.String(observability.AttrURLFull, req.URL.String()),
	)
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	return resp, nil
}

func challengedClaims(resp *http.Response) string {
	if resp.StatusCode != http.StatusUnauthorized {
		return ""
	}
	for _, value := range resp.Header.Values(authenticateHeader) {
		if m := claimsChallenge.FindStringSubmatch(value); m != nil {
			return m[1]
		}
	}
	return ""
}

// execute runs one call and reads the successful response. Failures are
// mapped through errorMappings. The body is closed before it returns.
func (a *Adapter) execute(ctx context.Context, info *request.Information, errorMappings ErrorMappings) (result *response, err error) {
	ctx, span := a.tracer.Start(ctx, observability.SpanHTTPRequest, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	start := time.Now()
	defer func() {
		observability.SetSpanError(span, err)
	}()

	resp, err := a.dispatch(ctx, info)
	if err != nil {
		a.logFailure(info, err, time.Since(start))
		return nil, err
	}
	defer drain(resp)

	span.SetAttributes(attribute.Int(observability.AttrStatusCode, resp.StatusCode))
	a.log.Debug("request completed", logger.Fields(
		logger.FieldMethod, info.Method.String(),
		logger.FieldURL, responseURL(resp),
		logger.FieldStatus, resp.StatusCode,
		logger.FieldContentType, resp.Header.Get(contentTypeHeader),
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))

	if !isSuccess(resp.StatusCode) {
		return nil, a.readFailure(resp, errorMappings, span)
	}

	if opt, ok := info.GetRequestOption(ResponseHandlerKey); ok {
		if h, ok := opt.(*ResponseHandlerOption); ok && h.Handler != nil {
			value, err := h.Handler(resp, errorMappings)
			return &response{status: resp.StatusCode, header: resp.Header, handled: true, result: value}, err
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	ct := mediaType(resp.Header)
	span.SetAttributes(attribute.String(observability.AttrContentType, ct))
	return &response{status: resp.StatusCode, header: resp.Header, contentType: ct, body: body}, nil
}

func (a *Adapter) readFailure(resp *http.Response, errorMappings ErrorMappings, span trace.Span) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Transport(err)
	}
	if _, ok := errorMappings.Lookup(resp.StatusCode); ok {
		span.SetAttributes(attribute.Bool(observability.AttrErrorMapping, true))
	}
	return a.failedResponseError(resp.StatusCode, resp.Header, mediaType(resp.Header), body, errorMappings)
}

func (a *Adapter) logFailure(info *request.Information, err error, d time.Duration) {
	method := ""
	if info != nil {
		method = info.Method.String()
	}
	fields := logger.MergeWithDuration(logger.ErrorFields("send", err), d)
	fields[logger.FieldMethod] = method
	a.log.Debug("request failed", fields)
}

func (a *Adapter) rootNode(ctx context.Context, r *response) (serialization.ParseNode, error) {
	if r.empty() {
		return nil, nil
	}
	_, span := a.tracer.Start(ctx, observability.SpanDeserialize)
	defer span.End()
	node, err := a.parseNodeFactory.GetRootParseNode(r.contentType, r.body)
	if err != nil {
		observability.SetSpanError(span, err)
		return nil, err
	}
	return node, nil
}

// Send executes info and parses the body as a single model. A 204 or
// empty body returns nil.
func (a *Adapter) Send(ctx context.Context, info *request.Information, ctor serialization.ParsableFactory, errorMappings ErrorMappings) (serialization.Parsable, error) {
	if ctor == nil {
		return nil, errors.MissingArgument("ctor")
	}
	r, err := a.execute(ctx, info, errorMappings)
	if err != nil {
		return nil, err
	}
	if r.handled {
		return handledAs[serialization.Parsable](r.result)
	}
	node, err := a.rootNode(ctx, r)
	if err != nil || node == nil {
		return nil, err
	}
	value, err := node.GetObjectValue(ctor)
	if err != nil {
		return nil, asDeserialization("failed to parse the response", err)
	}
	return value, nil
}

// SendCollection executes info and parses the body as a collection of models.
func (a *Adapter) SendCollection(ctx context.Context, info *request.Information, ctor serialization.ParsableFactory, errorMappings ErrorMappings) ([]serialization.Parsable, error) {
	if ctor == nil {
		return nil, errors.MissingArgument("ctor")
	}
	r, err := a.execute(ctx, info, errorMappings)
	if err != nil {
		return nil, err
	}
	if r.handled {
		return handledAs[[]serialization.Parsable](r.result)
	}
	node, err := a.rootNode(ctx, r)
	if err != nil || node == nil {
		return nil, err
	}
	values, err := serialization.CollectObjects(node.GetCollectionOfObjectValues(ctor))
	if err != nil {
		return nil, asDeserialization("failed to parse the response", err)
	}
	return values, nil
}

// SendPrimitive executes info and reads the body as a scalar of kind.
// KindByteArray returns the raw body without parsing.
func (a *Adapter) SendPrimitive(ctx context.Context, info *request.Information, kind serialization.Kind, errorMappings ErrorMappings) (any, error) {
	r, err := a.execute(ctx, info, errorMappings)
	if err != nil {
		return nil, err
	}
	if r.handled {
		return r.result, nil
	}
	if kind == serialization.KindByteArray {
		if r.empty() {
			return nil, nil
		}
		return r.body, nil
	}
	node, err := a.rootNode(ctx, r)
	if err != nil || node == nil {
		return nil, err
	}
	value, err := serialization.PrimitiveValue(node, kind)
	if err != nil {
		return nil, asDeserialization("failed to parse the response", err)
	}
	return value, nil
}

// SendPrimitiveCollection executes info and reads the body as a collection of scalars.
func (a *Adapter) SendPrimitiveCollection(ctx context.Context, info *request.Information, kind serialization.Kind, errorMappings ErrorMappings) ([]any, error) {
	r, err := a.execute(ctx, info, errorMappings)
	if err != nil {
		return nil, err
	}
	if r.handled {
		return handledAs[[]any](r.result)
	}
	node, err := a.rootNode(ctx, r)
	if err != nil || node == nil {
		return nil, err
	}
	values, err := serialization.CollectValues(node.GetCollectionOfPrimitiveValues(kind))
	if err != nil {
		return nil, asDeserialization("failed to parse the response", err)
	}
	return values, nil
}

// SendEnum executes info and parses the body with parser.
func (a *Adapter) SendEnum(ctx context.Context, info *request.Information, parser serialization.EnumFactory, errorMappings ErrorMappings) (any, error) {
	if parser == nil {
		return nil, errors.MissingArgument("parser")
	}
	r, err := a.execute(ctx, info, errorMappings)
	if err != nil {
		return nil, err
	}
	if r.handled {
		return r.result, nil
	}
	node, err := a.rootNode(ctx, r)
	if err != nil || node == nil {
		return nil, err
	}
	value, err := node.GetEnumValue(parser)
	if err != nil {
		return nil, asDeserialization("failed to parse the response", err)
	}
	return value, nil
}

// SendEnumCollection executes info and parses every element with parser.
func (a *Adapter) SendEnumCollection(ctx context.Context, info *request.Information, parser serialization.EnumFactory, errorMappings ErrorMappings) ([]any, error) {
	if parser == nil {
		return nil, errors.MissingArgument("parser")
	}
	r, err := a.execute(ctx, info, errorMappings)
	if err != nil {
		return nil, err
	}
	if r.handled {
		return handledAs[[]any](r.result)
	}
	node, err := a.rootNode(ctx, r)
	if err != nil || node == nil {
		return nil, err
	}
	values, err := serialization.CollectValues(node.GetCollectionOfEnumValues(parser))
	if err != nil {
		return nil, asDeserialization("failed to parse the response", err)
	}
	return values, nil
}

// SendNoContent executes info and discards the body.
func (a *Adapter) SendNoContent(ctx context.Context, info *request.Information, errorMappings ErrorMappings) error {
	_, err := a.execute(ctx, info, errorMappings)
	return err
}

// SendEventStream executes info and returns a reader over the
// text/event-stream body. The caller must close the reader.
func (a *Adapter) SendEventStream(ctx context.Context, info *request.Information, errorMappings ErrorMappings) (sse.Reader, error) {
	ctx, span := a.tracer.Start(ctx, observability.SpanHTTPRequest, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	if info != nil && info.Headers != nil {
		info.Headers.TryAdd("Accept", sse.ContentType)
	}
	resp, err := a.dispatch(ctx, info)
	if err != nil {
		observability.SetSpanError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int(observability.AttrStatusCode, resp.StatusCode))
	if !isSuccess(resp.StatusCode) {
		defer drain(resp)
		err := a.readFailure(resp, errorMappings, span)
		observability.SetSpanError(span, err)
		return nil, err
	}
	return sse.NewReader(resp.Body), nil
}

// SendAs is Send with the result asserted to T.
func SendAs[T serialization.Parsable](ctx context.Context, a *Adapter, info *request.Information, ctor serialization.ParsableFactory, errorMappings ErrorMappings) (T, error) {
	var zero T
	value, err := a.Send(ctx, info, ctor, errorMappings)
	if err != nil || value == nil {
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		return zero, errors.Deserialization("the response model has an unexpected type", nil).
			WithDetail("type", fmt.Sprintf("%T", value))
	}
	return typed, nil
}

// SendCollectionAs is SendCollection with every element asserted to T.
func SendCollectionAs[T serialization.Parsable](ctx context.Context, a *Adapter, info *request.Information, ctor serialization.ParsableFactory, errorMappings ErrorMappings) ([]T, error) {
	values, err := a.SendCollection(ctx, info, ctor, errorMappings)
	if err != nil || values == nil {
		return nil, err
	}
	out := make([]T, 0, len(values))
	for _, value := range values {
		if value == nil {
			var zero T
			out = append(out, zero)
			continue
		}
		typed, ok := value.(T)
		if !ok {
			return nil, errors.Deserialization("collection element has an unexpected type", nil).
				WithDetail("type", fmt.Sprintf("%T", value))
		}
		out = append(out, typed)
	}
	return out, nil
}

func handledAs[T any](value any) (T, error) {
	var zero T
	if value == nil {
		return zero, nil
	}
	typed, ok := value.(T)
	if !ok {
		return zero, errors.Deserialization("the response handler returned an unexpected type", nil).
			WithDetail("type", fmt.Sprintf("%T", value))
	}
	return typed, nil
}

func responseURL(resp *http.Response) string {
	if resp.Request == nil || resp.Request.URL == nil {
		return ""
	}
	return resp.Request.URL.String()
}

func mediaType(header http.Header) string {
	value := header.Get(contentTypeHeader)
	if value == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(value); err == nil {
		return mt
	}
	return value
}

// drain discards the rest of a body so the connection can be reused.
func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainedBodyBytes))
	_ = resp.Body.Close()
}
