package request

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	stduritemplate "github.com/std-uritemplate/std-uritemplate/go/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/gokiota/errors"
	"github.com/kbukum/gokiota/serialization"
)

// RawURLKey is the path parameter holding a URL to use without template expansion.
const RawURLKey = "request-raw-url"

const (
	contentTypeHeader = "Content-Type"
	binaryContentType = "application/octet-stream"
	tracerName        = "github.com/kbukum/gokiota/request"
	queryTagName      = "uriparametername"
)

// ContentSerializer provides the writer factory used to encode request bodies.
// The httpclient adapter implements it.
type ContentSerializer interface {
	GetSerializationWriterFactory() serialization.SerializationWriterFactory
}

// Information describes one outgoing request.
type Information struct {
	Method             Method
	URLTemplate        string
	PathParameters     map[string]string
	PathParametersAny  map[string]any
	QueryParameters    map[string]string
	QueryParametersAny map[string]any
	Headers            *Headers
	Content            []byte

	options map[string]Option
	uri     *url.URL
}

// NewInformation creates an empty request description.
func NewInformation() *Information {
	return &Information{
		Headers:            NewHeaders(),
		PathParameters:     make(map[string]string),
		PathParametersAny:  make(map[string]any),
		QueryParameters:    make(map[string]string),
		QueryParametersAny: make(map[string]any),
		options:            make(map[string]Option),
	}
}

// NewInformationWithMethodAndURLTemplateAndPathParameters creates a request
// description for a generated request builder.
func NewInformationWithMethodAndURLTemplateAndPathParameters(method Method, urlTemplate string, pathParameters map[string]string) *Information {
	info := NewInformation()
	info.Method = method
	info.URLTemplate = urlTemplate
	for k, v := range pathParameters {
		info.PathParameters[k] = v
	}
	return info
}

// GetURI returns the URI set with SetURI, the raw URL path parameter, or
// the template expanded with the query and path parameters. Path
// parameters win when a name appears in both.
func (r *Information) GetURI() (*url.URL, error) {
	if r.uri != nil {
		u := *r.uri
		return &u, nil
	}
	if raw := r.rawURL(); raw != "" {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, errors.Configuration("the raw url is invalid").WithCause(err)
		}
		return u, nil
	}
	if r.URLTemplate == "" {
		return nil, errors.Configuration("the url template is empty")
	}

	substitutions := make(map[string]any)
	for k, v := range r.QueryParameters {
		substitutions[k] = v
	}
	for k, v := range r.QueryParametersAny {
		if n := normalize(v); n != nil {
			substitutions[k] = n
		}
	}
	for k, v := range r.PathParameters {
		substitutions[k] = v
	}
	for k, v := range r.PathParametersAny {
		if n := normalize(v); n != nil {
			substitutions[k] = n
		}
	}
	expanded, err := stduritemplate.Expand(r.URLTemplate, substitutions)
	if err != nil {
		return nil, errors.Configuration(fmt.Sprintf("failed to expand url template %q", r.URLTemplate)).WithCause(err)
	}
	u, err := url.Parse(expanded)
	if err != nil {
		return nil, errors.Configuration("the expanded url is invalid").WithCause(err)
	}
	return u, nil
}

// rawURL reads RawURLKey from the string path parameters, then from the
// typed ones.
func (r *Information) rawURL() string {
	if raw := r.PathParameters[RawURLKey]; raw != "" {
		return raw
	}
	switch v := r.PathParametersAny[RawURLKey].(type) {
	case string:
		return v
	case *string:
		if v != nil {
			return *v
		}
	case *url.URL:
		if v != nil {
			return v.String()
		}
	case url.URL:
		return v.String()
	}
	return ""
}

// SetURI fixes the request URI and clears every path and query parameter.
func (r *Information) SetURI(u url.URL) {
	r.uri = &u
	r.PathParameters = make(map[string]string)
	r.PathParametersAny = make(map[string]any)
	r.QueryParameters = make(map[string]string)
	r.QueryParametersAny = make(map[string]any)
}

// normalize converts a parameter value into the string or []any shape the
// template expander accepts. Nil values return nil.
func normalize(value any) any {
	if value == nil {
		return nil
	}
	if rv := reflect.ValueOf(value); rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		return normalize(rv.Elem().Interface())
	}
	switch v := value.(type) {
	case string:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case []any:
		out := make([]any, 0, len(v))
		for _, el := range v {
			if n := normalize(el); n != nil {
				out = append(out, n)
			}
		}
		return out
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case uuid.UUID:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return v.String()
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		out := make([]any, 0, rv.Len())
		for i := range rv.Len() {
			if n := normalize(rv.Index(i).Interface()); n != nil {
				out = append(out, n)
			}
		}
		return out
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	case reflect.String:
		return rv.String()
	}
	return fmt.Sprint(value)
}

// AddQueryParameters copies the exported fields of a struct (or pointer to
// struct) into the query parameters. The uriparametername tag names the
// parameter; nil fields are skipped.
func (r *Information) AddQueryParameters(source any) error {
	if source == nil {
		return nil
	}
	rv := reflect.ValueOf(source)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return errors.Configuration(fmt.Sprintf("query parameters must be a struct, got %T", source))
	}
	if r.QueryParameters == nil {
		r.QueryParameters = make(map[string]string)
	}
	if r.QueryParametersAny == nil {
		r.QueryParametersAny = make(map[string]any)
	}
	rt := rv.Type()
	for i := range rt.NumField() {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Tag.Get(queryTagName)
		if name == "" {
			name = field.Name
		}
		switch n := normalize(rv.Field(i).Interface()).(type) {
		case nil:
		case string:
			r.QueryParameters[name] = n
		case []any:
			if len(n) > 0 {
				r.QueryParametersAny[name] = n
			}
		}
	}
	return nil
}

// AddRequestOptions stores options, replacing any option with the same key.
func (r *Information) AddRequestOptions(options ...Option) {
	if r.options == nil {
		r.options = make(map[string]Option, len(options))
	}
	for _, o := range options {
		if o != nil {
			r.options[o.GetKey().Key] = o
		}
	}
}

// GetRequestOptions returns the options ordered by key.
func (r *Information) GetRequestOptions() []Option {
	keys := make([]string, 0, len(r.options))
	for k := range r.options {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]Option, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.options[k])
	}
	return out
}

// GetRequestOption returns the option stored under key.
func (r *Information) GetRequestOption(key OptionKey) (Option, bool) {
	o, ok := r.options[key.Key]
	return o, ok
}

// RemoveRequestOptions drops the options with the given keys.
func (r *Information) RemoveRequestOptions(keys ...OptionKey) {
	for _, k := range keys {
		delete(r.options, k.Key)
	}
}

// SetStreamContent sets a binary body.
func (r *Information) SetStreamContent(content []byte) {
	r.SetStreamContentAndContentType(content, binaryContentType)
}

// SetStreamContentAndContentType sets a binary body with the given content type.
func (r *Information) SetStreamContentAndContentType(content []byte, contentType string) {
	r.Content = content
	if r.Headers == nil {
		r.Headers = NewHeaders()
	}
	r.Headers.TryAdd(contentTypeHeader, contentType)
}

// SetContentFromParsable writes item as the body.
func (r *Information) SetContentFromParsable(ctx context.Context, serializer ContentSerializer, contentType string, item serialization.Parsable) error {
	return r.setContent(ctx, "SetContentFromParsable", serializer, contentType, func(w serialization.SerializationWriter) error {
		if item == nil {
			return errors.MissingArgument("item")
		}
		return w.WriteObjectValue("", item)
	})
}

// SetContentFromParsableCollection writes items as a collection body.
func (r *Information) SetContentFromParsableCollection(ctx context.Context, serializer ContentSerializer, contentType string, items []serialization.Parsable) error {
	return r.setContent(ctx, "SetContentFromParsableCollection", serializer, contentType, func(w serialization.SerializationWriter) error {
		return w.WriteCollectionOfObjectValues("", items)
	})
}

// SetContentFromScalar writes a single scalar as the body.
func (r *Information) SetContentFromScalar(ctx context.Context, serializer ContentSerializer, contentType string, value any) error {
	return r.setContent(ctx, "SetContentFromScalar", serializer, contentType, func(w serialization.SerializationWriter) error {
		return w.WriteAnyValue("", value)
	})
}

// SetContentFromScalarCollection writes scalars as a collection body.
func (r *Information) SetContentFromScalarCollection(ctx context.Context, serializer ContentSerializer, contentType string, values []any) error {
	return r.setContent(ctx, "SetContentFromScalarCollection", serializer, contentType, func(w serialization.SerializationWriter) error {
		return w.WriteCollectionOfPrimitiveValues("", values)
	})
}

func (r *Information) setContent(ctx context.Context, operation string, serializer ContentSerializer, contentType string, write func(serialization.SerializationWriter) error) error {
	_, span := otel.GetTracerProvider().Tracer(tracerName).Start(ctx, operation)
	defer span.End()

	if contentType == "" {
		return errors.MissingArgument("contentType")
	}
	if serializer == nil {
		return errors.MissingArgument("serializer")
	}
	factory := serializer.GetSerializationWriterFactory()
	if factory == nil {
		return errors.Configuration("the serializer has no writer factory")
	}
	span.SetAttributes(attribute.String("request.content_type", contentType))
	writer, err := factory.GetSerializationWriter(contentType)
	if err != nil {
		span.RecordError(err)
		return err
	}
	defer func() { _ = writer.Close() }()
	if err := write(writer); err != nil {
		span.RecordError(err)
		return err
	}
	content, err := writer.GetSerializedContent()
	if err != nil {
		span.RecordError(err)
		return err
	}
	r.Content = content
	if r.Headers == nil {
		r.Headers = NewHeaders()
	}
	r.Headers.TryAdd(contentTypeHeader, contentType)
	return nil
}
