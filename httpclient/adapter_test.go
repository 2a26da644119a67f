package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/gokiota/auth"
	"github.com/kbukum/gokiota/errors"
	"github.com/kbukum/gokiota/httpclient/middleware"
	"github.com/kbukum/gokiota/logger"
	"github.com/kbukum/gokiota/observability"
	"github.com/kbukum/gokiota/request"
	"github.com/kbukum/gokiota/security"
	"github.com/kbukum/gokiota/security/tlstest"
	"github.com/kbukum/gokiota/serialization"
	"github.com/kbukum/gokiota/serialization/jsonser"
	"github.com/kbukum/gokiota/store"
)

// --- models ---

type user struct {
	id   *int32
	name *string
}

func newUser(serialization.ParseNode) (serialization.Parsable, error) { return &user{}, nil }

func (u *user) GetFieldDeserializers() map[string]func(serialization.ParseNode) error {
	return map[string]func(serialization.ParseNode) error{
		"id": func(n serialization.ParseNode) error {
			return serialization.SetValue(n.GetInt32Value, func(v *int32) { u.id = v })
		},
		"name": func(n serialization.ParseNode) error {
			return serialization.SetValue(n.GetStringValue, func(v *string) { u.name = v })
		},
	}
}

func (u *user) Serialize(w serialization.SerializationWriter) error {
	if err := w.WriteInt32Value("id", u.id); err != nil {
		return err
	}
	return w.WriteStringValue("name", u.name)
}

type problem struct {
	errors.APIError
	code *string
}

func newProblem(serialization.ParseNode) (serialization.Parsable, error) { return &problem{}, nil }

func (p *problem) GetFieldDeserializers() map[string]func(serialization.ParseNode) error {
	return map[string]func(serialization.ParseNode) error{
		"code": func(n serialization.ParseNode) error {
			return serialization.SetValue(n.GetStringValue, func(v *string) { p.code = v })
		},
	}
}

func (p *problem) Serialize(w serialization.SerializationWriter) error {
	return w.WriteStringValue("code", p.code)
}

type color int

const (
	red color = iota + 1
	green
)

func parseColor(s string) (any, error) {
	switch s {
	case "red":
		return red, nil
	case "green":
		return green, nil
	}
	return nil, fmt.Errorf("unknown color %q", s)
}

// --- helpers ---

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func testRegistries(t *testing.T) (*serialization.ParseNodeFactoryRegistry, *serialization.SerializationWriterFactoryRegistry) {
	t.Helper()
	parsers := serialization.NewParseNodeFactoryRegistry()
	writers := serialization.NewSerializationWriterFactoryRegistry()
	if err := jsonser.Register(parsers, writers); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return parsers, writers
}

func newTestAdapter(t *testing.T, handler http.HandlerFunc, mutate ...func(*Config)) *Adapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return newAdapterFor(t, server.URL+"/v1", auth.AnonymousAuthenticationProvider{}, mutate...)
}

func newAdapterFor(t *testing.T, baseURL string, provider auth.AuthenticationProvider, mutate ...func(*Config)) *Adapter {
	t.Helper()
	cfg := Config{BaseURL: baseURL, Retry: RetryConfig{Disabled: true}}
	for _, m := range mutate {
		m(&cfg)
	}
	parsers, writers := testRegistries(t)
	a, err := New(cfg, provider,
		WithParseNodeFactory(parsers),
		WithSerializationWriterFactory(writers),
		WithLogger(logger.NewNop()),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return a
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if body != "" {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func getInfo(template string, params map[string]string) *request.Information {
	return request.NewInformationWithMethodAndURLTemplateAndPathParameters(request.GET, template, params)
}

// --- construction ---

func TestNew(t *testing.T) {
	if _, err := New(Config{}, nil); !errors.Is(err, errors.ErrCodeMissingArgument) {
		t.Errorf("expected MISSING_ARGUMENT for nil provider, got %v", err)
	}
	if _, err := New(Config{Timeout: -1}, auth.AnonymousAuthenticationProvider{}); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("expected CONFIGURATION for invalid config, got %v", err)
	}
	a, err := New(Config{BaseURL: "https://api.example.com/"}, auth.AnonymousAuthenticationProvider{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.BaseURL() != "https://api.example.com" {
		t.Errorf("expected trimmed base url, got %q", a.BaseURL())
	}
	if a.GetParseNodeFactory() != serialization.DefaultParseNodeFactoryRegistry {
		t.Error("expected the default parse node registry")
	}
	if a.GetSerializationWriterFactory() != serialization.DefaultSerializationWriterFactoryRegistry {
		t.Error("expected the default writer registry")
	}
	transport, ok := a.Unwrap().Transport.(*middleware.CustomTransport)
	if !ok {
		t.Fatalf("expected a middleware transport, got %T", a.Unwrap().Transport)
	}
	if len(transport.Middlewares()) != 7 {
		t.Errorf("expected 7 middlewares, got %d", len(transport.Middlewares()))
	}
}

func TestNew_WithHTTPClient(t *testing.T) {
	client := &http.Client{}
	a, err := New(Config{}, auth.AnonymousAuthenticationProvider{}, WithHTTPClient(client))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Unwrap() != client {
		t.Error("expected the supplied client to be used as is")
	}
}

func TestAdapter_SetBaseURL(t *testing.T) {
	a := newAdapterFor(t, "https://a.example.com", auth.AnonymousAuthenticationProvider{})
	a.SetBaseURL("https://b.example.com/v2/")
	if a.BaseURL() != "https://b.example.com/v2" {
		t.Errorf("expected new base url, got %q", a.BaseURL())
	}
}

// --- request building ---

func TestAdapter_ConvertToNativeRequest(t *testing.T) {
	a := newAdapterFor(t, "https://api.example.com/v1", auth.AnonymousAuthenticationProvider{}, func(c *Config) {
		c.Headers = map[string]string{"X-Client": "default", "Accept": "text/plain"}
	})
	info := request.NewInformationWithMethodAndURLTemplateAndPathParameters(request.POST, "{+baseurl}/items{?top}", nil)
	info.QueryParameters["top"] = "5"
	info.Headers.Add("Accept", "application/json")
	info.SetStreamContentAndContentType([]byte(`{"a":1}`), "application/json")
	retry := &middleware.RetryHandlerOptions{MaxRetries: 1}
	info.AddRequestOptions(retry)

	req, err := a.ConvertToNativeRequest(context.Background(), info)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Method != http.MethodPost {
		t.Errorf("expected POST, got %s", req.Method)
	}
	if req.URL.String() != "https://api.example.com/v1/items?top=5" {
		t.Errorf("unexpected url %s", req.URL)
	}
	if info.PathParameters[BaseURLParameter] != "https://api.example.com/v1" {
		t.Errorf("expected baseurl parameter to be set, got %q", info.PathParameters[BaseURLParameter])
	}
	if req.ContentLength != 7 || req.GetBody == nil {
		t.Errorf("expected a replayable body of 7 bytes, got %d", req.ContentLength)
	}
	if req.Header.Get("Content-Type") != "application/json" {
		t.Errorf("unexpected content type %q", req.Header.Get("Content-Type"))
	}
	if req.Header.Get("Accept") != "application/json" {
		t.Errorf("expected request header to win over defaults, got %q", req.Header.Get("Accept"))
	}
	if req.Header.Get("X-Client") != "default" {
		t.Errorf("expected default header, got %q", req.Header.Get("X-Client"))
	}
	got, ok := middleware.OptionFrom[*middleware.RetryHandlerOptions](req.Context(), middleware.RetryHandlerKey)
	if !ok || got != retry {
		t.Error("expected request options in the context")
	}
}

func TestAdapter_ConvertToNativeRequest_Errors(t *testing.T) {
	a := newAdapterFor(t, "", auth.AnonymousAuthenticationProvider{})
	if _, err := a.ConvertToNativeRequest(context.Background(), nil); !errors.Is(err, errors.ErrCodeMissingArgument) {
		t.Errorf("expected MISSING_ARGUMENT, got %v", err)
	}
	if _, err := a.ConvertToNativeRequest(context.Background(), getInfo("{+baseurl}/items", nil)); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("expected CONFIGURATION for a relative url, got %v", err)
	}
	if _, err := a.ConvertToNativeRequest(context.Background(), getInfo("", nil)); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("expected CONFIGURATION for an empty template, got %v", err)
	}
}

// --- success paths ---

func TestAdapter_Send(t *testing.T) {
	var gotPath, gotUA string
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.UserAgent()
		jsonHandler(http.StatusOK, `{"id":42,"name":"Ada"}`)(w, r)
	})

	u, err := SendAs[*user](context.Background(), a, getInfo("{+baseurl}/users/{id}", map[string]string{"id": "42"}), newUser, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *u.id != 42 || *u.name != "Ada" {
		t.Errorf("unexpected user %+v", u)
	}
	if gotPath != "/v1/users/42" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if !strings.Contains(gotUA, "gokiota/") {
		t.Errorf("expected product token in user agent, got %q", gotUA)
	}
}

func TestAdapter_Send_EmptyResponses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"no content", http.StatusNoContent, ""},
		{"empty body", http.StatusOK, ""},
		{"accepted", http.StatusAccepted, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAdapter(t, jsonHandler(tt.status, tt.body))
			v, err := a.Send(context.Background(), getInfo("{+baseurl}/users", nil), newUser, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v != nil {
				t.Errorf("expected nil model, got %v", v)
			}
		})
	}
}

func TestAdapter_Send_Arguments(t *testing.T) {
	a := newAdapterFor(t, "https://api.example.com", auth.AnonymousAuthenticationProvider{})
	if _, err := a.Send(context.Background(), getInfo("{+baseurl}", nil), nil, nil); !errors.Is(err, errors.ErrCodeMissingArgument) {
		t.Errorf("expected MISSING_ARGUMENT for nil ctor, got %v", err)
	}
	if _, err := a.Send(context.Background(), nil, newUser, nil); !errors.Is(err, errors.ErrCodeMissingArgument) {
		t.Errorf("expected MISSING_ARGUMENT for nil info, got %v", err)
	}
	if _, err := a.SendEnum(context.Background(), getInfo("{+baseurl}", nil), nil, nil); !errors.Is(err, errors.ErrCodeMissingArgument) {
		t.Errorf("expected MISSING_ARGUMENT for nil parser, got %v", err)
	}
}

func TestAdapter_Send_UnsupportedContentType(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, "<user/>")
	})
	_, err := a.Send(context.Background(), getInfo("{+baseurl}/users", nil), newUser, nil)
	if err == nil {
		t.Fatal("expected an error for an unregistered content type")
	}
}

func TestAdapter_Send_MalformedBody(t *testing.T) {
	a := newTestAdapter(t, jsonHandler(http.StatusOK, `{"id":`))
	_, err := a.Send(context.Background(), getInfo("{+baseurl}/users", nil), newUser, nil)
	if !errors.Is(err, errors.ErrCodeDeserialization) {
		t.Errorf("expected DESERIALIZATION, got %v", err)
	}
}

func TestAdapter_SendCollection(t *testing.T) {
	a := newTestAdapter(t, jsonHandler(http.StatusOK, `[{"name":"a"},{"name":"b"}]`))
	users, err := SendCollectionAs[*user](context.Background(), a, getInfo("{+baseurl}/users", nil), newUser, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 2 || *users[0].name != "a" || *users[1].name != "b" {
		t.Errorf("unexpected users %v", users)
	}
}

func TestAdapter_SendPrimitive(t *testing.T) {
	tests := []struct {
		name string
		body string
		kind serialization.Kind
		want any
	}{
		{"int32", `42`, serialization.KindInt32, int32(42)},
		{"string", `"hi"`, serialization.KindString, "hi"},
		{"bool", `true`, serialization.KindBool, true},
		{"float64", `1.5`, serialization.KindFloat64, 1.5},
		{"byte array is raw", `{"raw":true}`, serialization.KindByteArray, []byte(`{"raw":true}`)},
		{"empty", ``, serialization.KindString, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAdapter(t, jsonHandler(http.StatusOK, tt.body))
			got, err := a.SendPrimitive(context.Background(), getInfo("{+baseurl}/value", nil), tt.kind, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestAdapter_SendPrimitiveCollection(t *testing.T) {
	a := newTestAdapter(t, jsonHandler(http.StatusOK, `[1,2,3]`))
	got, err := a.SendPrimitiveCollection(context.Background(), getInfo("{+baseurl}/values", nil), serialization.KindInt64, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []any{int64(1), int64(2), int64(3)}) {
		t.Errorf("unexpected values %v", got)
	}
}

func TestAdapter_SendEnum(t *testing.T) {
	a := newTestAdapter(t, jsonHandler(http.StatusOK, `"green"`))
	got, err := a.SendEnum(context.Background(), getInfo("{+baseurl}/color", nil), parseColor, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != green {
		t.Errorf("expected green, got %v", got)
	}

	a = newTestAdapter(t, jsonHandler(http.StatusOK, `["red","green"]`))
	values, err := a.SendEnumCollection(context.Background(), getInfo("{+baseurl}/colors", nil), parseColor, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(values, []any{red, green}) {
		t.Errorf("unexpected colors %v", values)
	}
}

func TestAdapter_SendNoContent(t *testing.T) {
	var method string
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.WriteHeader(http.StatusNoContent)
	})
	info := getInfo("{+baseurl}/users/{id}", map[string]string{"id": "1"})
	info.Method = request.DELETE
	if err := a.SendNoContent(context.Background(), info, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if method != http.MethodDelete {
		t.Errorf("expected DELETE, got %s", method)
	}
}

func TestAdapter_ResponseHandlerOption(t *testing.T) {
	a := newTestAdapter(t, jsonHandler(http.StatusOK, `{"name":"ignored"}`))

	info := getInfo("{+baseurl}/users", nil)
	var status int
	info.AddRequestOptions(&ResponseHandlerOption{Handler: func(resp *http.Response, _ ErrorMappings) (any, error) {
		status = resp.StatusCode
		return "handled", nil
	}})
	got, err := a.SendPrimitive(context.Background(), info, serialization.KindString, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "handled" || status != http.StatusOK {
		t.Errorf("expected the handler result, got %v (status %d)", got, status)
	}

	if _, err := a.Send(context.Background(), info, newUser, nil); !errors.Is(err, errors.ErrCodeDeserialization) {
		t.Errorf("expected DESERIALIZATION for a non-model handler result, got %v", err)
	}
}

func TestAdapter_ResponseHandlerOption_NotCalledOnFailure(t *testing.T) {
	a := newTestAdapter(t, jsonHandler(http.StatusBadRequest, `{"code":"bad"}`))
	info := getInfo("{+baseurl}/users", nil)
	called := false
	info.AddRequestOptions(&ResponseHandlerOption{Handler: func(*http.Response, ErrorMappings) (any, error) {
		called = true
		return nil, nil
	}})
	if _, err := a.Send(context.Background(), info, newUser, nil); err == nil {
		t.Fatal("expected an error")
	}
	if called {
		t.Error("expected the handler to be skipped for failures")
	}
}

// --- failure paths ---

func TestAdapter_ErrorMappings(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		mappings  ErrorMappings
		wantTyped bool
		wantCode  errors.ErrorCode
	}{
		{"exact code", 404, `{"code":"missing"}`, ErrorMappings{"404": newProblem, "4XX": newUser}, true, ""},
		{"class 4XX", 409, `{"code":"conflict"}`, ErrorMappings{"4XX": newProblem}, true, ""},
		{"class 5XX", 502, `{"code":"upstream"}`, ErrorMappings{"5XX": newProblem}, true, ""},
		{"catch-all", 418, `{"code":"teapot"}`, ErrorMappings{"5XX": newUser, "XXX": newProblem}, true, ""},
		{"unmapped", 400, `{"code":"bad"}`, ErrorMappings{"5XX": newProblem}, false, ""},
		{"no mappings", 500, `{}`, nil, false, ""},
		{"mapped without body", 404, ``, ErrorMappings{"404": newProblem}, false, ""},
		{"mapped model is not an error", 404, `{"name":"x"}`, ErrorMappings{"404": newUser}, false, errors.ErrCodeDeserialization},
		{"redirect without location", 302, `{"code":"moved"}`, ErrorMappings{"XXX": newProblem}, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Request-Id", "abc")
				jsonHandler(tt.status, tt.body)(w, r)
			})
			v, err := a.Send(context.Background(), getInfo("{+baseurl}/users", nil), newUser, tt.mappings)
			if v != nil {
				t.Errorf("expected no model on failure, got %v", v)
			}
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.wantCode != "" {
				if !errors.Is(err, tt.wantCode) {
					t.Errorf("expected %s, got %v", tt.wantCode, err)
				}
				return
			}
			if tt.wantTyped {
				p, ok := err.(*problem)
				if !ok {
					t.Fatalf("expected *problem, got %T: %v", err, err)
				}
				if p.code == nil || p.GetResponseStatusCode() != tt.status {
					t.Errorf("unexpected problem %+v", p)
				}
				if p.GetResponseHeaders().Get("X-Request-Id") != "abc" {
					t.Errorf("expected response headers on the error, got %v", p.GetResponseHeaders())
				}
				return
			}
			apiErr, ok := err.(*errors.APIError)
			if !ok {
				t.Fatalf("expected *errors.APIError, got %T: %v", err, err)
			}
			if apiErr.ResponseStatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, apiErr.ResponseStatusCode)
			}
			if apiErr.ResponseHeaders.Get("X-Request-Id") != "abc" {
				t.Errorf("expected response headers, got %v", apiErr.ResponseHeaders)
			}
			if code, ok := errors.StatusCode(err); !ok || code != tt.status {
				t.Errorf("expected StatusCode %d, got %d", tt.status, code)
			}
		})
	}
}

func TestErrorMappings_Lookup(t *testing.T) {
	exact := serialization.ParsableFactory(newProblem)
	mappings := ErrorMappings{"404": exact, "4XX": newUser, "XXX": newUser}
	tests := []struct {
		status int
		found  bool
	}{
		{404, true},
		{400, true},
		{500, true},
		{302, true},
	}
	for _, tt := range tests {
		if _, ok := mappings.Lookup(tt.status); ok != tt.found {
			t.Errorf("Lookup(%d): expected %v, got %v", tt.status, tt.found, ok)
		}
	}
	if _, ok := (ErrorMappings{"4XX": newUser}).Lookup(500); ok {
		t.Error("expected no mapping for 500")
	}
	if _, ok := ErrorMappings(nil).Lookup(404); ok {
		t.Error("expected no mapping in a nil map")
	}
}

func TestAdapter_AuthenticationFailure(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer server.Close()

	provider := auth.AuthenticationProviderFunc(func(context.Context, *request.Information, map[string]any) error {
		return fmt.Errorf("no credentials")
	})
	a := newAdapterFor(t, server.URL, provider)
	_, err := a.Send(context.Background(), getInfo("{+baseurl}/users", nil), newUser, nil)
	if !errors.Is(err, errors.ErrCodeAuthentication) {
		t.Errorf("expected AUTHENTICATION, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no network call, got %d", calls)
	}
}

func TestAdapter_ClaimsChallenge(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("WWW-Authenticate", `Bearer authorization_uri="https://login.example.com", error="insufficient_claims", claims="eyJhY2Nlc3MiOnt9fQ=="`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		jsonHandler(http.StatusOK, `{"name":"Ada"}`)(w, r)
	}))
	defer server.Close()

	var claims []any
	provider := auth.AuthenticationProviderFunc(func(_ context.Context, _ *request.Information, extra map[string]any) error {
		claims = append(claims, extra[auth.ClaimsKey])
		return nil
	})
	a := newAdapterFor(t, server.URL, provider)
	v, err := a.Send(context.Background(), getInfo("{+baseurl}/me", nil), newUser, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v == nil || *v.(*user).name != "Ada" {
		t.Errorf("unexpected model %v", v)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
	if len(claims) != 2 || claims[0] != nil || claims[1] != "eyJhY2Nlc3MiOnt9fQ==" {
		t.Errorf("unexpected claims %v", claims)
	}
}

func TestAdapter_ClaimsChallenge_ReplayedOnce(t *testing.T) {
	calls := 0
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("WWW-Authenticate", `Bearer claims="abc"`)
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := a.Send(context.Background(), getInfo("{+baseurl}/me", nil), newUser, nil)
	if code, _ := errors.StatusCode(err); code != http.StatusUnauthorized {
		t.Errorf("expected 401 API error, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected one replay, got %d calls", calls)
	}
}

func TestAdapter_TransportErrors(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	a := newAdapterFor(t, url, auth.AnonymousAuthenticationProvider{})
	if _, err := a.Send(context.Background(), getInfo("{+baseurl}/users", nil), newUser, nil); !errors.Is(err, errors.ErrCodeTransport) {
		t.Errorf("expected TRANSPORT, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Send(ctx, getInfo("{+baseurl}/users", nil), newUser, nil); !errors.Is(err, errors.ErrCodeTimeout) {
		t.Errorf("expected TIMEOUT for a canceled context, got %v", err)
	}
}

func TestAdapter_BodyAlwaysClosed(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		option request.Option
	}{
		{"success", http.StatusOK, `{"name":"a"}`, nil},
		{"malformed", http.StatusOK, `{"name":`, nil},
		{"unmapped failure", http.StatusInternalServerError, `{}`, nil},
		{"handler", http.StatusOK, `{}`, &ResponseHandlerOption{Handler: func(*http.Response, ErrorMappings) (any, error) {
			return nil, fmt.Errorf("handler failed")
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := &closeTracker{Reader: strings.NewReader(tt.body)}
			client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
				return &http.Response{
					StatusCode: tt.status,
					Header:     http.Header{"Content-Type": []string{"application/json"}},
					Body:       body,
					Request:    r,
				}, nil
			})}
			parsers, _ := testRegistries(t)
			a, err := New(Config{BaseURL: "https://api.example.com"}, auth.AnonymousAuthenticationProvider{},
				WithHTTPClient(client), WithParseNodeFactory(parsers), WithLogger(logger.NewNop()))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			info := getInfo("{+baseurl}/users", nil)
			if tt.option != nil {
				info.AddRequestOptions(tt.option)
			}
			_, _ = a.Send(context.Background(), info, newUser, nil)
			if !body.closed {
				t.Error("expected the response body to be closed")
			}
		})
	}
}

// --- middleware integration ---

func TestAdapter_FollowsRedirects(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/old" {
			http.Redirect(w, r, "/v1/new", http.StatusFound)
			return
		}
		jsonHandler(http.StatusOK, `{"name":"moved"}`)(w, r)
	})
	v, err := a.Send(context.Background(), getInfo("{+baseurl}/old", nil), newUser, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *v.(*user).name != "moved" {
		t.Errorf("unexpected model %v", v)
	}
}

func TestAdapter_RedirectsDisabled(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/v1/new", http.StatusFound)
	}, func(c *Config) { c.Redirect.Disabled = true })
	_, err := a.Send(context.Background(), getInfo("{+baseurl}/old", nil), newUser, nil)
	if code, _ := errors.StatusCode(err); code != http.StatusFound {
		t.Errorf("expected the 302 to surface as an API error, got %v", err)
	}
}

func TestAdapter_TLS(t *testing.T) {
	server, certs := tlstest.NewServer(t, jsonHandler(http.StatusOK, `{"name":"secure"}`))

	a := newAdapterFor(t, server.URL, auth.AnonymousAuthenticationProvider{}, func(c *Config) {
		c.TLS = &security.TLSConfig{CAPEM: certs.CAPEM}
	})
	v, err := a.Send(context.Background(), getInfo("{+baseurl}/me", nil), newUser, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *v.(*user).name != "secure" {
		t.Errorf("unexpected model %v", v)
	}

	untrusted := newAdapterFor(t, server.URL, auth.AnonymousAuthenticationProvider{})
	if _, err := untrusted.Send(context.Background(), getInfo("{+baseurl}/me", nil), newUser, nil); !errors.Is(err, errors.ErrCodeTransport) {
		t.Errorf("expected TRANSPORT for an untrusted server, got %v", err)
	}
}

func TestAdapter_Tracing(t *testing.T) {
	server := httptest.NewServer(jsonHandler(http.StatusOK, `{"name":"traced"}`))
	defer server.Close()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	parsers, _ := testRegistries(t)
	a, err := New(Config{BaseURL: server.URL, Tracing: TracingConfig{Enabled: true}}, auth.AnonymousAuthenticationProvider{},
		WithParseNodeFactory(parsers), WithTracerProvider(provider), WithLogger(logger.NewNop()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := a.Send(context.Background(), getInfo("{+baseurl}/me", nil), newUser, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := map[string]bool{}
	for _, span := range recorder.Ended() {
		names[span.Name()] = true
		if span.Name() != observability.SpanHTTPRequest {
			continue
		}
		var status int64
		for _, attr := range span.Attributes() {
			if string(attr.Key) == observability.AttrStatusCode {
				status = attr.Value.AsInt64()
			}
		}
		if status != http.StatusOK {
			t.Errorf("expected status attribute 200, got %d", status)
		}
	}
	for _, name := range []string{observability.SpanHTTPRequest, observability.SpanAttempt, observability.SpanAuthenticate, observability.SpanDeserialize} {
		if !names[name] {
			t.Errorf("expected span %q, got %v", name, names)
		}
	}
}

func TestAdapter_SendEventStream(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("unexpected accept header %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "event: user\ndata: {\"name\":\"a\"}\n\nevent: user\ndata: {\"name\":\"b\"}\n\n")
	})
	reader, err := a.SendEventStream(context.Background(), getInfo("{+baseurl}/events", nil), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var names []string
	for ev, err := range reader.All() {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		v, err := serialization.Deserialize(a.GetParseNodeFactory(), "application/json", ev.Bytes(), newUser)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		names = append(names, *v.(*user).name)
	}
	if strings.Join(names, ",") != "a,b" {
		t.Errorf("unexpected events %v", names)
	}

	failing := newTestAdapter(t, jsonHandler(http.StatusServiceUnavailable, `{"code":"down"}`))
	if _, err := failing.SendEventStream(context.Background(), getInfo("{+baseurl}/events", nil), ErrorMappings{"5XX": newProblem}); err == nil {
		t.Error("expected the mapped error")
	} else if _, ok := err.(*problem); !ok {
		t.Errorf("expected *problem, got %T", err)
	}
}

// --- backing store ---

// isolateDefaultRegistries swaps the shared default registries for fresh
// ones holding the JSON factories, restoring the originals afterwards.
func isolateDefaultRegistries(t *testing.T) (*serialization.ParseNodeFactoryRegistry, *serialization.SerializationWriterFactoryRegistry) {
	t.Helper()
	parsers, writers := serialization.DefaultParseNodeFactoryRegistry, serialization.DefaultSerializationWriterFactoryRegistry
	backingStore := store.DefaultBackingStoreFactory
	t.Cleanup(func() {
		serialization.DefaultParseNodeFactoryRegistry = parsers
		serialization.DefaultSerializationWriterFactoryRegistry = writers
		store.DefaultBackingStoreFactory = backingStore
	})
	serialization.DefaultParseNodeFactoryRegistry = serialization.NewParseNodeFactoryRegistry()
	serialization.DefaultSerializationWriterFactoryRegistry = serialization.NewSerializationWriterFactoryRegistry()
	if err := jsonser.Register(serialization.DefaultParseNodeFactoryRegistry, serialization.DefaultSerializationWriterFactoryRegistry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return serialization.DefaultParseNodeFactoryRegistry, serialization.DefaultSerializationWriterFactoryRegistry
}

func TestAdapter_EnableBackingStore(t *testing.T) {
	isolateDefaultRegistries(t)

	a, err := New(Config{}, auth.AnonymousAuthenticationProvider{},
		WithParseNodeFactory(jsonser.NewParseNodeFactory()),
		WithSerializationWriterFactory(jsonser.NewSerializationWriterFactory()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	custom := func() store.BackingStore { return store.NewInMemoryBackingStore() }
	if err := a.EnableBackingStore(custom); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parse, ok := a.GetParseNodeFactory().(*store.BackingStoreParseNodeFactory)
	if !ok {
		t.Fatalf("expected a backing store parse node factory, got %T", a.GetParseNodeFactory())
	}
	write, ok := a.GetSerializationWriterFactory().(*store.BackingStoreSerializationWriterProxyFactory)
	if !ok {
		t.Fatalf("expected a backing store writer factory, got %T", a.GetSerializationWriterFactory())
	}
	if store.DefaultBackingStoreFactory == nil {
		t.Error("expected the default backing store factory to be set")
	}

	if err := a.EnableBackingStore(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.GetParseNodeFactory() != parse || a.GetSerializationWriterFactory() != write {
		t.Error("expected enabling twice to keep the existing wrappers")
	}
}

func TestAdapter_EnableBackingStore_Registries(t *testing.T) {
	isolateDefaultRegistries(t)
	a := newAdapterFor(t, "https://api.example.com", auth.AnonymousAuthenticationProvider{})
	if err := a.EnableBackingStore(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parsers := a.GetParseNodeFactory().(*serialization.ParseNodeFactoryRegistry)
	f, err := parsers.Lookup("application/json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := f.(*store.BackingStoreParseNodeFactory); !ok {
		t.Errorf("expected the registered factory to be wrapped, got %T", f)
	}
	writers := a.GetSerializationWriterFactory().(*serialization.SerializationWriterFactoryRegistry)
	w, err := writers.Lookup("application/json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := w.(*store.BackingStoreSerializationWriterProxyFactory); !ok {
		t.Errorf("expected the registered writer factory to be wrapped, got %T", w)
	}
}

func TestAdapter_EnableBackingStore_WrapsDefaultRegistries(t *testing.T) {
	parsers, writers := isolateDefaultRegistries(t)
	a := newAdapterFor(t, "https://api.example.com", auth.AnonymousAuthenticationProvider{})
	if a.GetParseNodeFactory() == parsers {
		t.Fatal("expected the adapter to use its own registries")
	}
	if err := a.EnableBackingStore(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := parsers.Lookup("application/json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := f.(*store.BackingStoreParseNodeFactory); !ok {
		t.Errorf("expected the default parse factory to be wrapped, got %T", f)
	}
	w, err := writers.Lookup("application/json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := w.(*store.BackingStoreSerializationWriterProxyFactory); !ok {
		t.Errorf("expected the default writer factory to be wrapped, got %T", w)
	}

	if err := a.EnableBackingStore(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again, _ := parsers.Lookup("application/json"); again != f {
		t.Error("expected enabling twice to keep the existing default wrapper")
	}
}
