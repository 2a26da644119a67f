package validation

import (
	"strings"
	"testing"

	"github.com/kbukum/gokiota/errors"
)

func TestValidatorRequired(t *testing.T) {
	v := New()
	v.Required("name", "graph")
	if v.HasErrors() {
		t.Error("expected no errors for valid input")
	}

	v2 := New()
	v2.Required("name", "   ")
	if !v2.HasErrors() {
		t.Error("expected error for whitespace-only required field")
	}
}

func TestValidatorOneOf(t *testing.T) {
	if New().OneOf("location", "header", "header", "query").HasErrors() {
		t.Error("expected header to be allowed")
	}
	if !New().OneOf("location", "cookie", "header", "query").HasErrors() {
		t.Error("expected cookie to be rejected")
	}
}

func TestValidatorAbsoluteURL(t *testing.T) {
	if New().AbsoluteURL("base_url", "https://graph.example.com/v1").HasErrors() {
		t.Error("expected absolute URL to pass")
	}
	if !New().AbsoluteURL("base_url", "/relative").HasErrors() {
		t.Error("expected relative URL to fail")
	}
}

func TestValidatorNoScheme(t *testing.T) {
	if !New().NoScheme("host", "https://example.com").HasErrors() {
		t.Error("expected scheme-prefixed host to fail")
	}
	if New().NoScheme("host", "example.com").HasErrors() {
		t.Error("expected bare host to pass")
	}
}

func TestValidatorValidate(t *testing.T) {
	v := New()
	if v.Validate() != nil {
		t.Error("expected nil with no errors")
	}
	v.Required("a", "").Required("b", "")
	err := v.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("expected CONFIGURATION error, got %v", err)
	}
	if !strings.Contains(err.Error(), "a: is required") || !strings.Contains(err.Error(), "b: is required") {
		t.Errorf("expected both fields in message, got %q", err.Error())
	}
}

type retrySettings struct {
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0,lte=10"`
}

type clientSettings struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Mode    string        `yaml:"mode" validate:"omitempty,oneof=fast safe"`
	Retry   retrySettings `mapstructure:"retry"`
}

func TestValidate_Struct(t *testing.T) {
	if err := Validate(clientSettings{BaseURL: "https://example.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := Validate(clientSettings{Mode: "slow", Retry: retrySettings{MaxRetries: 11}})
	if err == nil {
		t.Fatal("expected validation error")
	}
	appErr, ok := errors.AsError(err)
	if !ok {
		t.Fatalf("expected *errors.Error, got %T", err)
	}
	msg := appErr.Message
	for _, want := range []string{"base_url: is required", "mode: must be one of", "retry.max_retries: must be at most 10"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
	fields, ok := appErr.Details["fields"].([]FieldError)
	if !ok || len(fields) != 3 {
		t.Errorf("expected 3 field errors, got %v", appErr.Details["fields"])
	}
}

func TestToSnakeCase(t *testing.T) {
	if got := toSnakeCase("MaxRedirects"); got != "max_redirects" {
		t.Errorf("expected max_redirects, got %q", got)
	}
}
