package resilience

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sells-group/outreach-cli/internal/model"
)

// statusErr mimics the API error types the pkg clients return.
type statusErr struct {
	status int
}

func (e *statusErr) Error() string   { return fmt.Sprintf("status %d", e.status) }
func (e *statusErr) HTTPStatus() int { return e.status }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"transient wrapper", NewTransientError(errors.New("busy"), 503), true},
		{"wrapped transient", fmt.Errorf("call failed: %w", NewTransientError(errors.New("busy"), 429)), true},
		{"auth wrapper", NewAuthError(errors.New("denied")), false},
		{"permanent wrapper", NewPermanentError(errors.New("bad"), 400), false},
		{"carrier 503", &statusErr{503}, true},
		{"carrier 429", &statusErr{429}, true},
		{"carrier 408", &statusErr{408}, true},
		{"carrier 404", &statusErr{404}, false},
		{"carrier 401", &statusErr{401}, false},
		{"wrapped carrier", fmt.Errorf("search: %w", &statusErr{502}), true},
		{"connection reset string", errors.New("read tcp: connection reset by peer"), true},
		{"timeout string", errors.New("client: i/o timeout"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	transient := []int{408, 429, 500, 502, 503, 504}
	for _, code := range transient {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("expected %d to be transient", code)
		}
	}
	permanent := []int{200, 400, 401, 403, 404, 422}
	for _, code := range permanent {
		if IsTransientHTTPStatus(code) {
			t.Errorf("expected %d to be non-transient", code)
		}
	}
}

func TestClassifyHTTPStatus(t *testing.T) {
	base := errors.New("request failed")

	var te *TransientError
	if err := ClassifyHTTPStatus(base, 503); !errors.As(err, &te) {
		t.Errorf("expected 503 to classify as transient, got %T", err)
	}

	var ae *AuthError
	if err := ClassifyHTTPStatus(base, 401); !errors.As(err, &ae) {
		t.Errorf("expected 401 to classify as auth, got %T", err)
	}
	if err := ClassifyHTTPStatus(base, 403); !errors.As(err, &ae) {
		t.Errorf("expected 403 to classify as auth, got %T", err)
	}

	var pe *PermanentError
	if err := ClassifyHTTPStatus(base, 404); !errors.As(err, &pe) {
		t.Errorf("expected 404 to classify as permanent, got %T", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want model.ErrorCode
	}{
		{"auth wrapper", NewAuthError(errors.New("denied")), model.CodeAuthError},
		{"carrier 401", &statusErr{401}, model.CodeAuthError},
		{"carrier 403", fmt.Errorf("enrich: %w", &statusErr{403}), model.CodeAuthError},
		{"transient after retries", NewTransientError(errors.New("busy"), 503), model.CodeRetryExhausted},
		{"carrier 500", &statusErr{500}, model.CodeRetryExhausted},
		{"permanent wrapper", NewPermanentError(errors.New("bad"), 400), model.CodePermanentError},
		{"carrier 404", &statusErr{404}, model.CodePermanentError},
		{"plain error", errors.New("boom"), model.CodePermanentError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("root cause")
	if !errors.Is(NewTransientError(inner, 503), inner) {
		t.Error("TransientError should unwrap to its cause")
	}
	if !errors.Is(NewAuthError(inner), inner) {
		t.Error("AuthError should unwrap to its cause")
	}
	if !errors.Is(NewPermanentError(inner, 400), inner) {
		t.Error("PermanentError should unwrap to its cause")
	}
}
