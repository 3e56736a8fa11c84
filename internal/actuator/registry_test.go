package actuator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hollis-dev/deskmate/pkg/models"
)

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	h := Handler{Action: "press_key", Fn: func(ctx context.Context, p Params) (Outputs, error) { return nil, nil }}
	if err := r.Register(h); err != nil {
		t.Fatalf("first Register() error = %v, want nil", err)
	}
	if err := r.Register(h); err == nil {
		t.Error("second Register() error = nil, want duplicate error")
	}
}

func TestRegisterRejectsIncomplete(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Handler{Action: "x"}); err == nil {
		t.Error("Register() without Fn: error = nil, want error")
	}
	if err := r.Register(Handler{Fn: func(ctx context.Context, p Params) (Outputs, error) { return nil, nil }}); err == nil {
		t.Error("Register() without action: error = nil, want error")
	}
}

func TestDispatchNoHandler(t *testing.T) {
	r := NewRegistry()
	_, err := r.Dispatch(context.Background(), "summon_dragon", nil)
	if kind := KindOf(err); kind != models.ErrNoHandler {
		t.Errorf("KindOf = %v, want no_handler", kind)
	}
}

func TestDispatchMissingRequiredParam(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Handler{
		Action:         "type_text",
		RequiredParams: []string{"text"},
		Fn:             func(ctx context.Context, p Params) (Outputs, error) { return nil, nil },
	})
	_, err := r.Dispatch(context.Background(), "type_text", Params{"other": "value"})
	if kind := KindOf(err); kind != models.ErrInvalidParameters {
		t.Errorf("KindOf = %v, want invalid_parameters", kind)
	}
}

func TestDispatchIgnoresUnknownParams(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Handler{
		Action:         "press_key",
		RequiredParams: []string{"key"},
		Fn:             func(ctx context.Context, p Params) (Outputs, error) { return nil, nil },
	})
	if _, err := r.Dispatch(context.Background(), "press_key", Params{"key": "enter", "mystery": "ignored"}); err != nil {
		t.Errorf("Dispatch() error = %v, want nil", err)
	}
}

func TestDispatchFiltersUndeclaredOutputs(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Handler{
		Action:          "emit",
		ProducedOutputs: []string{"declared"},
		Fn: func(ctx context.Context, p Params) (Outputs, error) {
			return Outputs{"declared": "yes", "invented": "no"}, nil
		},
	})
	out, err := r.Dispatch(context.Background(), "emit", nil)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if out["declared"] != "yes" {
		t.Errorf("declared output missing: %v", out)
	}
	if _, ok := out["invented"]; ok {
		t.Errorf("undeclared output survived dispatch: %v", out)
	}
}

func TestDispatchWrapsBackendErrors(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Handler{
		Action: "boom",
		Fn: func(ctx context.Context, p Params) (Outputs, error) {
			return nil, errors.New("device unplugged")
		},
	})
	_, err := r.Dispatch(context.Background(), "boom", nil)
	if kind := KindOf(err); kind != models.ErrBackend {
		t.Errorf("KindOf = %v, want backend_error", kind)
	}
}

func TestDispatchPreservesClassification(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Handler{
		Action: "strict",
		Fn: func(ctx context.Context, p Params) (Outputs, error) {
			return nil, NewError(models.ErrInvalidParameters, "bad coordinates")
		},
	})
	_, err := r.Dispatch(context.Background(), "strict", nil)
	if kind := KindOf(err); kind != models.ErrInvalidParameters {
		t.Errorf("KindOf = %v, want invalid_parameters", kind)
	}
}

func TestKindOfPlainError(t *testing.T) {
	if kind := KindOf(fmt.Errorf("mystery")); kind != models.ErrInternal {
		t.Errorf("KindOf(plain) = %v, want internal_error", kind)
	}
}
