package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseEncode,
				Kind:   KindMalformedInput,
				Path:   []string{"options", "entryPoints", "0"},
				Detail: "string contains NUL byte",
			},
			contains: []string{"[encode]", "malformed_input", "options.entryPoints.0", "NUL byte"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[decode]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseEncode,
				Kind:   KindResourceExhausted,
				Detail: "memory full",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[encode]", "resource_exhausted", "memory full", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseDecode,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find cause through Unwrap")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseEncode,
		Kind:  KindMalformedInput,
		Path:  []string{"foo"},
	}

	if !err.Is(&Error{Phase: PhaseEncode, Kind: KindMalformedInput}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseDecode, Kind: KindMalformedInput}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseEncode, Kind: KindOutOfBounds}) {
		t.Error("Is should not match different kind")
	}
	if !errors.Is(err, Transport) {
		t.Error("errors.Is should match the transport class")
	}
	if errors.Is(err, System) {
		t.Error("malformed input is not a system error")
	}
}

func TestClassOf(t *testing.T) {
	tests := []struct {
		kind Kind
		want Class
	}{
		{KindMalformedInput, Transport},
		{KindResourceExhausted, Transport},
		{KindOutOfBounds, Transport},
		{KindInvalidData, Transport},
		{KindNotFound, Transport},
		{KindMissingExport, System},
		{KindTrap, System},
		{KindClosed, System},
		{KindNullResult, System},
		{KindInstantiation, System},
		{KindUnsupported, System},
		{KindInvalidConfig, Configuration},
		{KindInvalidFilter, Configuration},
		{KindHookOutsideSetup, Configuration},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := ClassOf(tt.kind); got != tt.want {
				t.Errorf("ClassOf(%s) = %s, want %s", tt.kind, got, tt.want)
			}
		})
	}
}

func TestClassPredicates(t *testing.T) {
	wrapped := fmt.Errorf("build: %w", InvalidConfig("unknown target"))
	if !IsConfiguration(wrapped) {
		t.Error("IsConfiguration should see through fmt wrapping")
	}
	if IsTransport(wrapped) || IsSystem(wrapped) {
		t.Error("configuration error matched another class")
	}

	trap := Trap("esbuild_build", errors.New("unreachable"))
	if !IsSystem(trap) {
		t.Error("trap should be a system error")
	}

	if !IsTransport(ResourceExhausted(PhaseEncode, 64, 8, nil)) {
		t.Error("allocation failure should be a transport error")
	}

	if IsTransport(errors.New("plain")) {
		t.Error("plain errors have no class")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseCallback, KindInvalidData).
		Path("onResolve", "result").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "path", "nothing").
		Build()

	if err.Phase != PhaseCallback {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseCallback)
	}
	if err.Kind != KindInvalidData {
		t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidData)
	}
	if len(err.Path) != 2 || err.Path[0] != "onResolve" || err.Path[1] != "result" {
		t.Errorf("Path = %v, want [onResolve result]", err.Path)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected path, got nothing" {
		t.Errorf("Detail = %v", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("ResourceExhausted", func(t *testing.T) {
		err := ResourceExhausted(PhaseEncode, 1024, 8, nil)
		if err.Kind != KindResourceExhausted {
			t.Errorf("Kind = %v, want %v", err.Kind, KindResourceExhausted)
		}
		if !strings.Contains(err.Detail, "1024") {
			t.Errorf("Detail = %v, should contain size", err.Detail)
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseDecode, []string{"diagnostics"}, 70000, 8)
		if err.Kind != KindOutOfBounds {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
		}
		if err.Value != uint32(70000) {
			t.Errorf("Value = %v, want 70000", err.Value)
		}
	})

	t.Run("InvalidEnum", func(t *testing.T) {
		err := InvalidEnum(PhaseDecode, []string{"format"}, 9, "Format")
		if err.Kind != KindInvalidEnum {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidEnum)
		}
	})

	t.Run("NullResult", func(t *testing.T) {
		err := NullResult("tsc_build_filesystem")
		if err.Class() != System {
			t.Errorf("Class = %v, want system", err.Class())
		}
		if !strings.Contains(err.Error(), "tsc_build_filesystem") {
			t.Errorf("message should name the entry point: %s", err)
		}
	})
}

func TestMissingExportsError(t *testing.T) {
	t.Run("lists exports", func(t *testing.T) {
		err := NewMissingExportsError([]string{"malloc", "esbuild_build"})
		msg := err.Error()
		if !strings.Contains(msg, "2 export") {
			t.Errorf("error should contain count: %s", msg)
		}
		if !strings.Contains(msg, "malloc") || !strings.Contains(msg, "esbuild_build") {
			t.Errorf("error should list names: %s", msg)
		}
	})

	t.Run("empty", func(t *testing.T) {
		err := NewMissingExportsError(nil)
		if !strings.Contains(err.Error(), "no exports specified") {
			t.Errorf("empty error should have specific message, got: %s", err)
		}
	})

	t.Run("errors.Is", func(t *testing.T) {
		err := NewMissingExportsError([]string{"free"})
		if !errors.Is(err, &MissingExportsError{}) {
			t.Error("errors.Is should match MissingExportsError")
		}
		if !IsSystem(err) {
			t.Error("missing exports should be a system error")
		}
	})
}
