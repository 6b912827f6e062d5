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
				Phase:  PhaseView,
				Kind:   KindInvalidOffset,
				Op:     "create_subobject",
				Detail: "offset=30 outside [0, 26]",
			},
			contains: []string{"[view]", "invalid_offset", "create_subobject", "offset=30"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseRelease,
				Kind:  KindReleased,
			},
			contains: []string{"[release]", "released"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseNative,
				Kind:   KindTrap,
				Detail: "native call faulted",
				Cause:  errors.New("out of bounds memory access"),
			},
			contains: []string{"[native]", "trap", "caused by", "out of bounds"},
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
	err := Trap("context_to_lower", cause)

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := InvalidOffset(27, 26)

	if !err.Is(&Error{Phase: PhaseView, Kind: KindInvalidOffset}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseRender, Kind: KindInvalidOffset}) {
		t.Error("Is should not match different phase")
	}
	if !err.Is(&Error{Kind: KindInvalidOffset}) {
		t.Error("Is should match kind-only target")
	}
	if err.Is(&Error{Kind: KindReleased}) {
		t.Error("Is should not match different kind")
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("demo: %w", Released(PhaseQuery))

	if KindOf(wrapped) != KindReleased {
		t.Errorf("KindOf = %q, want %q", KindOf(wrapped), KindReleased)
	}
	if !IsKind(wrapped, KindReleased) {
		t.Error("IsKind should see through fmt wrapping")
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("KindOf should be empty for foreign errors")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseView, KindUnmappedStatus).
		Op("create_subobject").
		Value(int32(-7)).
		Limit(int32(0)).
		Cause(cause).
		Detail("native returned %d", -7).
		Build()

	if err.Phase != PhaseView || err.Kind != KindUnmappedStatus {
		t.Errorf("Phase/Kind = %v/%v", err.Phase, err.Kind)
	}
	if err.Op != "create_subobject" {
		t.Errorf("Op = %q", err.Op)
	}
	if err.Value != int32(-7) {
		t.Errorf("Value = %v, want -7", err.Value)
	}
	if err.Limit != int32(0) {
		t.Errorf("Limit = %v, want 0", err.Limit)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "native returned -7" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("InvalidOffset", func(t *testing.T) {
		err := InvalidOffset(30, 26)
		if err.Value != 30 {
			t.Errorf("Value = %v, want 30", err.Value)
		}
		if err.Limit != 26 {
			t.Errorf("Limit = %v, want 26", err.Limit)
		}
		if !strings.Contains(err.Detail, "[0, 26]") {
			t.Errorf("Detail %q should name the range", err.Detail)
		}
	})

	t.Run("InvalidOffset negative", func(t *testing.T) {
		err := InvalidOffset(-1, 26)
		if strings.Contains(err.Detail, "too big") {
			t.Errorf("Detail %q misdescribes a negative offset", err.Detail)
		}
		if err.Value != -1 {
			t.Errorf("Value = %v, want -1", err.Value)
		}
	})

	t.Run("InvalidUTF8", func(t *testing.T) {
		data := []byte{0xff, 0xfe}
		err := InvalidUTF8(PhaseRender, data)
		if err.Kind != KindInvalidUTF8 {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidUTF8)
		}
		data[0] = 'x'
		if err.Value.([]byte)[0] != 0xff {
			t.Error("Value must not alias the input")
		}
	})

	t.Run("UnmappedStatus", func(t *testing.T) {
		err := UnmappedStatus(PhaseView, "create_subobject", 3)
		if err.Value != int32(3) {
			t.Errorf("Value = %v, want 3", err.Value)
		}
	})

	t.Run("OutstandingBorrow", func(t *testing.T) {
		err := OutstandingBorrow(PhaseTransform, 2)
		if !strings.Contains(err.Detail, "2 view") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("AlreadyOwned", func(t *testing.T) {
		err := AlreadyOwned(0x40)
		if !strings.Contains(err.Error(), "0x40") {
			t.Errorf("Error() = %q", err.Error())
		}
	})
}
