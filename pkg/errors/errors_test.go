package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewError(t *testing.T) {
	t.Parallel()

	t.Run("creates error with all defaults", func(t *testing.T) {
		err := NewError(ErrCodeInvalidConfig, "configuration is invalid")
		if err == nil {
			t.Fatal("NewError returned nil")
		}
		if err.Code != ErrCodeInvalidConfig {
			t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidConfig)
		}
		if err.Category != CategoryConfiguration {
			t.Errorf("Category = %v, want %v", err.Category, CategoryConfiguration)
		}
		if err.Details == nil || err.Context == nil {
			t.Error("Details and Context maps must be initialized")
		}
		if err.Timestamp.IsZero() {
			t.Error("Timestamp not set")
		}
	})

	t.Run("sets correct retryable defaults", func(t *testing.T) {
		if !NewError(ErrCodeConnectionTimeout, "timed out").Retryable {
			t.Error("ConnectionTimeout should be retryable by default")
		}
		if NewError(ErrCodeMountTableParse, "bad line").Retryable {
			t.Error("MountTableParse should not be retryable by default")
		}
	})

	t.Run("sets correct user-facing defaults", func(t *testing.T) {
		if !NewError(ErrCodePathOutOfScope, "outside").UserFacing {
			t.Error("PathOutOfScope should be user-facing by default")
		}
		if NewError(ErrCodeInternalError, "internal").UserFacing {
			t.Error("InternalError should not be user-facing by default")
		}
	})
}

func TestGetCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code ErrorCode
		want ErrorCategory
	}{
		{ErrCodeMissingConfig, CategoryConfiguration},
		{ErrCodeConfigLoad, CategoryConfiguration},
		{ErrCodeConnectionFailed, CategoryConnection},
		{ErrCodeObjectNotFound, CategoryStorage},
		{ErrCodeStorageUnsupported, CategoryStorage},
		{ErrCodePathOutOfScope, CategoryPath},
		{ErrCodeFileNotFound, CategoryPath},
		{ErrCodeMountTableParse, CategoryMount},
		{ErrCodeMountTableLost, CategoryMount},
		{ErrCodeCrossMountRename, CategoryMount},
		{ErrCodeFactoryUnknown, CategoryMount},
		{ErrCodeComponentStopped, CategoryState},
		{ErrCodeRetryExhausted, CategoryOperation},
		{ErrCodeUnknownError, CategoryInternal},
	}

	for _, tt := range tests {
		if got := GetCategory(tt.code); got != tt.want {
			t.Errorf("GetCategory(%s) = %s, want %s", tt.code, got, tt.want)
		}
	}
}

func TestMountFSError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *MountFSError
		want string
	}{
		{
			name: "code and message",
			err:  NewError(ErrCodePathInvalid, "bad path"),
			want: "PATH_INVALID: bad path",
		},
		{
			name: "with component",
			err:  NewError(ErrCodePathInvalid, "bad path").WithComponent("vpath"),
			want: "[vpath] PATH_INVALID: bad path",
		},
		{
			name: "with component and operation",
			err:  NewError(ErrCodeMountTableParse, "line 2").WithComponent("mount").WithOperation("reload"),
			want: "[mount:reload] MOUNT_TABLE_PARSE: line 2",
		},
		{
			name: "with cause",
			err:  Wrap(fmt.Errorf("unexpected EOF"), ErrCodeMountTableParse, "line 2"),
			want: "MOUNT_TABLE_PARSE: line 2: unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMountFSError_UnwrapAndIs(t *testing.T) {
	t.Parallel()

	cause := errors.New("rename failed")
	err := Wrap(cause, ErrCodeMountTableLost, "rollback failed")

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if !errors.Is(err, NewError(ErrCodeMountTableLost, "other message")) {
		t.Error("errors.Is should match by code")
	}
	if errors.Is(err, NewError(ErrCodeMountTableParse, "")) {
		t.Error("errors.Is should not match a different code")
	}

	wrapped := fmt.Errorf("persist: %w", err)
	if !HasCode(wrapped, ErrCodeMountTableLost) {
		t.Error("HasCode should find code through fmt wrapping")
	}
	if HasCode(wrapped, ErrCodeFileNotFound) {
		t.Error("HasCode should not report an absent code")
	}
	if HasCode(nil, ErrCodeFileNotFound) {
		t.Error("HasCode(nil) must be false")
	}
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	if !IsRetryable(fmt.Errorf("op: %w", NewError(ErrCodeNetworkError, "reset"))) {
		t.Error("NetworkError should be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors are not retryable")
	}
}

func TestMountFSError_StringAndJSON(t *testing.T) {
	t.Parallel()

	err := NewError(ErrCodeMountTablePersist, "rename failed").
		WithComponent("mount").
		WithOperation("addMount").
		WithDetail("path", "mem://t/mounts").
		WithContext("namespace", "mount.test")

	s := err.String()
	for _, want := range []string{"Code=MOUNT_TABLE_PERSIST", "Component=mount", "Operation=addMount", "mem://t/mounts"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}

	var decoded map[string]interface{}
	if jerr := json.Unmarshal([]byte(err.JSON()), &decoded); jerr != nil {
		t.Fatalf("JSON() produced invalid JSON: %v", jerr)
	}
	if decoded["code"] != string(ErrCodeMountTablePersist) {
		t.Errorf("decoded code = %v", decoded["code"])
	}
}

func TestGetRecommendation(t *testing.T) {
	t.Parallel()

	rec := NewError(ErrCodeMountTableLost, "x").GetRecommendation()
	if !strings.Contains(rec, ".old.") {
		t.Errorf("expected backup hint, got %q", rec)
	}
	if NewError(ErrCodeUnknownError, "x").GetRecommendation() == "" {
		t.Error("expected fallback recommendation")
	}
}

func TestCaptureStack(t *testing.T) {
	t.Parallel()

	err := NewError(ErrCodeInternalError, "boom").WithStack()
	if err.Stack == "" {
		t.Error("expected a captured stack")
	}
}
