package errors

import (
	stderrors "errors"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessage(t *testing.T) {
	cause := stderrors.New("connection refused")

	err := NetworkError(CodeStoreUnavailable, "store unreachable", cause)
	require.Equal(t, "[NETWORK:NET-001] store unreachable: connection refused", err.Error())
	require.True(t, err.Recoverable)
	require.ErrorIs(t, err, cause)

	bare := ValidationError(CodeInvalidPlan, "plan has no collections", nil)
	require.Equal(t, "[VALIDATION:VAL-001] plan has no collections", bare.Error())
	require.False(t, bare.Recoverable)
}

func TestHasCodeWalksWrappedChain(t *testing.T) {
	inner := DatabaseError(CodeDuplicateValues, "duplicate values", nil)
	outer := DatabaseError(CodeDatabaseGeneric, "create index failed", inner)
	wrapped := pkgerrors.Wrap(outer, "step failed")

	require.True(t, HasCode(wrapped, CodeDatabaseGeneric))
	require.True(t, HasCode(wrapped, CodeDuplicateValues))
	require.False(t, HasCode(wrapped, CodeIndexConflict))
	require.False(t, HasCode(stderrors.New("plain"), CodeDatabaseGeneric))
	require.False(t, HasCode(nil, CodeDatabaseGeneric))
}

func TestAsFindsAppError(t *testing.T) {
	appErr := ConfigError(CodeConfigGeneric, "bad config", nil).WithModule("config")

	found, ok := As(pkgerrors.Wrap(appErr, "load"))
	require.True(t, ok)
	require.Equal(t, "config", found.Module)

	_, ok = As(stderrors.New("plain"))
	require.False(t, ok)
}

func TestMetadataHelpers(t *testing.T) {
	err := SystemError(CodeSystemGeneric, "boom", nil).
		WithField("path", "/tmp/x").
		WithFields(Metadata{"attempt": 1}).
		WithOperation("journal.Open")

	require.Equal(t, "/tmp/x", err.Metadata["path"])
	require.Equal(t, 1, err.Metadata["attempt"])
	require.Equal(t, "journal.Open", err.Operation)

	clone := err.Metadata.Clone()
	clone["path"] = "changed"
	require.Equal(t, "/tmp/x", err.Metadata["path"])
	require.Nil(t, Metadata{}.Clone())
}

func TestCodeForCategory(t *testing.T) {
	require.Equal(t, CodeNetworkGeneric, CodeForCategory(ErrCategoryNetwork))
	require.Equal(t, CodeDatabaseGeneric, CodeForCategory(ErrCategoryDatabase))
	require.Equal(t, CodeSystemGeneric, CodeForCategory("OTHER"))
}
