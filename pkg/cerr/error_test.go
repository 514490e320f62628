package cerr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/nudge/pkg/storage"
)

func TestError_Message(t *testing.T) {
	err := NewError(NotFound, "task #3 not found", errors.New("missing"))
	assert.Equal(t, "[not_found] task #3 not found: missing", err.Error())
	assert.Empty(t, err.Stack)

	internal := NewError(Internal, "server error", nil)
	assert.NotEmpty(t, internal.Stack)

	wrapped := fmt.Errorf("context: %w", err)
	assert.True(t, IsCode(wrapped, NotFound))
	assert.False(t, IsCode(wrapped, Internal))
	assert.Equal(t, "task #3 not found", Message(wrapped, "fallback"))
	assert.Equal(t, "fallback", Message(errors.New("x"), "fallback"))
}

func TestCode_Mapping(t *testing.T) {
	assert.Equal(t, connect.CodeNotFound, NotFound.ConnectCode())
	assert.Equal(t, connect.CodeFailedPrecondition, FailedPrecondition.ConnectCode())
	assert.Equal(t, http.StatusBadRequest, InvalidArgument.HTTPCode())
	assert.Equal(t, http.StatusUnauthorized, Unauthenticated.HTTPCode())
	assert.Equal(t, "unknown", Code(99).String())
	assert.Equal(t, NotFound, NewCodeFromConnectError(connect.NewError(connect.CodeNotFound, errors.New("x"))))
}

func TestExtractConnectError(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, ExtractConnectError(ctx, nil))

	err := ExtractConnectError(ctx, NewError(InvalidArgument, "bad time", errors.New("detail")))
	var ce *connect.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, connect.CodeInvalidArgument, ce.Code())
	assert.Equal(t, "bad time", ce.Message())

	err = ExtractConnectError(ctx, errors.New("raw"))
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, connect.CodeUnknown, ce.Code())
}

func TestWrapStorageReadError(t *testing.T) {
	err := WrapStorageReadError("owner", fmt.Errorf("x: %w", storage.ErrNotFound))
	assert.True(t, IsCode(err, NotFound))
	err = WrapStorageReadError("owner", errors.New("disk"))
	assert.True(t, IsCode(err, Internal))
}

func TestJSONResponseMiddleware(t *testing.T) {
	h := NewJSONResponseChiMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fail") != "" {
			SetNewJSONError(r.Context(), NotFound, "nothing here", nil)
			return
		}
		SetJSONResponse(r.Context(), map[string]string{"ok": "yes"})
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":"yes"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?fail=1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"code":"not_found","message":"nothing here"}`, rec.Body.String())
}
