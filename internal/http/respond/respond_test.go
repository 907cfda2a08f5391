package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestJSONSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusOK, "done", map[string]string{"id": "user_1"})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	env := decode(t, rec)
	require.True(t, env.Success)
	require.Equal(t, http.StatusOK, env.Code)
	require.Equal(t, "done", env.Message)
	require.NotNil(t, env.Data)
}

func TestErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusConflict, "already exists")

	require.Equal(t, http.StatusConflict, rec.Code)

	env := decode(t, rec)
	require.False(t, env.Success)
	require.Equal(t, http.StatusConflict, env.Code)
	require.Equal(t, "already exists", env.Message)
	require.Nil(t, env.Data)
}

func TestJSONFailureStatusClearsSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusBadRequest, "bad input", nil)

	env := decode(t, rec)
	require.False(t, env.Success)
}
