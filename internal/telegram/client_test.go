package telegram

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage_PostsForm(t *testing.T) {
	var gotPath string
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotForm, _ = url.ParseQuery(string(body))
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "123:abc", false)
	result, err := c.SendMessage(context.Background(), "42", "I will run at 07:00:00.")
	require.NoError(t, err)

	assert.Equal(t, "/bot123:abc/sendMessage", gotPath)
	assert.Equal(t, "42", gotForm.Get("chat_id"))
	assert.Equal(t, "I will run at 07:00:00.", gotForm.Get("text"))
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.JSONEq(t, `{"ok":true,"result":{"message_id":1}}`, string(result.Body))
}

func TestSendMessage_NonOKStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", false)
	result, err := c.SendMessage(context.Background(), "42", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
	require.NotNil(t, result)
	assert.Equal(t, http.StatusBadRequest, result.StatusCode)
}

func TestSendMessage_NonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	result, err := NewClient(srv.URL, "t", false).SendMessage(context.Background(), "42", "hi")
	require.Error(t, err)
	assert.JSONEq(t, `{"raw":"upstream down"}`, string(result.Body))
}

func TestSendMessage_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := NewClient(srv.URL, "secret-token", false).SendMessage(context.Background(), "42", "hi")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
}

func TestSendMessage_StubAndEmptyRecipient(t *testing.T) {
	c := NewClient("", "t", true)
	result, err := c.SendMessage(context.Background(), "42", "hi")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)

	_, err = c.SendMessage(context.Background(), "", "hi")
	assert.ErrorIs(t, err, ErrNoRecipient)
}
