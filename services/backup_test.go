package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accord-ai/config"
)

func TestDecodeBackupMapping_KeepsOrder(t *testing.T) {
	entries, err := DecodeBackupMapping(strings.NewReader(`{"weather":"Sunny","hello":"Hi!","count":3,"bye":"Bye"}`))
	require.NoError(t, err)
	assert.Equal(t, []BackupEntry{
		{Key: "weather", Response: "Sunny"},
		{Key: "hello", Response: "Hi!"},
		{Key: "bye", Response: "Bye"},
	}, entries)
}

func TestDecodeBackupMapping_DuplicateKeyTakesLastValue(t *testing.T) {
	entries, err := DecodeBackupMapping(strings.NewReader(`{"hello":"A","bye":"B","hello":"C"}`))
	require.NoError(t, err)
	assert.Equal(t, []BackupEntry{
		{Key: "hello", Response: "C"},
		{Key: "bye", Response: "B"},
	}, entries)
	assert.Equal(t, "C", MatchBackup(entries, "hello"))

	// a later non-string value removes the key, a later string restores it at its first position
	entries, err = DecodeBackupMapping(strings.NewReader(`{"hello":"A","bye":"B","hello":4}`))
	require.NoError(t, err)
	assert.Equal(t, []BackupEntry{{Key: "bye", Response: "B"}}, entries)

	entries, err = DecodeBackupMapping(strings.NewReader(`{"hello":4,"bye":"B","hello":"C"}`))
	require.NoError(t, err)
	assert.Equal(t, []BackupEntry{
		{Key: "hello", Response: "C"},
		{Key: "bye", Response: "B"},
	}, entries)
}

func TestDecodeBackupMapping_RejectsNonObject(t *testing.T) {
	_, err := DecodeBackupMapping(strings.NewReader(`["hello"]`))
	assert.Error(t, err)
}

func TestMatchBackup(t *testing.T) {
	entries := []BackupEntry{
		{Key: "good", Response: "Good to hear."},
		{Key: "good morning", Response: "Morning!"},
		{Key: "empty", Response: ""},
	}

	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"exact wins over earlier partial", "  Good Morning ", "Morning!"},
		{"message contains key", "a good day", "Good to hear."},
		{"key contains message", "goo", "Good to hear."},
		{"empty exact falls through to partial", "empty", ""},
		{"no match", "weather", config.BackupDownNotice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchBackup(entries, tt.message))
		})
	}
}

func TestBackupClient_Lookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(`{"hello":"Hi from backup"}`))
	}))
	defer srv.Close()

	text, err := NewBackupClient(srv.URL, time.Second).Lookup(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi from backup", text)
}

func TestBackupClient_Non2xxIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewBackupClient(srv.URL, time.Second).Lookup(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrBackupUnavailable)
	assert.True(t, IsStatus(err, http.StatusBadGateway))
}

func TestBackupClient_NoURL(t *testing.T) {
	_, err := NewBackupClient("", time.Second).Lookup(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrBackupUnavailable)
}
