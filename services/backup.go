package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"accord-ai/config"
)

// BackupEntry is one trigger phrase of the backup mapping
type BackupEntry struct {
	Key      string
	Response string
}

// BackupSource answers a message from the secondary key/value responder
type BackupSource interface {
	Lookup(ctx context.Context, message string) (string, error)
}

// BackupClient fetches the backup mapping with a GET on every lookup
type BackupClient struct {
	url        string
	httpClient *http.Client
}

// NewBackupClient creates a client for the mapping at url
func NewBackupClient(url string, timeout time.Duration) *BackupClient {
	return &BackupClient{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Lookup returns the mapped response for message, or the generic down notice
// when no key matches. An error means the endpoint was not usable.
func (c *BackupClient) Lookup(ctx context.Context, message string) (string, error) {
	if c.url == "" {
		return "", fmt.Errorf("%w: no URL configured", ErrBackupUnavailable)
	}

	entries, err := c.fetch(ctx)
	if err != nil {
		return "", err
	}
	return MatchBackup(entries, message), nil
}

func (c *BackupClient) fetch(ctx context.Context) ([]BackupEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackupUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackupUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %w", ErrBackupUnavailable, &StatusError{StatusCode: resp.StatusCode})
	}

	entries, err := DecodeBackupMapping(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackupUnavailable, err)
	}
	slog.Debug("Backup mapping fetched", "entries", len(entries))
	return entries, nil
}

// DecodeBackupMapping reads a flat JSON object keeping its key order, which
// decides the winner among several partial matches. Non-string values are skipped.
func DecodeBackupMapping(r io.Reader) ([]BackupEntry, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read backup mapping: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("backup mapping is not a JSON object")
	}

	// A repeated key keeps its first position and takes the last value
	var (
		entries []BackupEntry
		valid   []bool
		index   = make(map[string]int)
	)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to read backup key: %w", err)
		}
		key, _ := keyTok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("failed to read backup value for %q: %w", key, err)
		}
		var response string
		isString := json.Unmarshal(value, &response) == nil

		if i, seen := index[key]; seen {
			entries[i].Response = response
			valid[i] = isString
			continue
		}
		index[key] = len(entries)
		entries = append(entries, BackupEntry{Key: key, Response: response})
		valid = append(valid, isString)
	}

	out := entries[:0]
	for i, e := range entries {
		if valid[i] {
			out = append(out, e)
		}
	}
	return out, nil
}

// MatchBackup picks the response for message: an exact key on the lowercased
// trimmed message, else the first key where either string contains the other,
// else the generic notice.
func MatchBackup(entries []BackupEntry, message string) string {
	content := strings.ToLower(strings.TrimSpace(message))

	for _, e := range entries {
		if e.Key == content && e.Response != "" {
			return e.Response
		}
	}
	for _, e := range entries {
		key := strings.ToLower(e.Key)
		if strings.Contains(content, key) || strings.Contains(key, content) {
			return e.Response
		}
	}
	return config.BackupDownNotice
}
