package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/promptvault/internal/codec"
	"github.com/ericfisherdev/promptvault/internal/domain/model"
)

// Message types understood by Dispatch, and the reply and broadcast types it
// emits.
const (
	MsgSkipWaiting     = "SKIP_WAITING"
	MsgCachePromptData = "CACHE_PROMPT_DATA"
	MsgGetCachedData   = "GET_CACHED_DATA"
	MsgClearCache      = "CLEAR_CACHE"

	MsgCachedDataResponse = "CACHED_DATA_RESPONSE"
	MsgCacheCleared       = "CACHE_CLEARED"
	MsgPerformBackup      = "PERFORM_GITHUB_BACKUP"
)

// Sync tags handled by Worker.Sync.
const (
	SyncBackground   = "background-sync"
	SyncGitHubBackup = "github-backup-sync"
)

// promptDataStore holds the client's prompt snapshot under a fixed key. It is
// unversioned: data survives worker generation changes.
const (
	promptDataStore = "promptvault-data"
	promptDataKey   = "prompt-data"
)

// Message is one unit of the client protocol, exchanged as JSON over the
// websocket and as broadcasts from the worker.
type Message struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// cachedDataPayload is the CACHED_DATA_RESPONSE body. Data carries the
// base64-encoded snapshot, or null when nothing is cached.
type cachedDataPayload struct {
	Data *string `json:"data"`
}

// Dispatch handles one client message. Delivery is asynchronous and
// unordered; no handler assumes anything about prior messages. The returned
// reply is nil for message types that do not answer. Unknown types are logged
// and ignored, never an error.
func (w *Worker) Dispatch(ctx context.Context, msg Message) (*Message, error) {
	switch msg.Type {
	case MsgSkipWaiting:
		// The client asked the new generation to take over immediately.
		if err := w.Activate(ctx); err != nil {
			return nil, err
		}
		return nil, nil

	case MsgCachePromptData:
		err := w.cache.Put(ctx, model.CacheEntry{
			Store:     promptDataStore,
			URL:       promptDataKey,
			Status:    200,
			Body:      msg.Payload,
			FetchedAt: time.Now().UTC(),
		})
		if err != nil {
			return nil, err
		}
		slog.Debug("prompt data cached", "bytes", len(msg.Payload))
		return nil, nil

	case MsgGetCachedData:
		entry, err := w.cache.Get(ctx, promptDataStore, promptDataKey)
		if err != nil {
			return nil, err
		}
		var payload cachedDataPayload
		if entry != nil {
			encoded := codec.Encode(string(entry.Body))
			payload.Data = &encoded
		}
		return w.reply(MsgCachedDataResponse, payload), nil

	case MsgClearCache:
		if err := w.cache.DropAll(ctx); err != nil {
			return nil, err
		}
		slog.Info("all cache stores cleared")
		return w.reply(MsgCacheCleared, nil), nil

	default:
		slog.Debug("unknown message type ignored", "type", msg.Type)
		return nil, nil
	}
}

// reply builds an outbound message with a fresh ID.
func (w *Worker) reply(msgType string, payload any) *Message {
	return &Message{
		ID:      uuid.NewString(),
		Type:    msgType,
		Payload: mustJSON(payload),
	}
}

// mustJSON marshals payloads whose shape is fixed at compile time.
func mustJSON(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}
