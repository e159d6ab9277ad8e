package hydration

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/goliatone/go-notehub/cache"
)

// WireVersion is written into every encoded snapshot.
const WireVersion = 1

const (
	ContentTypeJSON    = "application/json"
	ContentTypeMsgpack = "application/x-msgpack"
)

// Codec encodes snapshots for transport.
type Codec interface {
	ContentType() string
	Encode(s *Snapshot) ([]byte, error)
	Decode(data []byte) (*Snapshot, error)
}

// CodecFor picks a codec by content type, falling back to JSON.
func CodecFor(contentType string, types *Registry) Codec {
	if contentType == ContentTypeMsgpack {
		return MsgpackCodec{Types: types}
	}
	return JSONCodec{Types: types}
}

type jsonSnapshot struct {
	Version int         `json:"version"`
	Queries []jsonEntry `json:"queries"`
}

type jsonEntry struct {
	Key           cache.Key       `json:"queryKey"`
	Status        string          `json:"status"`
	Data          json.RawMessage `json:"data"`
	DataUpdatedAt time.Time       `json:"dataUpdatedAt"`
}

// JSONCodec is the format embedded in rendered pages.
type JSONCodec struct {
	Types *Registry
}

func (JSONCodec) ContentType() string { return ContentTypeJSON }

func (c JSONCodec) Encode(s *Snapshot) ([]byte, error) {
	out := jsonSnapshot{Version: WireVersion, Queries: []jsonEntry{}}
	if s != nil {
		for _, e := range s.Entries {
			data, err := json.Marshal(e.Data)
			if err != nil {
				return nil, fmt.Errorf("hydration: encode %s: %w", e.Key, err)
			}
			out.Queries = append(out.Queries, jsonEntry{
				Key:           e.Key,
				Status:        "success",
				Data:          data,
				DataUpdatedAt: e.UpdatedAt,
			})
		}
	}
	return json.Marshal(out)
}

// Decode parses data. Entries that cannot be decoded are skipped and
// reported in the returned error alongside the partial snapshot.
func (c JSONCodec) Decode(data []byte) (*Snapshot, error) {
	var in jsonSnapshot
	if err := json.Unmarshal(data, &in); err != nil {
		return &Snapshot{}, fmt.Errorf("hydration: decode snapshot: %w", err)
	}
	if in.Version != WireVersion {
		return &Snapshot{}, fmt.Errorf("hydration: unsupported snapshot version %d", in.Version)
	}

	snap := &Snapshot{Entries: make([]Entry, 0, len(in.Queries))}
	var errs []error
	for _, q := range in.Queries {
		if q.Status != "success" {
			continue
		}
		raw := q.Data
		v, err := c.Types.decode(q.Key.Kind, func(dst any) error { return json.Unmarshal(raw, dst) })
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", q.Key, err))
			continue
		}
		snap.Entries = append(snap.Entries, Entry{Key: q.Key, Data: v, UpdatedAt: q.DataUpdatedAt})
	}
	return snap, errors.Join(errs...)
}

type msgpackSnapshot struct {
	Version int            `msgpack:"v"`
	Queries []msgpackEntry `msgpack:"q"`
}

type msgpackEntry struct {
	Key       []string           `msgpack:"k"`
	Data      msgpack.RawMessage `msgpack:"d"`
	UpdatedAt time.Time          `msgpack:"u"`
}

// MsgpackCodec is a compact binary form served by the snapshot endpoint.
type MsgpackCodec struct {
	Types *Registry
}

func (MsgpackCodec) ContentType() string { return ContentTypeMsgpack }

func (c MsgpackCodec) Encode(s *Snapshot) ([]byte, error) {
	out := msgpackSnapshot{Version: WireVersion}
	if s != nil {
		for _, e := range s.Entries {
			data, err := msgpack.Marshal(e.Data)
			if err != nil {
				return nil, fmt.Errorf("hydration: encode %s: %w", e.Key, err)
			}
			out.Queries = append(out.Queries, msgpackEntry{Key: e.Key.Tuple(), Data: data, UpdatedAt: e.UpdatedAt})
		}
	}
	return msgpack.Marshal(out)
}

func (c MsgpackCodec) Decode(data []byte) (*Snapshot, error) {
	var in msgpackSnapshot
	if err := msgpack.Unmarshal(data, &in); err != nil {
		return &Snapshot{}, fmt.Errorf("hydration: decode snapshot: %w", err)
	}
	if in.Version != WireVersion {
		return &Snapshot{}, fmt.Errorf("hydration: unsupported snapshot version %d", in.Version)
	}

	snap := &Snapshot{Entries: make([]Entry, 0, len(in.Queries))}
	var errs []error
	for _, q := range in.Queries {
		key, err := cache.KeyFromTuple(q.Key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		raw := q.Data
		v, err := c.Types.decode(key.Kind, func(dst any) error { return msgpack.Unmarshal(raw, dst) })
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		snap.Entries = append(snap.Entries, Entry{Key: key, Data: v, UpdatedAt: q.UpdatedAt})
	}
	return snap, errors.Join(errs...)
}
