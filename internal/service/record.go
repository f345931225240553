package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/joeblew999/geoview/internal/store"
)

// RecordsKey is the storage key holding the whole upload list.
const RecordsKey = "geojson_files"

// RecordService manages the persisted list of uploaded GeoJSON files.
type RecordService struct {
	store store.Store
	key   string
}

// NewRecordService creates a record service on top of st.
func NewRecordService(st store.Store) *RecordService {
	return &RecordService{store: st, key: RecordsKey}
}

// List returns all records in upload order.
func (s *RecordService) List(ctx context.Context) ([]Record, error) {
	data, err := s.store.Get(ctx, s.key)
	if err != nil {
		return nil, err
	}
	return decodeRecords(data), nil
}

// Get returns a record by ID.
func (s *RecordService) Get(ctx context.Context, id string) (Record, bool, error) {
	records, err := s.List(ctx)
	if err != nil {
		return Record{}, false, err
	}
	for _, r := range records {
		if r.ID == id {
			return r, true, nil
		}
	}
	return Record{}, false, nil
}

// Append adds rec to the end of the list in one atomic update.
// A record with the same ID is replaced in place and returned as prev.
func (s *RecordService) Append(ctx context.Context, rec Record) (prev Record, replaced bool, err error) {
	err = s.store.Update(ctx, s.key, func(old []byte) ([]byte, error) {
		records := decodeRecords(old)
		prev, replaced = Record{}, false
		for i := range records {
			if records[i].ID == rec.ID {
				prev, replaced = records[i], true
				records[i] = rec
				break
			}
		}
		if !replaced {
			records = append(records, rec)
		}
		return encodeRecords(records)
	})
	if err != nil {
		return Record{}, false, err
	}
	return prev, replaced, nil
}

// remove drops a record by ID. Used to undo an append when the map refuses
// the layer.
func (s *RecordService) remove(ctx context.Context, id string) error {
	return s.store.Update(ctx, s.key, func(old []byte) ([]byte, error) {
		records := decodeRecords(old)
		kept := records[:0]
		for _, r := range records {
			if r.ID != id {
				kept = append(kept, r)
			}
		}
		return encodeRecords(kept)
	})
}

// Clear removes every record.
func (s *RecordService) Clear(ctx context.Context) error {
	return s.store.Delete(ctx, s.key)
}

func decodeRecords(data []byte) []Record {
	if len(data) == 0 {
		return []Record{}
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		// Invalid JSON, start empty
		slog.Warn("discarding unreadable upload list", "key", RecordsKey, "error", err)
		return []Record{}
	}
	if records == nil {
		records = []Record{}
	}
	return records
}

func encodeRecords(records []Record) ([]byte, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encoding upload list: %w", err)
	}
	return data, nil
}
