// ABOUTME: Sync bookkeeping for external importers
// ABOUTME: Last sync time, token and status per service under sync/{service} keys
package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// SyncState records the outcome of the last import from an external service.
type SyncState struct {
	Service       string     `json:"service"`
	LastSyncTime  *time.Time `json:"lastSyncTime,omitempty"`
	LastSyncToken string     `json:"lastSyncToken,omitempty"`
	Status        string     `json:"status"`
	ErrorMessage  string     `json:"errorMessage,omitempty"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Sync statuses.
const (
	SyncIdle    = "idle"
	SyncRunning = "syncing"
	SyncError   = "error"
)

func syncKey(service string) string {
	return "sync/" + service
}

// SyncState returns the state for service, or nil if it never synced.
func (s *Store) SyncState(service string) (*SyncState, error) {
	data, ok, err := s.backend.Get(syncKey(service))
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var st SyncState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to decode sync state: %w", err)
	}
	return &st, nil
}

// UpdateSyncStatus sets the status and error message of service.
func (s *Store) UpdateSyncStatus(service, status, errorMsg string) error {
	st, err := s.SyncState(service)
	if err != nil {
		return err
	}
	if st == nil {
		st = &SyncState{Service: service}
	}
	st.Status = status
	st.ErrorMessage = errorMsg
	return s.saveSyncState(st)
}

// MarkSynced records a successful sync at the current time.
func (s *Store) MarkSynced(service, token string) error {
	now := s.now()
	return s.saveSyncState(&SyncState{
		Service:       service,
		LastSyncTime:  &now,
		LastSyncToken: token,
		Status:        SyncIdle,
	})
}

func (s *Store) saveSyncState(st *SyncState) error {
	st.UpdatedAt = s.now()
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode sync state: %w", err)
	}
	if err := s.backend.Set(syncKey(st.Service), data); err != nil {
		return fmt.Errorf("failed to update sync state: %w", err)
	}
	return nil
}
