package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/Ananth-NQI/appointlab-backend/internal/models"
	"github.com/Ananth-NQI/appointlab-backend/internal/storage"
	"github.com/Ananth-NQI/appointlab-backend/internal/utils"
)

// Normalize returns the comparable form of a phone number or chat handle.
func Normalize(identifier string) string {
	return utils.NormalizeIdentifier(identifier)
}

// IsBlocked reports whether the normalized identifier equals a normalized
// blocklist entry.
func IsBlocked(identifier string, blocklist []string) bool {
	id := Normalize(identifier)
	if id == "" {
		return false
	}
	for _, entry := range blocklist {
		e := Normalize(entry)
		if e != "" && e == id {
			return true
		}
	}
	return false
}

// AccessFilter checks identifiers against the blocklist kept in settings.
// The list is read on every check so operator edits apply immediately.
type AccessFilter struct {
	store storage.Store
}

// NewAccessFilter creates a new access filter
func NewAccessFilter(store storage.Store) *AccessFilter {
	return &AccessFilter{store: store}
}

// BlockedNumbers returns the stored blocklist. A malformed value reads as
// an empty list.
func (f *AccessFilter) BlockedNumbers(ctx context.Context) ([]string, error) {
	raw, err := f.store.GetSetting(ctx, models.SettingBlockedNumbers)
	if err != nil {
		return nil, fmt.Errorf("failed to load blocked numbers: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return []string{}, nil
	}

	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		log.Printf("⚠️  Ignoring malformed %s setting: %v", models.SettingBlockedNumbers, err)
		return []string{}, nil
	}
	return list, nil
}

// SetBlockedNumbers replaces the blocklist. Entries are trimmed, blanks are
// dropped and duplicates (by normalized value) keep their first spelling.
func (f *AccessFilter) SetBlockedNumbers(ctx context.Context, numbers []string) ([]string, error) {
	cleaned := make([]string, 0, len(numbers))
	seen := make(map[string]bool, len(numbers))
	for _, n := range numbers {
		n = strings.TrimSpace(n)
		key := Normalize(n)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		cleaned = append(cleaned, n)
	}

	data, err := json.Marshal(cleaned)
	if err != nil {
		return nil, err
	}
	if err := f.store.SetSetting(ctx, models.SettingBlockedNumbers, string(data)); err != nil {
		return nil, fmt.Errorf("failed to save blocked numbers: %w", err)
	}
	log.Printf("✅ Blocklist updated (%d entries)", len(cleaned))
	return cleaned, nil
}

// IsBlocked reports whether the identifier is on the stored blocklist
func (f *AccessFilter) IsBlocked(ctx context.Context, identifier string) (bool, error) {
	list, err := f.BlockedNumbers(ctx)
	if err != nil {
		return false, err
	}
	return IsBlocked(identifier, list), nil
}
