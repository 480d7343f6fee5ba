// Package transaction guards installs with a lock file and records each
// completed install in a receipt.
package transaction

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ReceiptFile is the receipt name inside a vendor directory.
const ReceiptFile = ".vipsfetch-receipt.json"

// Receipt describes a completed install. It is informational: the vendor
// directory's existence stays the only readiness signal.
type Receipt struct {
	Version        int       `json:"version"` // Schema version for future evolution
	ID             string    `json:"id"`      // UUID for unique identification
	Library        string    `json:"library"`
	LibraryVersion string    `json:"library_version"`
	Platform       string    `json:"platform"`
	Source         string    `json:"source"`
	Archive        string    `json:"archive"`
	Digest         string    `json:"digest,omitempty"`
	Verification   string    `json:"verification"`
	HeadersSkipped bool      `json:"headers_skipped"`
	Files          int       `json:"files"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewReceipt creates a receipt with a fresh ID and timestamp.
func NewReceipt(library, libraryVersion, platform string) *Receipt {
	return &Receipt{
		Version:        1,
		ID:             uuid.New().String(),
		Library:        library,
		LibraryVersion: libraryVersion,
		Platform:       platform,
		Timestamp:      time.Now().UTC(),
	}
}

// Save writes the receipt into dir atomically.
// Uses write-then-rename pattern for atomicity.
func (r *Receipt) Save(dir string) error {
	finalPath := filepath.Join(dir, ReceiptFile)
	tmpPath := finalPath + ".tmp"

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}

	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write temporary receipt file: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath) // Clean up temp file on error
		return fmt.Errorf("rename receipt file: %w", err)
	}

	return nil
}

// Load reads the receipt from a vendor directory.
func Load(dir string) (*Receipt, error) {
	data, err := os.ReadFile(filepath.Join(dir, ReceiptFile))
	if err != nil {
		return nil, fmt.Errorf("read receipt file: %w", err)
	}

	var r Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal receipt: %w", err)
	}

	return &r, nil
}
