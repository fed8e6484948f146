package dictionary

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"time"
)

// Entry is one stored word.
type Entry struct {
	ID          int64  `db:"id" json:"id"`
	Word        string `db:"word" json:"word"`
	Translation string `db:"translation" json:"translation"`
	// Raw is the decoded upstream payload, kept verbatim.
	Raw RawPayload `db:"raw" json:"raw"`
	// Pronunciation and Image are paths relative to the static roots, such
	// as /pronunciations/12-apple.mp3, or empty.
	Pronunciation string    `db:"pronunciation" json:"pronunciation"`
	Image         string    `db:"image" json:"image"`
	Version       int       `db:"version" json:"version"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// RawPayload is JSON stored as text. Drivers return TEXT columns either as
// string or []byte, so it scans both.
type RawPayload []byte

func (p *RawPayload) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = nil
	case string:
		*p = RawPayload(v)
	case []byte:
		*p = append(RawPayload(nil), v...)
	default:
		return fmt.Errorf("scan %T into RawPayload", src)
	}
	return nil
}

func (p RawPayload) Value() (driver.Value, error) {
	if len(p) == 0 {
		return "[]", nil
	}
	return string(p), nil
}

func (p RawPayload) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("null"), nil
	}
	return p, nil
}

func (p *RawPayload) UnmarshalJSON(data []byte) error {
	*p = append(RawPayload(nil), data...)
	return nil
}

// Range selects rows [From, To).
type Range struct {
	From int
	To   int
}

func (r Range) limit() int {
	return r.To - r.From
}

// ErrInvalidRange is wrapped by Range.Validate.
var ErrInvalidRange = errors.New("invalid range")

// Validate reports whether the range is usable.
func (r Range) Validate() error {
	if r.From < 0 {
		return fmt.Errorf("%w: from must not be negative", ErrInvalidRange)
	}
	if r.To <= r.From {
		return fmt.Errorf("%w: to must be greater than from", ErrInvalidRange)
	}
	return nil
}

// Page is one page of entries plus the number of entries across all pages.
type Page struct {
	Items []Entry `json:"items"`
	Total int     `json:"total"`
}

var (
	ErrWordExists    = errors.New("word already exists")
	ErrWordNotFound  = errors.New("word doesn't exist")
	ErrEntryNotFound = errors.New("translation doesn't exist")
)

// StorageError wraps ErrWordExists, ErrWordNotFound or ErrEntryNotFound with
// the operation that hit it.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
