// Package sink receives chunked capture uploads and stores them.
//
// The HTTP server joins the base64 chunks of an upload, decodes them,
// fingerprints the content with BLAKE3 and persists it as a CBOR record in a
// Store. Records can then be listed, fetched and deleted.
package sink

import (
	"encoding/hex"
	"errors"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

// ErrNotFound is returned by stores for unknown IDs.
var ErrNotFound = errors.New("sink: capture not found")

// Meta describes a stored capture without its content.
type Meta struct {
	ID          string    `cbor:"id" json:"id"`
	FileName    string    `cbor:"name" json:"name"`
	ContentType string    `cbor:"type" json:"content_type"`
	Size        int       `cbor:"size" json:"size"`
	Digest      string    `cbor:"digest" json:"digest"`
	Chunks      int       `cbor:"chunks" json:"chunks"`
	CreatedAt   time.Time `cbor:"created" json:"created_at"`
}

// Record is a stored capture.
type Record struct {
	Meta
	Data []byte `cbor:"data" json:"-"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	encMode, err = opts.EncMode()
	if err != nil {
		panic("sink: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("sink: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes r with deterministic CBOR.
func (r *Record) Marshal() ([]byte, error) {
	return encMode.Marshal(r)
}

// UnmarshalRecord decodes a CBOR record.
func UnmarshalRecord(data []byte) (*Record, error) {
	var r Record
	if err := decMode.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Digest returns the hex BLAKE3-256 digest of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
