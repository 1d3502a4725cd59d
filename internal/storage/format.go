package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"filippo.io/age"
	"github.com/google/uuid"

	"github.com/mindmorass/clipdeck/internal/item"
)

const (
	// MagicBytes identifies a clipdeck library snapshot
	MagicBytes = "CDLB"

	// CurrentVersion is the current file format version
	CurrentVersion uint32 = 1

	// MaxHeaderSize limits header size to prevent memory issues
	MaxHeaderSize = 1024 * 1024 // 1 MB

	// MaxPayloadSize limits payload size
	MaxPayloadSize = 512 * 1024 * 1024 // 512 MB

	// FileExt is the extension of snapshot files
	FileExt = ".cdlb"

	prefixSize = 12 // magic + version + header length
)

var (
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrInvalidVersion     = errors.New("unsupported file format version")
	ErrHeaderTooLarge     = errors.New("header size exceeds maximum")
	ErrPayloadTooLarge    = errors.New("payload size exceeds maximum")
	ErrChecksumMismatch   = errors.New("checksum verification failed")
	ErrInvalidHeader      = errors.New("invalid header format")
	ErrTruncated          = errors.New("payload shorter than header size")
	ErrPassphraseRequired = errors.New("snapshot is encrypted; passphrase required")
	ErrDecrypt            = errors.New("failed to decrypt snapshot")
)

// scryptWorkFactor is the log2 scrypt cost used for new encrypted snapshots
var scryptWorkFactor = 18

// Snapshot is the full library: items and templates
type Snapshot struct {
	Items     []*item.ClipboardItem `json:"items"`
	Templates []*item.Template      `json:"templates"`
}

// FileHeader is the JSON metadata stored ahead of the payload
type FileHeader struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	SourceMachine string    `json:"source_machine"`
	ItemCount     int       `json:"item_count"`
	TemplateCount int       `json:"template_count"`
	Encrypted     bool      `json:"encrypted"`
	Checksum      string    `json:"checksum"`
	Size          int64     `json:"size"`
}

// EncodeOptions controls how a snapshot is written
type EncodeOptions struct {
	// Passphrase, when set, encrypts the payload with age
	Passphrase string
}

// Encode serializes a snapshot into the envelope format
func Encode(snap *Snapshot, opts EncodeOptions) ([]byte, *FileHeader, error) {
	if snap == nil {
		return nil, nil, errors.New("snapshot is nil")
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, nil, fmt.Errorf("encode payload: %w", err)
	}

	encrypted := opts.Passphrase != ""
	if encrypted {
		payload, err = encrypt(payload, opts.Passphrase)
		if err != nil {
			return nil, nil, err
		}
	}
	if len(payload) > MaxPayloadSize {
		return nil, nil, ErrPayloadTooLarge
	}

	hostname, _ := os.Hostname()
	checksum := sha256.Sum256(payload)
	header := &FileHeader{
		ID:            uuid.New().String(),
		CreatedAt:     time.Now().UTC(),
		SourceMachine: hostname,
		ItemCount:     len(snap.Items),
		TemplateCount: len(snap.Templates),
		Encrypted:     encrypted,
		Checksum:      hex.EncodeToString(checksum[:]),
		Size:          int64(len(payload)),
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return nil, nil, fmt.Errorf("encode header: %w", err)
	}

	buf := bytes.NewBuffer(make([]byte, 0, prefixSize+len(headerBytes)+len(payload)))
	buf.WriteString(MagicBytes)
	if err := binary.Write(buf, binary.BigEndian, CurrentVersion); err != nil {
		return nil, nil, err
	}
	if err := binary.Write(buf, binary.BigEndian, uint32(len(headerBytes))); err != nil {
		return nil, nil, err
	}
	buf.Write(headerBytes)
	buf.Write(payload)

	return buf.Bytes(), header, nil
}

// ReadHeader parses the envelope header without touching the payload
func ReadHeader(data []byte) (*FileHeader, error) {
	header, _, err := split(data)
	return header, err
}

// Decode verifies and deserializes a snapshot. passphrase is only used
// when the snapshot is encrypted.
func Decode(data []byte, passphrase string) (*Snapshot, *FileHeader, error) {
	header, payload, err := split(data)
	if err != nil {
		return nil, nil, err
	}

	checksum := sha256.Sum256(payload)
	if hex.EncodeToString(checksum[:]) != header.Checksum {
		return nil, nil, ErrChecksumMismatch
	}

	if header.Encrypted {
		if passphrase == "" {
			return nil, nil, ErrPassphraseRequired
		}
		payload, err = decrypt(payload, passphrase)
		if err != nil {
			return nil, nil, err
		}
	}

	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, nil, fmt.Errorf("decode payload: %w", err)
	}
	return &snap, header, nil
}

func split(data []byte) (*FileHeader, []byte, error) {
	if len(data) < prefixSize {
		return nil, nil, ErrInvalidMagic
	}

	reader := bytes.NewReader(data)

	magic := make([]byte, 4)
	if _, err := io.ReadFull(reader, magic); err != nil {
		return nil, nil, err
	}
	if string(magic) != MagicBytes {
		return nil, nil, ErrInvalidMagic
	}

	var version uint32
	if err := binary.Read(reader, binary.BigEndian, &version); err != nil {
		return nil, nil, err
	}
	if version == 0 || version > CurrentVersion {
		return nil, nil, ErrInvalidVersion
	}

	var headerLen uint32
	if err := binary.Read(reader, binary.BigEndian, &headerLen); err != nil {
		return nil, nil, err
	}
	if headerLen > MaxHeaderSize {
		return nil, nil, ErrHeaderTooLarge
	}

	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(reader, headerBytes); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}

	var header FileHeader
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, nil, ErrInvalidHeader
	}

	if header.Size < 0 {
		return nil, nil, ErrInvalidHeader
	}
	if header.Size > MaxPayloadSize {
		return nil, nil, ErrPayloadTooLarge
	}
	if header.Size > int64(reader.Len()) {
		return nil, nil, ErrTruncated
	}

	payload := make([]byte, header.Size)
	if _, err := io.ReadFull(reader, payload); err != nil {
		return nil, nil, fmt.Errorf("read payload: %w", err)
	}
	return &header, payload, nil
}

func encrypt(plaintext []byte, passphrase string) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	recipient.SetWorkFactor(scryptWorkFactor)

	var out bytes.Buffer
	w, err := age.Encrypt(&out, recipient)
	if err != nil {
		return nil, fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("encrypting snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing encryption: %w", err)
	}
	return out.Bytes(), nil
}

func decrypt(ciphertext []byte, passphrase string) ([]byte, error) {
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return plaintext, nil
}
