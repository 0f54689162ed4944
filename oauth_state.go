package authcore

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kmorrell/authcore/internal"
	"github.com/kmorrell/authcore/kv"
)

const (
	stateKeyPrefix       = "oas"
	stateRecordVersionV1 = 1
)

type oauthStateRecord struct {
	Provider  string
	ReturnURL string
	ExpiresAt int64
}

// stateManager issues and consumes the single-use anti-CSRF state
// tokens that bind an OAuth authorization redirect to its callback.
// Consumption is atomic: two callbacks racing on the same token see
// exactly one success.
type stateManager struct {
	store kv.Store
	ttl   time.Duration
	now   func() time.Time
}

func newStateManager(store kv.Store, ttl time.Duration, now func() time.Time) *stateManager {
	return &stateManager{store: store, ttl: ttl, now: now}
}

func (m *stateManager) key(state string) string {
	return stateKeyPrefix + ":" + state
}

// Issue creates a fresh state token bound to provider, carrying an
// optional post-login return URL.
func (m *stateManager) Issue(ctx context.Context, provider, returnURL string) (string, error) {
	state, err := internal.NewStateToken()
	if err != nil {
		return "", err
	}

	record := &oauthStateRecord{
		Provider:  provider,
		ReturnURL: returnURL,
		ExpiresAt: m.now().Add(m.ttl).Unix(),
	}
	encoded, err := encodeOAuthStateRecord(record)
	if err != nil {
		return "", err
	}

	if err := m.store.Put(ctx, m.key(state), encoded, m.ttl); err != nil {
		return "", err
	}
	return state, nil
}

// Consume atomically removes state and returns its record. Every
// failure (unknown, expired, already used, provider mismatch, store
// down, corrupt record) satisfies errors.Is(err, ErrInvalidState);
// callers never learn which case occurred.
func (m *stateManager) Consume(ctx context.Context, state, provider string) (*oauthStateRecord, error) {
	if state == "" {
		return nil, ErrInvalidState
	}

	data, err := m.store.GetDel(ctx, m.key(state))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	record, err := decodeOAuthStateRecord(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	if m.now().Unix() > record.ExpiresAt {
		return nil, ErrInvalidState
	}
	if record.Provider != provider {
		return nil, ErrInvalidState
	}

	return record, nil
}

func encodeOAuthStateRecord(record *oauthStateRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(stateRecordVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	for _, field := range []string{record.Provider, record.ReturnURL} {
		if len(field) > 65535 {
			return nil, errors.New("oauth state field too long")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}

	return buf.Bytes(), nil
}

func decodeOAuthStateRecord(data []byte) (*oauthStateRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != stateRecordVersionV1 {
		return nil, errors.New("invalid oauth state record version")
	}

	record := &oauthStateRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	for _, target := range []*string{&record.Provider, &record.ReturnURL} {
		var length uint16
		if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
			return nil, err
		}
		field := make([]byte, length)
		if _, err := io.ReadFull(reader, field); err != nil {
			return nil, err
		}
		*target = string(field)
	}

	if record.Provider == "" {
		return nil, errors.New("oauth state record missing provider")
	}

	return record, nil
}
