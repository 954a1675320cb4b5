// Package content addresses certificate payloads by the hash of their bytes.
//
// Pointers are CIDv1 strings (raw codec, sha2-256). Every adapter derives the
// pointer locally before writing, so identical payloads always map to the
// same pointer and a Put is naturally idempotent. Reads re-hash the returned
// bytes; a replica that serves different bytes is treated as unavailable.
package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"certledger/internal/certificate/models"
	"certledger/pkg/platform/sentinel"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

// DefaultGateway is the public HTTP gateway used to build payload links.
const DefaultGateway = "https://gateway.pinata.cloud"

// ErrInvalidPointer is returned when a pointer does not parse as a CID.
var ErrInvalidPointer = errors.New("invalid content pointer")

// Store is the content-addressed payload store. There is no update or delete.
type Store interface {
	Put(ctx context.Context, data []byte) (models.ContentPointer, error)
	Get(ctx context.Context, ptr models.ContentPointer) ([]byte, error)
	GatewayURL(ptr models.ContentPointer) string
}

// PointerFor computes the pointer of data without storing it.
func PointerFor(data []byte) (models.ContentPointer, error) {
	sum, err := mh.Sum(data, mh.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}
	return models.ContentPointer(cid.NewCidV1(cid.Raw, sum).String()), nil
}

// ParsePointer decodes ptr into a CID.
func ParsePointer(ptr models.ContentPointer) (cid.Cid, error) {
	c, err := cid.Decode(string(ptr))
	if err != nil {
		return cid.Undef, fmt.Errorf("%w %q: %w", ErrInvalidPointer, ptr, err)
	}
	return c, nil
}

// Verify checks that data hashes to ptr. A mismatch wraps both
// sentinel.ErrUnavailable and sentinel.ErrCorrupt.
func Verify(ptr models.ContentPointer, data []byte) error {
	want, err := ParsePointer(ptr)
	if err != nil {
		return err
	}
	got, err := want.Prefix().Sum(data)
	if err != nil {
		return fmt.Errorf("hash content: %w", err)
	}
	if !got.Equals(want) {
		return fmt.Errorf("%w: %w: content for %s hashes to %s", sentinel.ErrUnavailable, sentinel.ErrCorrupt, ptr, got)
	}
	return nil
}

// GatewayURL joins a gateway base URL and a pointer.
func GatewayURL(gateway string, ptr models.ContentPointer) string {
	if gateway == "" {
		gateway = DefaultGateway
	}
	return strings.TrimRight(gateway, "/") + "/ipfs/" + string(ptr)
}

// Unavailable wraps a backend failure so callers can detect it with
// errors.Is(err, sentinel.ErrUnavailable).
func Unavailable(op string, err error) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", sentinel.ErrUnavailable, op, err)
}

// NotFound reports content that no replica holds. It is a kind of unavailability.
func NotFound(ptr models.ContentPointer) error {
	return fmt.Errorf("%w: %w: %s", sentinel.ErrUnavailable, sentinel.ErrNotFound, ptr)
}
