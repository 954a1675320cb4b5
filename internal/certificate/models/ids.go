package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// CertificateID is the ledger-assigned token identifier. Identifiers are
// allocated monotonically by the ledger and never reused.
type CertificateID uint64

func (id CertificateID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseCertificateID parses a decimal token identifier.
func ParseCertificateID(s string) (CertificateID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid certificate id %q: %w", s, err)
	}
	return CertificateID(v), nil
}

// ContentPointer addresses a payload in the content store. Consumers treat it
// as an opaque string; only the content package knows it is a CID.
type ContentPointer string

func (p ContentPointer) String() string { return string(p) }

func (p ContentPointer) IsZero() bool { return p == "" }

// WalletAddress is an EVM account address in EIP-55 checksummed form.
type WalletAddress string

func (a WalletAddress) String() string { return string(a) }

func (a WalletAddress) IsZero() bool { return a == "" }

// ParseWalletAddress validates a hex account address and normalizes it to its
// checksummed representation so index lookups are stable regardless of the
// casing a wallet reports.
func ParseWalletAddress(s string) (WalletAddress, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("invalid wallet address %q", s)
	}
	return WalletAddress(common.HexToAddress(s).Hex()), nil
}
