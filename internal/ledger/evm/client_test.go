package evm

import (
	"math/big"
	"strings"
	"testing"

	"certledger/internal/certificate/models"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contractAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

func transferLog(addr common.Address, from common.Address, id int64) *types.Log {
	return &types.Log{
		Address: addr,
		Topics: []common.Hash{
			transferTopic,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8").Bytes()),
			common.BigToHash(big.NewInt(id)),
		},
	}
}

func TestMintedIDs(t *testing.T) {
	other := common.HexToAddress("0x0000000000000000000000000000000000000bad")
	receipt := &types.Receipt{Logs: []*types.Log{
		transferLog(contractAddr, common.Address{}, 7),
		transferLog(other, common.Address{}, 99),
		transferLog(contractAddr, common.HexToAddress("0x01"), 3),
		transferLog(contractAddr, common.Address{}, 8),
	}}

	ids, err := mintedIDs(receipt, contractAddr)
	require.NoError(t, err)
	assert.Equal(t, []models.CertificateID{7, 8}, ids)

	_, err = mintedIDs(nil, contractAddr)
	assert.Error(t, err)
}

func TestContiguous(t *testing.T) {
	r, err := contiguous([]models.CertificateID{4, 5, 6}, 3)
	require.NoError(t, err)
	assert.Equal(t, models.IDRange{First: 4, Count: 3}, r)

	_, err = contiguous([]models.CertificateID{4, 6}, 2)
	assert.Error(t, err)

	_, err = contiguous([]models.CertificateID{4}, 2)
	assert.Error(t, err)
}

func TestContractABI(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(certNFTABI))
	require.NoError(t, err)
	for _, m := range []string{"mint", "batchMint", "getCert", "isCertificateRevoked", "revokeCertificate", "nextId"} {
		assert.Contains(t, parsed.Methods, m)
	}
	assert.Equal(t, transferTopic, parsed.Events["Transfer"].ID)
}

func TestNewRequiresBackend(t *testing.T) {
	_, err := New(t.Context(), nil, contractAddr.Hex(), "")
	assert.EqualError(t, err, "ledger backend is required")
}
