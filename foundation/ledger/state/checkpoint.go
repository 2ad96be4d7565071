package state

import (
	"crypto/ecdsa"
	"time"

	"github.com/clinicaudit/ledger/foundation/ledger/database"
	"github.com/clinicaudit/ledger/foundation/ledger/signature"
)

// Checkpoint captures the head of the chain and its verification outcome at
// a point in time.
type Checkpoint struct {
	ChainID     uint16    `json:"chain_id"`
	TotalBlocks int       `json:"total_blocks"`
	HeadIndex   uint64    `json:"head_index"`
	HeadHash    string    `json:"head_hash"`
	IsValid     bool      `json:"is_valid"`
	TimeStamp   time.Time `json:"timestamp"`
}

// SignedCheckpoint is a checkpoint with the node's signature. An operator
// can keep these outside the node to later prove what the chain looked like.
type SignedCheckpoint struct {
	Checkpoint
	Signer    string `json:"signer"`
	Signature string `json:"sig"`
}

// Checkpoint verifies the chain and signs the resulting head checkpoint
// with the specified key.
func (l *Ledger) Checkpoint(privateKey *ecdsa.PrivateKey) (SignedCheckpoint, error) {
	blocks := l.Blocks()
	if len(blocks) == 0 {
		return SignedCheckpoint{}, ErrChainNotInitialized
	}

	report := database.VerifyBlocks(blocks, l.genesis.Difficulty)
	latest := blocks[len(blocks)-1]

	cp := Checkpoint{
		ChainID:     l.genesis.ChainID,
		TotalBlocks: len(blocks),
		HeadIndex:   latest.Header.Index,
		HeadHash:    latest.Hash,
		IsValid:     report.IsValid,
		TimeStamp:   time.Now().UTC().Truncate(time.Second),
	}

	v, r, s, err := signature.Sign(cp, privateKey)
	if err != nil {
		return SignedCheckpoint{}, err
	}

	scp := SignedCheckpoint{
		Checkpoint: cp,
		Signer:     signature.Address(privateKey),
		Signature:  signature.SignatureString(v, r, s),
	}

	return scp, nil
}

// Validate checks the signature against the checkpoint values and returns
// the address of the signer.
func (scp SignedCheckpoint) Validate() (string, error) {
	v, r, s, err := signature.ToVRSFromHexSignature(scp.Signature)
	if err != nil {
		return "", err
	}

	if err := signature.VerifySignature(v, r, s); err != nil {
		return "", err
	}

	return signature.FromAddress(scp.Checkpoint, v, r, s)
}
