package database

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/clinicaudit/ledger/foundation/ledger/digest"
	"github.com/clinicaudit/ledger/foundation/ledger/merkle"
)

// DefaultDifficulty is the number of leading zero hex digits a block hash
// needs when no difficulty is configured.
const DefaultDifficulty uint = 4

// MaxDifficulty is the largest difficulty a hex digest can satisfy.
const MaxDifficulty uint = digest.Size

// =============================================================================

// BlockHeader represents the fields sealed by the block hash. The field
// order here is the canonical hashing order and the order they are persisted.
type BlockHeader struct {
	Index        uint64     `json:"index"`         // Position in the chain, 0 for genesis.
	TimeStamp    time.Time  `json:"timestamp"`     // Time the block was sealed, UTC.
	SubjectID    string     `json:"subject_id"`    // Patient the event concerns.
	RecordType   RecordType `json:"record_type"`   // Kind of clinical event.
	DataHash     string     `json:"data_hash"`     // Fingerprint of the event payload.
	PreviousHash string     `json:"previous_hash"` // Hash of the preceding block.
	MerkleRoot   string     `json:"merkle_root"`   // Root over the block's leaf set.
	Nonce        uint64     `json:"nonce"`         // Value identified to solve the hash solution.
}

// Block represents one sealed audit entry.
type Block struct {
	Header BlockHeader
	Hash   string
}

// NewGenesis constructs the unsealed first block of a chain.
func NewGenesis(now time.Time) Block {
	return Block{
		Header: BlockHeader{
			Index:        0,
			TimeStamp:    normalize(now),
			PreviousHash: digest.ZeroHash,
			MerkleRoot:   MerkleRoot(""),
		},
	}
}

// NewBlock constructs the unsealed block that follows prevBlock and carries
// the specified payload fingerprint.
func NewBlock(prevBlock Block, subjectID string, recordType RecordType, dataHash string, now time.Time) Block {
	return Block{
		Header: BlockHeader{
			Index:        prevBlock.Header.Index + 1,
			TimeStamp:    normalize(now),
			SubjectID:    subjectID,
			RecordType:   recordType,
			DataHash:     dataHash,
			PreviousHash: prevBlock.Hash,
			MerkleRoot:   MerkleRoot(dataHash),
		},
	}
}

// CalculateHash returns the digest of the eight header fields. The fields
// are encoded as a JSON array in header order with the timestamp in RFC 3339
// form with nanoseconds:
//
//	[index,"timestamp","subjectId","recordType","dataHash","previousHash","merkleRoot",nonce]
func (b Block) CalculateHash() string {
	fields := []any{
		b.Header.Index,
		b.Header.TimeStamp.UTC().Format(time.RFC3339Nano),
		b.Header.SubjectID,
		b.Header.RecordType,
		b.Header.DataHash,
		b.Header.PreviousHash,
		b.Header.MerkleRoot,
		b.Header.Nonce,
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return digest.ZeroHash
	}

	return digest.Sum(data)
}

// Mine performs the work to find a nonce that solves the hash puzzle for
// the specified difficulty. Pointer semantics are being used since a nonce
// is being discovered. There is no early exit other than success.
func (b *Block) Mine(difficulty uint) {
	b.MineWithEvents(difficulty, nil)
}

// MineWithEvents is Mine with progress reported to the event handler. It
// returns the number of hashes that were evaluated.
func (b *Block) MineWithEvents(difficulty uint, ev func(v string, args ...any)) uint64 {
	if ev == nil {
		ev = func(string, ...any) {}
	}

	ev("database: Mine: MINING: started: blk[%d]", b.Header.Index)

	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: Mine: MINING: blk[%d]: attempts[%d]", b.Header.Index, attempts)
		}

		// Hash the block and check if we have solved the puzzle.
		hash := b.CalculateHash()
		if !isHashSolved(difficulty, hash) {
			b.Header.Nonce++
			continue
		}

		b.Hash = hash

		ev("database: Mine: MINING: SOLVED: blk[%d]: prevBlk[%s]: newBlk[%s]: attempts[%d]", b.Header.Index, b.Header.PreviousHash, hash, attempts)

		return attempts
	}
}

// IsSealed reports whether the stored hash matches the header and satisfies
// the difficulty.
func (b Block) IsSealed(difficulty uint) bool {
	return b.Hash == b.CalculateHash() && isHashSolved(difficulty, b.Hash)
}

// ValidateNext checks the block against the block that precedes it in the
// chain. Pass nil as the previous block to validate a genesis block. The
// returned error is always an *IntegrityError.
func (b Block) ValidateNext(prevBlock *Block, difficulty uint) error {
	var expIndex uint64
	if prevBlock != nil {
		expIndex = prevBlock.Header.Index + 1
	}

	if b.Header.Index != expIndex {
		return newIntegrityError(expIndex, RuleIndex, "got index %d, exp %d", b.Header.Index, expIndex)
	}

	// The hash encodes strings as JSON, which folds invalid UTF-8 into the
	// replacement character, so such headers can't be bound by the hash.
	if field, ok := b.Header.invalidEncoding(); ok {
		return newIntegrityError(expIndex, RuleEncoding, "%s is not valid UTF-8", field)
	}

	hash := b.CalculateHash()
	if b.Hash != hash {
		return newIntegrityError(expIndex, RuleHash, "stored hash %s does not match calculated hash %s", b.Hash, hash)
	}

	if !isHashSolved(difficulty, b.Hash) {
		return newIntegrityError(expIndex, RuleDifficulty, "hash %s does not have %d leading zeros", b.Hash, difficulty)
	}

	if root := MerkleRoot(b.Header.DataHash); b.Header.MerkleRoot != root {
		return newIntegrityError(expIndex, RuleMerkle, "got merkle root %s, exp %s", b.Header.MerkleRoot, root)
	}

	switch prevBlock {
	case nil:
		if b.Header.PreviousHash != digest.ZeroHash {
			return newIntegrityError(expIndex, RuleGenesis, "genesis previous hash %s is not the zero hash", b.Header.PreviousHash)
		}

	default:
		if b.Header.PreviousHash != prevBlock.Hash {
			return newIntegrityError(expIndex, RuleLinkage, "previous hash %s doesn't match parent hash %s", b.Header.PreviousHash, prevBlock.Hash)
		}
	}

	return nil
}

// invalidEncoding returns the first string field of the header that is not
// valid UTF-8.
func (h BlockHeader) invalidEncoding() (string, bool) {
	fields := []struct {
		name  string
		value string
	}{
		{"subject_id", h.SubjectID},
		{"record_type", string(h.RecordType)},
		{"data_hash", h.DataHash},
		{"previous_hash", h.PreviousHash},
		{"merkle_root", h.MerkleRoot},
	}

	for _, f := range fields {
		if !utf8.ValidString(f.value) {
			return f.name, true
		}
	}

	return "", false
}

// String implements the fmt.Stringer interface.
func (b Block) String() string {
	return fmt.Sprintf("blk[%d]: type[%s]: subject[%s]: hash[%s]", b.Header.Index, b.Header.RecordType, b.Header.SubjectID, b.Hash)
}

// =============================================================================

// MerkleRoot calculates the merkle root for a block carrying the specified
// payload fingerprints. With a single leaf the root is the digest of it.
func MerkleRoot(dataHashes ...string) string {
	leafs := make([]leaf, len(dataHashes))
	for i, dh := range dataHashes {
		leafs[i] = leaf(dh)
	}

	tree, err := merkle.NewTree(leafs)
	if err != nil {
		return digest.ZeroHash
	}

	return tree.RootHex()
}

// leaf is a payload fingerprint as stored in the merkle tree.
type leaf string

// Hash implements the merkle.Hashable interface.
func (l leaf) Hash() ([]byte, error) {
	h := sha256.Sum256([]byte(l))
	return h[:], nil
}

// Equals implements the merkle.Hashable interface.
func (l leaf) Equals(other leaf) bool {
	return l == other
}

// =============================================================================

// isHashSolved checks the hash to make sure it complies with
// the POW rules. We need to match a difficulty number of 0's.
func isHashSolved(difficulty uint, hash string) bool {
	if len(hash) != digest.Size || difficulty > MaxDifficulty {
		return false
	}

	for i := uint(0); i < difficulty; i++ {
		if hash[i] != '0' {
			return false
		}
	}

	return true
}

// normalize strips the monotonic clock reading and location so the
// timestamp survives a round trip through its text form unchanged.
func normalize(t time.Time) time.Time {
	return t.Round(0).UTC()
}
