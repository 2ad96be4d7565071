package database

import (
	"errors"
	"fmt"
)

// Rule names the chain property an integrity check found broken.
type Rule string

// Set of rules enforced on every block in the chain.
const (
	RuleIndex      Rule = "index"      // The index is not the block's position.
	RuleEncoding   Rule = "encoding"   // A header string is not valid UTF-8.
	RuleHash       Rule = "hash"       // The stored hash doesn't match the header.
	RuleDifficulty Rule = "difficulty" // The hash lacks the required zero prefix.
	RuleMerkle     Rule = "merkle"     // The merkle root doesn't match the data hash.
	RuleGenesis    Rule = "genesis"    // The genesis block isn't sentinel linked.
	RuleLinkage    Rule = "linkage"    // The previous hash doesn't match the parent.
	RuleEmpty      Rule = "empty"      // There is no genesis block at all.
)

// IntegrityError describes the first broken rule found in a chain. It is
// carried inside a Report and is not used to signal a failed operation.
type IntegrityError struct {
	Index  uint64
	Rule   Rule
	Detail string
}

func newIntegrityError(index uint64, rule Rule, format string, args ...any) *IntegrityError {
	return &IntegrityError{
		Index:  index,
		Rule:   rule,
		Detail: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (ie *IntegrityError) Error() string {
	return fmt.Sprintf("blk[%d]: %s: %s", ie.Index, ie.Rule, ie.Detail)
}

// =============================================================================

// Report is the outcome of walking a chain.
type Report struct {
	IsValid       bool    `json:"is_valid"`
	BrokenAtIndex *uint64 `json:"broken_at_index"`
	TotalBlocks   int     `json:"total_blocks"`
	Rule          Rule    `json:"rule,omitempty"`
	Reason        string  `json:"reason,omitempty"`
}

// VerifyBlocks walks the blocks from genesis onward checking hash
// integrity, the difficulty target, and linkage to the preceding block. It
// stops at the first failure and reports it. An empty sequence is reported
// as invalid with no broken index.
func VerifyBlocks(blocks []Block, difficulty uint) Report {
	report := Report{
		IsValid:     true,
		TotalBlocks: len(blocks),
	}

	if len(blocks) == 0 {
		report.IsValid = false
		report.Rule = RuleEmpty
		report.Reason = "chain has no genesis block"
		return report
	}

	var prevBlock *Block
	for i := range blocks {
		if err := blocks[i].ValidateNext(prevBlock, difficulty); err != nil {
			var ie *IntegrityError
			errors.As(err, &ie)

			index := uint64(i)
			report.IsValid = false
			report.BrokenAtIndex = &index
			report.Rule = ie.Rule
			report.Reason = ie.Error()
			return report
		}

		prevBlock = &blocks[i]
	}

	return report
}
