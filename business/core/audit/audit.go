// Package audit provides the business API for recording clinical events in
// the ledger and checking them later.
package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/clinicaudit/ledger/business/sys/validate"
	"github.com/clinicaudit/ledger/foundation/ledger/database"
	"github.com/clinicaudit/ledger/foundation/ledger/digest"
	"github.com/clinicaudit/ledger/foundation/ledger/state"
	"github.com/clinicaudit/ledger/foundation/web"
	"go.uber.org/zap"
)

// Set of error variables for the audit API.
var (
	ErrNotFound         = errors.New("block not found")
	ErrInvalidSubject   = errors.New("subject id is required")
	ErrInvalidHash      = errors.New("hash is not a sha256 hex digest")
	ErrRecordTypeDiffer = errors.New("record type does not match the block")
)

// Core manages the set of APIs for clinical audit access.
type Core struct {
	log    *zap.SugaredLogger
	ledger *state.Ledger
}

// NewCore constructs a core for audit api access.
func NewCore(log *zap.SugaredLogger, ledger *state.Ledger) *Core {
	return &Core{
		log:    log,
		ledger: ledger,
	}
}

// Record fingerprints an untyped event payload into the ledger.
func (c *Core) Record(ctx context.Context, ne NewEvent) (Receipt, error) {
	if err := validate.Check(ne); err != nil {
		return Receipt{}, fmt.Errorf("validating data: %w", err)
	}

	recordType, err := database.ParseRecordType(ne.RecordType)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", state.ErrInvalidRecordType, err)
	}

	return c.record(ctx, ne.SubjectID, recordType, ne.Payload)
}

// RecordHealthMetric fingerprints a health metric into the ledger.
func (c *Core) RecordHealthMetric(ctx context.Context, subjectID string, hm HealthMetric) (Receipt, error) {
	if err := validate.Check(hm); err != nil {
		return Receipt{}, fmt.Errorf("validating data: %w", err)
	}

	return c.record(ctx, subjectID, database.HealthMetric, hm)
}

// RecordMedicalRecord fingerprints a medical record into the ledger.
func (c *Core) RecordMedicalRecord(ctx context.Context, subjectID string, mr MedicalRecord) (Receipt, error) {
	if err := validate.Check(mr); err != nil {
		return Receipt{}, fmt.Errorf("validating data: %w", err)
	}

	return c.record(ctx, subjectID, database.MedicalRecord, mr)
}

// RecordPrescription fingerprints a prescription into the ledger.
func (c *Core) RecordPrescription(ctx context.Context, subjectID string, p Prescription) (Receipt, error) {
	if err := validate.Check(p); err != nil {
		return Receipt{}, fmt.Errorf("validating data: %w", err)
	}

	return c.record(ctx, subjectID, database.Prescription, p)
}

// Verify checks the integrity of the whole chain.
func (c *Core) Verify(ctx context.Context) database.Report {
	report := c.ledger.VerifyChain()
	if !report.IsValid {
		c.log.Warnw("verify", "traceid", web.GetTraceID(ctx), "status", "chain failed verification",
			"rule", report.Rule, "reason", report.Reason, "total_blocks", report.TotalBlocks)
	}

	return report
}

// Trace returns the block a cross-reference hash points to.
func (c *Core) Trace(ctx context.Context, hash string) (database.Block, error) {
	if !digest.IsHex(hash) {
		return database.Block{}, fmt.Errorf("%w: %q", ErrInvalidHash, hash)
	}

	block, err := c.ledger.BlockByHash(hash)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return database.Block{}, ErrNotFound
		}
		return database.Block{}, fmt.Errorf("trace: hash[%s]: %w", hash, err)
	}

	return block, nil
}

// ConfirmPayload re-fingerprints the payload and reports whether it matches
// the data hash sealed in the block. An empty record type skips the type
// check.
func (c *Core) ConfirmPayload(ctx context.Context, hash string, recordType database.RecordType, payload any) (Confirmation, error) {
	block, err := c.Trace(ctx, hash)
	if err != nil {
		return Confirmation{}, err
	}

	if recordType != database.RecordNone && recordType != block.Header.RecordType {
		return Confirmation{}, fmt.Errorf("%w: got %s, block has %s", ErrRecordTypeDiffer, recordType, block.Header.RecordType)
	}

	payloadHash, err := digest.Hash(payload)
	if err != nil {
		return Confirmation{}, fmt.Errorf("fingerprint payload: %w", err)
	}

	conf := Confirmation{
		Hash:        block.Hash,
		Index:       block.Header.Index,
		Matches:     payloadHash == block.Header.DataHash,
		DataHash:    block.Header.DataHash,
		PayloadHash: payloadHash,
	}

	if !conf.Matches {
		c.log.Warnw("confirm", "traceid", web.GetTraceID(ctx), "status", "payload does not match block", "index", block.Header.Index)
	}

	return conf, nil
}

// =============================================================================

func (c *Core) record(ctx context.Context, subjectID string, recordType database.RecordType, payload any) (Receipt, error) {
	if subjectID == "" {
		return Receipt{}, ErrInvalidSubject
	}

	// Mining can't be abandoned once started, so this is the last point a
	// cancelled request can back out.
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	block, err := c.ledger.RecordEvent(subjectID, recordType, payload)
	if err != nil {
		return Receipt{}, fmt.Errorf("record: subject[%s]: type[%s]: %w", subjectID, recordType, err)
	}

	c.log.Infow("record", "traceid", web.GetTraceID(ctx), "index", block.Header.Index, "type", recordType, "hash", block.Hash)

	return toReceipt(block), nil
}
