package auditgrp

import (
	"encoding/json"
	"time"

	"github.com/clinicaudit/ledger/business/core/audit"
	"github.com/clinicaudit/ledger/business/sys/validate"
	"github.com/clinicaudit/ledger/foundation/ledger/database"
)

type newHealthMetric struct {
	SubjectID string             `json:"subject_id" validate:"required"`
	Data      audit.HealthMetric `json:"data"`
}

// Validate checks the data in the model is considered clean.
func (m newHealthMetric) Validate() error {
	return validate.Check(m)
}

type newMedicalRecord struct {
	SubjectID string              `json:"subject_id" validate:"required"`
	Data      audit.MedicalRecord `json:"data"`
}

// Validate checks the data in the model is considered clean.
func (m newMedicalRecord) Validate() error {
	return validate.Check(m)
}

type newPrescription struct {
	SubjectID string             `json:"subject_id" validate:"required"`
	Data      audit.Prescription `json:"data"`
}

// Validate checks the data in the model is considered clean.
func (m newPrescription) Validate() error {
	return validate.Check(m)
}

type confirmation struct {
	RecordType string          `json:"record_type,omitempty" validate:"omitempty,record_type"`
	Payload    json.RawMessage `json:"payload" validate:"required"`
}

// Validate checks the data in the model is considered clean.
func (m confirmation) Validate() error {
	return validate.Check(m)
}

type block struct {
	Index        uint64              `json:"index"`
	TimeStamp    time.Time           `json:"timestamp"`
	SubjectID    string              `json:"subject_id"`
	RecordType   database.RecordType `json:"record_type"`
	DataHash     string              `json:"data_hash"`
	PreviousHash string              `json:"previous_hash"`
	MerkleRoot   string              `json:"merkle_root"`
	Nonce        uint64              `json:"nonce"`
	Hash         string              `json:"hash"`
}

func toBlock(b database.Block) block {
	return block{
		Index:        b.Header.Index,
		TimeStamp:    b.Header.TimeStamp,
		SubjectID:    b.Header.SubjectID,
		RecordType:   b.Header.RecordType,
		DataHash:     b.Header.DataHash,
		PreviousHash: b.Header.PreviousHash,
		MerkleRoot:   b.Header.MerkleRoot,
		Nonce:        b.Header.Nonce,
		Hash:         b.Hash,
	}
}

func toBlocks(blocks []database.Block) []block {
	out := make([]block, len(blocks))
	for i, b := range blocks {
		out[i] = toBlock(b)
	}
	return out
}
