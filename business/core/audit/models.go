package audit

import (
	"encoding/json"
	"time"

	"github.com/clinicaudit/ledger/foundation/ledger/database"
)

// HealthMetric is a single measurement taken for a subject.
type HealthMetric struct {
	MetricID   string    `json:"metric_id" validate:"required"`
	Metric     string    `json:"metric" validate:"required"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit" validate:"required"`
	MeasuredAt time.Time `json:"measured_at" validate:"required"`
	DeviceID   string    `json:"device_id,omitempty"`
}

// MedicalRecord is a clinical note or diagnosis written for a subject.
type MedicalRecord struct {
	RecordID  string    `json:"record_id" validate:"required"`
	Author    string    `json:"author" validate:"required"`
	Diagnosis string    `json:"diagnosis" validate:"required"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at" validate:"required"`
}

// Prescription is a medication order written for a subject.
type Prescription struct {
	PrescriptionID string    `json:"prescription_id" validate:"required"`
	PrescribedBy   string    `json:"prescribed_by" validate:"required"`
	Medication     string    `json:"medication" validate:"required"`
	Dosage         string    `json:"dosage" validate:"required"`
	Frequency      string    `json:"frequency,omitempty"`
	Refills        int       `json:"refills" validate:"gte=0"`
	IssuedAt       time.Time `json:"issued_at" validate:"required"`
}

// NewEvent is an untyped clinical event. The payload is fingerprinted as
// given, so callers must submit the same document when confirming it.
type NewEvent struct {
	SubjectID  string          `json:"subject_id" validate:"required"`
	RecordType string          `json:"record_type" validate:"required,record_type"`
	Payload    json.RawMessage `json:"payload" validate:"required"`
}

// Receipt is what a caller keeps for a recorded event. Hash is the
// cross-reference stored on the clinical entity.
type Receipt struct {
	Hash       string              `json:"hash"`
	Index      uint64              `json:"index"`
	Timestamp  time.Time           `json:"timestamp"`
	RecordType database.RecordType `json:"record_type"`
}

// Confirmation reports whether a payload matches the fingerprint sealed in
// the block a cross-reference points to.
type Confirmation struct {
	Hash        string `json:"hash"`
	Index       uint64 `json:"index"`
	Matches     bool   `json:"matches"`
	DataHash    string `json:"data_hash"`
	PayloadHash string `json:"payload_hash"`
}

func toReceipt(block database.Block) Receipt {
	return Receipt{
		Hash:       block.Hash,
		Index:      block.Header.Index,
		Timestamp:  block.Header.TimeStamp,
		RecordType: block.Header.RecordType,
	}
}
