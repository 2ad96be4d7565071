package database

import "fmt"

// RecordType names the kind of clinical event a block fingerprints. The set
// is closed.
type RecordType string

// Set of record types a block can carry. The genesis block carries none.
const (
	RecordNone    RecordType = ""
	HealthMetric  RecordType = "HealthMetric"
	MedicalRecord RecordType = "MedicalRecord"
	Prescription  RecordType = "Prescription"
)

// RecordTypes returns the record types accepted for new events.
func RecordTypes() []RecordType {
	return []RecordType{HealthMetric, MedicalRecord, Prescription}
}

// ParseRecordType converts a string into a record type, rejecting anything
// outside the closed set.
func ParseRecordType(s string) (RecordType, error) {
	rt := RecordType(s)
	if !rt.IsValid() {
		return RecordNone, fmt.Errorf("invalid record type %q", s)
	}

	return rt, nil
}

// IsValid reports whether the record type is one that can be recorded.
func (rt RecordType) IsValid() bool {
	switch rt {
	case HealthMetric, MedicalRecord, Prescription:
		return true
	}

	return false
}

// String implements the fmt.Stringer interface.
func (rt RecordType) String() string {
	return string(rt)
}
