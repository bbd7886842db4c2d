package models

// ClassUnknown is the class id reserved for "no match".
const ClassUnknown uint16 = 0

// ClassificationResult is one answer from the knowledge pack.
type ClassificationResult struct {
	ModelIndex uint16 `json:"model"`
	ClassID    uint16 `json:"class"`
}

// IsUnknown reports whether the classifier declined to pick a class.
func (r ClassificationResult) IsUnknown() bool { return r.ClassID == ClassUnknown }

// MaxVectorSize is the largest feature vector a record can carry: the
// 128-byte notification buffer minus the 6-byte model/class/length prefix.
const MaxVectorSize = RecordBufferSize - ClassFeaturesPrefixSize

// Output record geometry (little-endian uint16 fields).
const (
	ClassOnlySize           = 4
	ClassFeaturesPrefixSize = 6
	RecordBufferSize        = 128
)

// FeatureVector is the byte vector that produced a result. Its length is
// data dependent and always carried explicitly.
type FeatureVector []byte

// Bounded returns the vector truncated to MaxVectorSize.
func (v FeatureVector) Bounded() FeatureVector {
	if len(v) > MaxVectorSize {
		return v[:MaxVectorSize]
	}
	return v
}
