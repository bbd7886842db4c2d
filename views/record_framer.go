package views

import (
	"encoding/binary"
	"fmt"

	"sensor-bridge/models"
)

// Notification wire format, all fields little-endian uint16:
//
//	class-only:     model | class
//	class+features: model | class | fv_len | fv[fv_len]
//
// ResultFramer owns two fixed buffers and re-encodes into them for every
// result. Returned slices alias those buffers and are only valid until the
// next Frame* call.
type ResultFramer struct {
	classOnly    [models.ClassOnlySize]byte
	withFeatures [models.RecordBufferSize]byte
}

// FrameClassOnly encodes the 4-byte class-only record. It never depends on
// feature availability.
func (f *ResultFramer) FrameClassOnly(res models.ClassificationResult) []byte {
	putPrefix(f.classOnly[:], res)
	return f.classOnly[:]
}

// FrameWithFeatures encodes the class+features record. It returns false,
// and no bytes, when features is empty. Exactly len(features) bytes are
// copied (capped at MaxVectorSize); the rest of the buffer is not touched
// and not returned.
func (f *ResultFramer) FrameWithFeatures(res models.ClassificationResult, features models.FeatureVector) ([]byte, bool) {
	if len(features) == 0 {
		return nil, false
	}
	fv := features.Bounded()
	putPrefix(f.withFeatures[:], res)
	binary.LittleEndian.PutUint16(f.withFeatures[4:6], uint16(len(fv)))
	n := copy(f.withFeatures[models.ClassFeaturesPrefixSize:], fv)
	return f.withFeatures[:models.ClassFeaturesPrefixSize+n], true
}

func putPrefix(buf []byte, res models.ClassificationResult) {
	binary.LittleEndian.PutUint16(buf[0:2], res.ModelIndex)
	binary.LittleEndian.PutUint16(buf[2:4], res.ClassID)
}

// ─── decoding (receivers and tests) ─────────────────────────────────────

// DecodeClassOnly parses a class-only record.
func DecodeClassOnly(b []byte) (models.ClassificationResult, error) {
	if len(b) != models.ClassOnlySize {
		return models.ClassificationResult{}, fmt.Errorf("class-only record: want %d bytes, got %d",
			models.ClassOnlySize, len(b))
	}
	return models.ClassificationResult{
		ModelIndex: binary.LittleEndian.Uint16(b[0:2]),
		ClassID:    binary.LittleEndian.Uint16(b[2:4]),
	}, nil
}

// DecodeWithFeatures parses a class+features record. Bytes beyond the
// declared length are ignored.
func DecodeWithFeatures(b []byte) (models.ClassificationResult, models.FeatureVector, error) {
	if len(b) < models.ClassFeaturesPrefixSize {
		return models.ClassificationResult{}, nil, fmt.Errorf("features record: short header (%d bytes)", len(b))
	}
	res := models.ClassificationResult{
		ModelIndex: binary.LittleEndian.Uint16(b[0:2]),
		ClassID:    binary.LittleEndian.Uint16(b[2:4]),
	}
	n := int(binary.LittleEndian.Uint16(b[4:6]))
	if n > models.MaxVectorSize || models.ClassFeaturesPrefixSize+n > len(b) {
		return res, nil, fmt.Errorf("features record: length %d exceeds payload %d", n, len(b)-models.ClassFeaturesPrefixSize)
	}
	fv := make(models.FeatureVector, n)
	copy(fv, b[models.ClassFeaturesPrefixSize:models.ClassFeaturesPrefixSize+n])
	return res, fv, nil
}
