package views

import (
	"strconv"

	"sensor-bridge/models"
)

// LineFormatter renders one human-readable line per classification cycle
// for the serial text channel. The line reuses a fixed scratch buffer.
//
//	{"ModelNumber":0,"Classification":1,"Label":"derecha","FeatureLength":2,"FeatureVector":[5,10]}
//	{"ModelNumber":0,"Cycles":[812,1640]}
type LineFormatter struct {
	meta *models.ModelMetadata
	buf  []byte
}

// NewLineFormatter binds a formatter to optional model metadata for labels.
func NewLineFormatter(meta *models.ModelMetadata) *LineFormatter {
	return &LineFormatter{meta: meta, buf: make([]byte, 0, 512)}
}

// Result formats a classification line.
func (f *LineFormatter) Result(res models.ClassificationResult, features models.FeatureVector) string {
	b := f.buf[:0]
	b = append(b, `{"ModelNumber":`...)
	b = strconv.AppendUint(b, uint64(res.ModelIndex), 10)
	b = append(b, `,"Classification":`...)
	b = strconv.AppendUint(b, uint64(res.ClassID), 10)
	if f.meta != nil {
		b = append(b, `,"Label":`...)
		b = strconv.AppendQuote(b, f.meta.ClassName(res.ModelIndex, res.ClassID))
	}
	fv := features.Bounded()
	b = append(b, `,"FeatureLength":`...)
	b = strconv.AppendInt(b, int64(len(fv)), 10)
	b = append(b, `,"FeatureVector":[`...)
	for i, v := range fv {
		if i > 0 {
			b = append(b, ',')
		}
		b = strconv.AppendUint(b, uint64(v), 10)
	}
	b = append(b, "]}"...)
	f.buf = b
	return string(b)
}

// Cycles formats a profiling line carrying per-feature execution cycles
// instead of a classification.
func (f *LineFormatter) Cycles(model uint16, cycles []uint32) string {
	b := f.buf[:0]
	b = append(b, `{"ModelNumber":`...)
	b = strconv.AppendUint(b, uint64(model), 10)
	b = append(b, `,"Cycles":[`...)
	for i, c := range cycles {
		if i > 0 {
			b = append(b, ',')
		}
		b = strconv.AppendUint(b, uint64(c), 10)
	}
	b = append(b, "]}"...)
	f.buf = b
	return string(b)
}
