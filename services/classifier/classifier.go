// Package classifier holds the knowledge-pack runtimes the bridge can drive.
//
// A runtime is opaque: it keeps its own sliding window and decides when it
// has enough history to report. Reports arrive through the ResultFunc
// registered at Init, called synchronously from inside Run.
package classifier

import (
	"errors"

	"sensor-bridge/models"
)

// ErrNotInitialised is returned by Run before Init succeeded.
var ErrNotInitialised = errors.New("classifier not initialised")

// ResultFunc receives one classification and, when the runtime produces
// one, the feature vector behind it. The features slice is only valid for
// the duration of the call.
type ResultFunc func(result models.ClassificationResult, features models.FeatureVector)

// Classifier is the knowledge-pack runtime contract.
type Classifier interface {
	Init(onResult ResultFunc) error
	// Run feeds one frame (or one audio sample) to the runtime.
	Run(frame []int16) error
	Close() error
}

// Profiler is implemented by runtimes that count execution cycles per
// feature function.
type Profiler interface {
	ModelCycles(model uint16) []uint32
}
