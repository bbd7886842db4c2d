//go:build !gst

package ingest

import "fmt"

// GstMicrophone is unavailable in builds without the gst tag.
type GstMicrophone struct{}

// NewGstMicrophone returns a source whose Start always fails.
func NewGstMicrophone(sampleRate int, device string) *GstMicrophone {
	return &GstMicrophone{}
}

// GstAvailable reports whether this binary was built with GStreamer support.
func GstAvailable() bool { return false }

func (m *GstMicrophone) Start(onData func(chunk []int16)) error {
	return fmt.Errorf("gst microphone: %w: built without the gst tag", ErrSensorInit)
}

func (m *GstMicrophone) Close() error { return nil }
