//go:build gst

package ingest

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"sensor-bridge/utils"
)

// GstMicrophone captures mono S16LE audio through GStreamer. The appsink
// callback runs on a GStreamer streaming thread and plays the role of the
// PDM interrupt.
type GstMicrophone struct {
	sampleRate int
	device     string

	pipeline *gst.Pipeline
	sink     *app.Sink
	samples  uint64
}

// NewGstMicrophone captures from device (an ALSA name such as "hw:1"), or
// from the default source when device is empty.
func NewGstMicrophone(sampleRate int, device string) *GstMicrophone {
	return &GstMicrophone{sampleRate: sampleRate, device: device}
}

// GstAvailable reports whether this binary was built with GStreamer support.
func GstAvailable() bool { return true }

func (m *GstMicrophone) Start(onData func(chunk []int16)) error {
	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return fmt.Errorf("gst microphone: %w: pipeline: %v", ErrSensorInit, err)
	}

	var src *gst.Element
	if m.device != "" {
		src, err = gst.NewElement("alsasrc")
		if err == nil {
			err = src.SetProperty("device", m.device)
		}
	} else {
		src, err = gst.NewElement("autoaudiosrc")
	}
	if err != nil {
		return fmt.Errorf("gst microphone: %w: source: %v", ErrSensorInit, err)
	}
	convert, err := gst.NewElement("audioconvert")
	if err != nil {
		return fmt.Errorf("gst microphone: %w: audioconvert: %v", ErrSensorInit, err)
	}
	resample, err := gst.NewElement("audioresample")
	if err != nil {
		return fmt.Errorf("gst microphone: %w: audioresample: %v", ErrSensorInit, err)
	}
	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return fmt.Errorf("gst microphone: %w: capsfilter: %v", ErrSensorInit, err)
	}
	capsStr := fmt.Sprintf("audio/x-raw,format=S16LE,channels=1,rate=%d,layout=interleaved", m.sampleRate)
	capsfilter.SetProperty("caps", gst.NewCapsFromString(capsStr))

	sink, err := app.NewAppSink()
	if err != nil {
		return fmt.Errorf("gst microphone: %w: appsink: %v", ErrSensorInit, err)
	}
	sink.SetProperty("sync", false)

	pipeline.AddMany(src, convert, resample, capsfilter, sink.Element)
	if err := gst.ElementLinkMany(src, convert, resample, capsfilter, sink.Element); err != nil {
		return fmt.Errorf("gst microphone: %w: link: %v", ErrSensorInit, err)
	}

	chunk := make([]int16, 0, 1024)
	sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(s *app.Sink) gst.FlowReturn {
			sample := s.PullSample()
			if sample == nil {
				return gst.FlowOK
			}
			buffer := sample.GetBuffer()
			if buffer == nil {
				return gst.FlowOK
			}
			data := buffer.Map(gst.MapRead).Bytes()
			chunk = chunk[:0]
			for i := 0; i+1 < len(data); i += 2 {
				chunk = append(chunk, int16(binary.LittleEndian.Uint16(data[i:])))
			}
			buffer.Unmap()
			atomic.AddUint64(&m.samples, uint64(len(chunk)))
			onData(chunk)
			return gst.FlowOK
		},
	})

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("gst microphone: %w: play: %v", ErrSensorInit, err)
	}
	m.pipeline, m.sink = pipeline, sink
	utils.L().Info("audio source started   (source=gst, rate=%dHz, device=%q)", m.sampleRate, m.device)
	return nil
}

func (m *GstMicrophone) Close() error {
	if m.pipeline == nil {
		return nil
	}
	return m.pipeline.SetState(gst.StateNull)
}
