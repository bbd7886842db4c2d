package controller

import (
	"sync/atomic"

	"sensor-bridge/models"
	"sensor-bridge/services/classifier"
	"sensor-bridge/services/transport"
	"sensor-bridge/utils"
	"sensor-bridge/views"
)

// LineWriter is the serial text channel.
type LineWriter interface {
	WriteLine(line string) error
}

// RouterStats counts what the router did with each result.
type RouterStats struct {
	Results  uint64
	Sent     [len(transport.Channels)]uint64
	Skipped  [len(transport.Channels)]uint64
	Failed   [len(transport.Channels)]uint64
	Lines    uint64
	LineErrs uint64
}

// OutputRouter frames each classification and delivers it on the one
// transport this build uses. It is the classifier's result callback, so it
// runs inside Dispatch and must not block.
type OutputRouter struct {
	periph transport.Peripheral
	state  func() models.ConnectionState
	framer views.ResultFramer

	console  LineWriter
	lines    *views.LineFormatter
	profiler classifier.Profiler

	stats RouterStats
}

// NewWirelessRouter delivers binary records to subscribed notify channels
// while state reports a connected central.
func NewWirelessRouter(p transport.Peripheral, state func() models.ConnectionState) *OutputRouter {
	return &OutputRouter{periph: p, state: state}
}

// NewSerialRouter writes one text line per result. With a non-nil
// profiler the line carries execution cycles instead of the class.
func NewSerialRouter(console LineWriter, lines *views.LineFormatter, profiler classifier.Profiler) *OutputRouter {
	return &OutputRouter{console: console, lines: lines, profiler: profiler}
}

// Route is a classifier.ResultFunc.
func (r *OutputRouter) Route(res models.ClassificationResult, features models.FeatureVector) {
	atomic.AddUint64(&r.stats.Results, 1)
	if r.periph != nil {
		r.notify(res, features)
		return
	}
	r.writeLine(res, features)
}

func (r *OutputRouter) notify(res models.ClassificationResult, features models.FeatureVector) {
	if r.state() != models.Connected {
		for _, c := range transport.Channels {
			atomic.AddUint64(&r.stats.Skipped[c], 1)
		}
		return
	}
	// features and class are independent: either, both, or neither may go out
	if r.periph.Subscribed(transport.ChannelFeatures) {
		if rec, ok := r.framer.FrameWithFeatures(res, features); ok {
			r.send(transport.ChannelFeatures, rec)
			if utils.L().Enabled(utils.DEBUG) {
				utils.L().Debug("sending classification with features (model=%d class=%d fv_len=%d)",
					res.ModelIndex, res.ClassID, len(rec)-models.ClassFeaturesPrefixSize)
			}
		} else {
			atomic.AddUint64(&r.stats.Skipped[transport.ChannelFeatures], 1)
		}
	} else {
		atomic.AddUint64(&r.stats.Skipped[transport.ChannelFeatures], 1)
	}

	if r.periph.Subscribed(transport.ChannelClass) {
		r.send(transport.ChannelClass, r.framer.FrameClassOnly(res))
		if utils.L().Enabled(utils.DEBUG) {
			utils.L().Debug("sending classification (model=%d class=%d)", res.ModelIndex, res.ClassID)
		}
	} else {
		atomic.AddUint64(&r.stats.Skipped[transport.ChannelClass], 1)
	}
}

func (r *OutputRouter) send(ch transport.Channel, rec []byte) {
	if err := r.periph.Notify(ch, rec); err != nil {
		atomic.AddUint64(&r.stats.Failed[ch], 1)
		utils.L().Debug("notify %s: %v", ch, err)
		return
	}
	atomic.AddUint64(&r.stats.Sent[ch], 1)
}

func (r *OutputRouter) writeLine(res models.ClassificationResult, features models.FeatureVector) {
	var line string
	if r.profiler != nil {
		line = r.lines.Cycles(res.ModelIndex, r.profiler.ModelCycles(res.ModelIndex))
	} else {
		line = r.lines.Result(res, features)
	}
	if err := r.console.WriteLine(line); err != nil {
		atomic.AddUint64(&r.stats.LineErrs, 1)
		utils.L().Debug("serial line: %v", err)
		return
	}
	atomic.AddUint64(&r.stats.Lines, 1)
}

// Stats returns a snapshot of the router counters.
func (r *OutputRouter) Stats() RouterStats {
	var s RouterStats
	s.Results = atomic.LoadUint64(&r.stats.Results)
	s.Lines = atomic.LoadUint64(&r.stats.Lines)
	s.LineErrs = atomic.LoadUint64(&r.stats.LineErrs)
	for _, c := range transport.Channels {
		s.Sent[c] = atomic.LoadUint64(&r.stats.Sent[c])
		s.Skipped[c] = atomic.LoadUint64(&r.stats.Skipped[c])
		s.Failed[c] = atomic.LoadUint64(&r.stats.Failed[c])
	}
	return s
}
