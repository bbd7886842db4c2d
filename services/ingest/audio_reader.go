package ingest

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"sensor-bridge/utils"
)

// AudioSource delivers microphone samples from outside the main loop, the
// way the PDM interrupt does on the device.
type AudioSource interface {
	Start(onData func(chunk []int16)) error
	Close() error
}

// SimulatedPDM posts chunks of a tone plus noise at the configured sample
// rate from its own goroutine.
type SimulatedPDM struct {
	sampleRate int
	chunk      int
	period     time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSimulatedPDM creates a source that emits chunkSamples samples per
// callback, paced at sampleRate.
func NewSimulatedPDM(sampleRate, chunkSamples int) *SimulatedPDM {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	if chunkSamples <= 0 {
		chunkSamples = 256
	}
	return &SimulatedPDM{
		sampleRate: sampleRate,
		chunk:      chunkSamples,
		period:     time.Duration(chunkSamples) * time.Second / time.Duration(sampleRate),
	}
}

func (p *SimulatedPDM) Start(onData func(chunk []int16)) error {
	if onData == nil {
		return fmt.Errorf("simulated pdm: %w: nil callback", ErrSensorInit)
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Add(1)
	go p.run(ctx, onData)
	utils.L().Info("audio source started   (source=sim, rate=%dHz, chunk=%d)", p.sampleRate, p.chunk)
	return nil
}

func (p *SimulatedPDM) run(ctx context.Context, onData func([]int16)) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.period)
	defer ticker.Stop()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	buf := make([]int16, p.chunk)
	var n int
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for i := range buf {
				t := float64(n) / float64(p.sampleRate)
				v := 6000*math.Sin(2*math.Pi*440*t) + (rng.Float64()*2-1)*800
				buf[i] = int16(v)
				n++
			}
			onData(buf)
		}
	}
}

func (p *SimulatedPDM) Close() error {
	if p.cancel != nil {
		p.cancel()
		p.wg.Wait()
	}
	return nil
}
