package classifier

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"sensor-bridge/models"
	"sensor-bridge/utils"
)

// Worker protocol: every message is a 4-byte big-endian length followed by
// a msgpack map. The bridge sends one request per frame and waits for the
// reply carrying the same seq.
const (
	opInit = "init"
	opRun  = "run"

	maxMessageSize = 1 << 20

	defaultMaxTimeouts = 8
)

// ErrWorkerGone is returned once the worker has stopped answering. The
// classifier does not recover from it; Run fails fast until Close.
var ErrWorkerGone = errors.New("knowledge-pack worker gone")

type workerRequest struct {
	Op    string  `msgpack:"op"`
	Seq   uint64  `msgpack:"seq"`
	Frame []int16 `msgpack:"frame,omitempty"`
}

type workerReply struct {
	Seq      uint64   `msgpack:"seq"`
	Ready    bool     `msgpack:"ready"`
	Model    uint16   `msgpack:"model"`
	Class    uint16   `msgpack:"class"`
	Features []byte   `msgpack:"features"`
	Cycles   []uint32 `msgpack:"cycles"`
	Error    string   `msgpack:"error"`
}

// ProcessConfig describes the knowledge-pack worker to spawn. Timeout
// bounds a whole Run: writing the request and reading the reply.
// MaxTimeouts consecutive timeouts mark the worker gone (default 8).
type ProcessConfig struct {
	Command     string
	Args        []string
	Env         []string
	Timeout     time.Duration
	MaxTimeouts int
}

// ProcessClassifier runs a vendor knowledge pack in a child process and
// drives it synchronously, one frame per request.
type ProcessClassifier struct {
	cfg      ProcessConfig
	onResult ResultFunc

	cmd     *exec.Cmd
	stdin   *os.File
	out     []byte
	replies chan workerReply
	readErr atomic.Pointer[error]

	seq      uint64
	cycles   map[uint16][]uint32
	inARow   int
	gone     bool
	timeouts uint64
	stale    uint64
	wg       sync.WaitGroup
}

// NewProcessClassifier validates cfg. The worker starts in Init.
func NewProcessClassifier(cfg ProcessConfig) (*ProcessClassifier, error) {
	if cfg.Command == "" {
		return nil, errors.New("process classifier: command is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 50 * time.Millisecond
	}
	if cfg.MaxTimeouts <= 0 {
		cfg.MaxTimeouts = defaultMaxTimeouts
	}
	return &ProcessClassifier{
		cfg:     cfg,
		replies: make(chan workerReply, 4),
		cycles:  make(map[uint16][]uint32),
	}, nil
}

func (p *ProcessClassifier) Init(onResult ResultFunc) error {
	cmd := exec.Command(p.cfg.Command, p.cfg.Args...)
	if len(p.cfg.Env) > 0 {
		cmd.Env = append(cmd.Environ(), p.cfg.Env...)
	}
	// an os.Pipe write end honours SetWriteDeadline; cmd.StdinPipe does not
	childIn, stdin, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("process classifier: stdin: %w", err)
	}
	cmd.Stdin = childIn
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		childIn.Close()
		stdin.Close()
		return fmt.Errorf("process classifier: stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		childIn.Close()
		stdin.Close()
		return fmt.Errorf("process classifier: start %s: %w", p.cfg.Command, err)
	}
	childIn.Close()
	p.cmd, p.stdin = cmd, stdin
	p.replies = make(chan workerReply, 4)
	p.gone, p.inARow = false, 0

	p.wg.Add(1)
	go p.readReplies(stdout)

	p.onResult = nil
	if _, err := p.roundTrip(workerRequest{Op: opInit}); err != nil {
		_ = p.Close()
		return fmt.Errorf("process classifier: init handshake: %w", err)
	}
	p.onResult = onResult
	utils.L().Info("classifier ready       (backend=process, command=%s, pid=%d)", p.cfg.Command, cmd.Process.Pid)
	return nil
}

// Run sends one frame and waits, bounded by the configured timeout, for the
// worker's reply. A ready reply is reported through the ResultFunc.
func (p *ProcessClassifier) Run(frame []int16) error {
	if p.onResult == nil {
		return ErrNotInitialised
	}
	reply, err := p.roundTrip(workerRequest{Op: opRun, Frame: frame})
	if err != nil {
		return err
	}
	if len(reply.Cycles) > 0 {
		p.cycles[reply.Model] = append(p.cycles[reply.Model][:0], reply.Cycles...)
	}
	if reply.Ready {
		p.onResult(models.ClassificationResult{ModelIndex: reply.Model, ClassID: reply.Class},
			models.FeatureVector(reply.Features).Bounded())
	}
	return nil
}

func (p *ProcessClassifier) roundTrip(req workerRequest) (workerReply, error) {
	if p.gone {
		return workerReply{}, ErrWorkerGone
	}
	p.seq++
	req.Seq = p.seq
	deadline := time.Now().Add(p.cfg.Timeout)
	if err := p.send(req, deadline); err != nil {
		// a partial write leaves the stream unframed
		p.markGone(err)
		return workerReply{}, fmt.Errorf("%w: %v", ErrWorkerGone, err)
	}

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()
	for {
		select {
		case r, ok := <-p.replies:
			if !ok {
				err := errors.New("stdout closed")
				if e := p.readErr.Load(); e != nil {
					err = *e
				}
				p.markGone(err)
				return workerReply{}, fmt.Errorf("process classifier: %w: %v", ErrWorkerGone, err)
			}
			if r.Seq != req.Seq {
				// reply to a request that already timed out
				atomic.AddUint64(&p.stale, 1)
				continue
			}
			p.inARow = 0
			if r.Error != "" {
				return r, fmt.Errorf("process classifier: worker: %s", r.Error)
			}
			return r, nil
		case <-timer.C:
			atomic.AddUint64(&p.timeouts, 1)
			p.inARow++
			if p.inARow >= p.cfg.MaxTimeouts {
				p.markGone(fmt.Errorf("%d consecutive timeouts", p.inARow))
			}
			return workerReply{}, fmt.Errorf("process classifier: no reply to seq %d within %s", req.Seq, p.cfg.Timeout)
		}
	}
}

func (p *ProcessClassifier) markGone(reason error) {
	if !p.gone {
		utils.L().Error("process classifier: worker gone: %v", reason)
	}
	p.gone = true
}

// send writes one length-prefixed message in a single write bounded by
// deadline.
func (p *ProcessClassifier) send(req workerRequest, deadline time.Time) error {
	payload, err := msgpack.Marshal(&req)
	if err != nil {
		return fmt.Errorf("process classifier: marshal: %w", err)
	}
	p.out = binary.BigEndian.AppendUint32(p.out[:0], uint32(len(payload)))
	p.out = append(p.out, payload...)
	if err := p.stdin.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("process classifier: write deadline: %w", err)
	}
	if _, err := p.stdin.Write(p.out); err != nil {
		return fmt.Errorf("process classifier: write request: %w", err)
	}
	return nil
}

func (p *ProcessClassifier) readReplies(stdout io.Reader) {
	defer p.wg.Done()
	defer close(p.replies)

	r := bufio.NewReader(stdout)
	var lengthBuf [4]byte
	for {
		if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
			if !errors.Is(err, io.EOF) {
				p.readErr.Store(&err)
			}
			return
		}
		n := binary.BigEndian.Uint32(lengthBuf[:])
		if n > maxMessageSize {
			err := fmt.Errorf("reply of %d bytes exceeds %d", n, maxMessageSize)
			p.readErr.Store(&err)
			return
		}
		data := make([]byte, n)
		if _, err := io.ReadFull(r, data); err != nil {
			p.readErr.Store(&err)
			return
		}
		var reply workerReply
		if err := msgpack.Unmarshal(data, &reply); err != nil {
			utils.L().Warn("process classifier: bad reply (%d bytes): %v", n, err)
			continue
		}
		select {
		case p.replies <- reply:
		default:
			atomic.AddUint64(&p.stale, 1)
		}
	}
}

// ModelCycles returns the cycle counts the worker last reported for model.
func (p *ProcessClassifier) ModelCycles(model uint16) []uint32 { return p.cycles[model] }

// Gone reports whether the worker has been given up on.
func (p *ProcessClassifier) Gone() bool { return p.gone }

// Stats returns timed-out requests and discarded late replies.
func (p *ProcessClassifier) Stats() (timeouts, stale uint64) {
	return atomic.LoadUint64(&p.timeouts), atomic.LoadUint64(&p.stale)
}

func (p *ProcessClassifier) Close() error {
	if p.cmd == nil {
		return nil
	}
	_ = p.stdin.Close()
	if p.gone {
		// a stalled worker will not notice stdin closing
		_ = p.cmd.Process.Kill()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		_ = p.cmd.Process.Kill()
		<-done
	}
	err := p.cmd.Wait()
	p.cmd = nil
	return err
}
