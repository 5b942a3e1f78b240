package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hypebeast/go-osc/osc"

	"github.com/pulsebridge/pulsebridge/internal/command"
	"github.com/pulsebridge/pulsebridge/internal/infrastructure/logging"
	"github.com/pulsebridge/pulsebridge/internal/registry"
)

// Defaults when the config leaves pool sizing zero.
const (
	defaultWorkers   = 4
	defaultQueueSize = 64

	// commandTimeout bounds one device invocation. A wedged device
	// connection must not pin a worker forever.
	commandTimeout = 5 * time.Second
)

// Recorder receives a record of every device invocation for telemetry.
// Implementations must not block.
type Recorder interface {
	RecordCommand(device, kind string, speed float64)
}

// job is one device invocation waiting for a worker.
type job struct {
	device registry.Actuator
	name   string
	cmd    command.Command
}

// Dispatcher turns incoming control packets into device invocations.
// It satisfies osc.Dispatcher, so it plugs straight into the UDP
// server's packet loop.
//
// Parsing and resolution happen on the receive path; the invocations
// themselves run on a bounded worker pool, so one slow device never
// stalls packet intake. When the queue is full, new invocations are
// dropped and counted. Later packets for the same device supersede
// dropped ones anyway.
type Dispatcher struct {
	reg      *registry.Registry
	logger   *logging.Logger
	recorder Recorder

	workers int
	queue   chan job
	wg      sync.WaitGroup

	dropped atomic.Uint64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRecorder attaches a telemetry recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// New creates a dispatcher reading device targets from the registry.
// Workers and queueSize fall back to defaults when zero.
func New(reg *registry.Registry, workers, queueSize int, logger *logging.Logger, opts ...Option) *Dispatcher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	d := &Dispatcher{
		reg:     reg,
		logger:  logger,
		workers: workers,
		queue:   make(chan job, queueSize),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the worker pool. Workers exit when ctx is cancelled;
// Stop waits for them.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
	d.logger.Debug("dispatch pool started", "workers", d.workers, "queue", cap(d.queue))
}

// Stop blocks until all workers have drained out. Call after cancelling
// the context passed to Start.
func (d *Dispatcher) Stop() {
	d.wg.Wait()
}

// Dropped returns the number of invocations discarded because the
// queue was full.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Dispatch routes one incoming packet. Bundles are unpacked
// recursively; anything else is a single message.
func (d *Dispatcher) Dispatch(packet osc.Packet) {
	switch p := packet.(type) {
	case *osc.Message:
		d.handleMessage(p)
	case *osc.Bundle:
		for _, msg := range p.Messages {
			d.handleMessage(msg)
		}
		for _, bundle := range p.Bundles {
			d.Dispatch(bundle)
		}
	}
}

// handleMessage parses one message and fans its command out to every
// resolved device. Malformed messages are logged and dropped; the
// stream must survive any input.
func (d *Dispatcher) handleMessage(msg *osc.Message) {
	bc, err := command.Parse(msg.Address, msg.Arguments)
	if err != nil {
		d.logger.Debug("dropping unparseable message",
			"address", msg.Address,
			"error", err,
		)
		return
	}

	targets := d.reg.Snapshot().Resolve(bc.Set)
	if len(targets) == 0 {
		d.logger.Debug("no devices match", "set", bc.Set, "command", bc.Command.Kind)
		return
	}

	for _, dev := range targets {
		d.enqueue(job{device: dev, name: dev.Name(), cmd: bc.Command})
	}
}

func (d *Dispatcher) enqueue(j job) {
	select {
	case d.queue <- j:
	default:
		d.dropped.Add(1)
		d.logger.Warn("dispatch queue full, dropping invocation",
			"device", j.name,
			"command", j.cmd.Kind,
		)
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-d.queue:
			d.invoke(ctx, j)
		}
	}
}

// invoke runs one command against one device. Failures are logged, not
// propagated; a gone device must not disturb the rest of the stream.
func (d *Dispatcher) invoke(ctx context.Context, j job) {
	cctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	var err error
	switch j.cmd.Kind {
	case command.KindStop:
		err = j.device.Stop(cctx)
	case command.KindVibrate:
		err = j.device.Vibrate(cctx, j.cmd.Speed)
	case command.KindVibrateMap:
		err = j.device.VibrateMotor(cctx, j.cmd.Motor, j.cmd.Speed)
	}
	if err != nil {
		d.logger.Warn("device command failed",
			"device", j.name,
			"command", j.cmd.Kind,
			"error", err,
		)
		return
	}

	if d.recorder != nil {
		d.recorder.RecordCommand(j.name, j.cmd.Kind.String(), j.cmd.Speed)
	}
}
