package enrich

import (
	"context"
	"fmt"
	"sync"

	pkgerrors "github.com/wishlane/wishlane-backend/pkg/errors"
	"github.com/wishlane/wishlane-backend/pkg/logger"
)

// Dispatcher hands an enrichment job off for asynchronous execution. The HTTP
// handler returns as soon as the job is accepted.
type Dispatcher interface {
	Enqueue(ctx context.Context, job Job) error
	Close()
}

type publisher interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error)
}

// brokerDispatcher publishes jobs to the message broker; a separate worker
// process consumes them.
type brokerDispatcher struct {
	pub  publisher
	logg *logger.Logger
}

// NewBrokerDispatcher builds the broker-backed dispatcher.
func NewBrokerDispatcher(pub publisher, logg *logger.Logger) (Dispatcher, error) {
	if pub == nil {
		return nil, fmt.Errorf("publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &brokerDispatcher{pub: pub, logg: logg}, nil
}

func (d *brokerDispatcher) Enqueue(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid enrichment job")
	}

	data, err := job.Encode()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding enrichment job")
	}

	msgID, err := d.pub.Publish(ctx, data, map[string]string{"kind": string(job.Kind)})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publishing enrichment job")
	}

	ctx = d.logg.WithItemID(ctx, job.ItemID.String())
	d.logg.Info(ctx, "enrichment job published: "+msgID)
	return nil
}

func (d *brokerDispatcher) Close() {}

// poolDispatcher runs jobs on an in-process bounded worker pool. It is the
// single-binary mode used when no broker is configured; a full queue is
// reported as backpressure instead of blocking the request.
type poolDispatcher struct {
	pipeline *Pipeline
	jobs     chan Job
	logg     *logger.Logger
	wg       sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPoolDispatcher starts the worker pool.
func NewPoolDispatcher(pipeline *Pipeline, workers, queueSize int, logg *logger.Logger) (Dispatcher, error) {
	if pipeline == nil {
		return nil, fmt.Errorf("pipeline required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 64
	}

	d := &poolDispatcher{
		pipeline: pipeline,
		jobs:     make(chan Job, queueSize),
		logg:     logg,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d, nil
}

func (d *poolDispatcher) worker() {
	defer d.wg.Done()
	for job := range d.jobs {
		// Jobs run detached from the originating request context.
		ctx := context.Background()
		if err := d.pipeline.Run(ctx, job); err != nil {
			ctx = d.logg.WithItemID(ctx, job.ItemID.String())
			d.logg.Error(ctx, "enrichment run could not start", err)
		}
	}
}

func (d *poolDispatcher) Enqueue(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid enrichment job")
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return pkgerrors.New(pkgerrors.CodeInternal, "dispatcher is shut down")
	}

	select {
	case d.jobs <- job:
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeDependency, "enrichment queue is full, try again shortly")
	}
}

// Close stops accepting jobs and waits for in-flight runs to finish.
func (d *poolDispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()
	d.wg.Wait()
}
