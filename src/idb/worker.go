package idb

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"idbstore/src/storage"
)

// task is one unit of work on the database worker.
type task struct {
	id   string
	name string
	run  func()
}

// Worker is the single dedicated executor of all database operations.
// Tasks run strictly in submission order on one goroutine, which is the
// only goroutine that ever touches a Connection or Transaction. The worker
// owns its connections, keyed by resolved file path, with a lifecycle tied
// to the embedding application.
type Worker struct {
	logger *zap.SugaredLogger

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []task
	stopped bool
	done    chan struct{}

	// conns is touched only from the worker goroutine.
	conns map[string]*storage.Connection
}

// NewWorker builds a stopped worker; call Start before submitting work.
func NewWorker(logger *zap.SugaredLogger) *Worker {
	w := &Worker{
		logger: logger,
		done:   make(chan struct{}),
		conns:  make(map[string]*storage.Connection),
	}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// Start launches the worker goroutine.
func (w *Worker) Start() {
	go w.run()
}

func (w *Worker) run() {
	for {
		w.mu.Lock()
		for len(w.queue) == 0 && !w.stopped {
			w.cond.Wait()
		}
		if len(w.queue) == 0 {
			w.mu.Unlock()
			break
		}
		next := w.queue[0]
		w.queue = w.queue[1:]
		w.mu.Unlock()

		w.logger.Debugf("Running database task %s (%s)", next.name, next.id)
		next.run()
	}
	close(w.done)
}

// Stop drains the queue, stops the worker goroutine, and closes every
// connection the worker opened. Submissions after Stop are rejected.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		<-w.done
		return nil
	}
	w.stopped = true
	w.cond.Broadcast()
	w.mu.Unlock()

	<-w.done

	var err error
	for path, conn := range w.conns {
		err = multierr.Append(err, errors.Wrapf(conn.Close(), "store %q", path))
	}
	w.conns = make(map[string]*storage.Connection)
	return err
}

// submit queues fn for execution; it reports false if the worker has been
// stopped, in which case fn will never run.
func (w *Worker) submit(id, name string, fn func()) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		w.logger.Warnf("Rejecting database task %s (%s): worker stopped", name, id)
		return false
	}
	w.queue = append(w.queue, task{id: id, name: name, run: fn})
	w.cond.Signal()
	return true
}

// connection returns the (opened) connection for path, creating it on
// first use. Must be called from the worker goroutine.
func (w *Worker) connection(path string) (*storage.Connection, storage.Status) {
	conn, ok := w.conns[path]
	if !ok {
		conn = storage.NewConnection(path, w.logger)
		w.conns[path] = conn
	}
	if status := conn.Init(); status != storage.StatusSuccess {
		return nil, status
	}
	return conn, storage.StatusSuccess
}
