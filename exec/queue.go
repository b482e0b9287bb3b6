package exec

import (
	"fmt"

	conq "github.com/enriquebris/goconcurrentqueue"
	"go.uber.org/zap"

	"github.com/oqtopus-team/calibration-engine/core"
)

// Batch is one backend submission together with the per-program metadata
// needed to interpret its results.
type Batch struct {
	Req      *core.RunRequest
	Metadata []*core.Metadata
	ExpID    string

	exp *Experiment
}

type fifo interface {
	Enqueue(*Batch) error
	Dequeue() (*Batch, error)
	DequeueOrWaitForNextElement() (*Batch, error)
	GetLen() int
}

type conqFIFO struct {
	conq.FIFO
}

func newConqFIFO() *conqFIFO {
	return &conqFIFO{
		FIFO: *conq.NewFIFO(),
	}
}

func (c *conqFIFO) Enqueue(b *Batch) error {
	return c.FIFO.Enqueue(b)
}

func (c *conqFIFO) Dequeue() (*Batch, error) {
	tmp, err := c.FIFO.Dequeue()
	if err != nil {
		return nil, err
	}
	return tmp.(*Batch), nil
}

func (c *conqFIFO) DequeueOrWaitForNextElement() (*Batch, error) {
	tmp, err := c.FIFO.DequeueOrWaitForNextElement()
	if err != nil {
		return nil, err
	}
	return tmp.(*Batch), nil
}

func (c *conqFIFO) GetLen() int {
	return c.FIFO.GetLen()
}

// BatchQueue serializes backend submissions in arrival order.
type BatchQueue struct {
	fifo    fifo
	maxSize int
}

func NewBatchQueue(maxSize int) *BatchQueue {
	return &BatchQueue{
		fifo:    newConqFIFO(),
		maxSize: maxSize,
	}
}

func (q *BatchQueue) Enqueue(b *Batch) error {
	if q.maxSize > 0 && q.fifo.GetLen() >= q.maxSize {
		zap.L().Info(fmt.Sprintf("Failed to put batch of %s. Batch queue is full.", b.ExpID))
		return fmt.Errorf("batch queue is full (max %d)", q.maxSize)
	}
	zap.L().Debug(fmt.Sprintf("Putting batch of %s to batch queue", b.ExpID))
	return q.fifo.Enqueue(b)
}

func (q *BatchQueue) Dequeue() (*Batch, error) {
	return q.fifo.Dequeue()
}

func (q *BatchQueue) DequeueOrWait() (*Batch, error) {
	return q.fifo.DequeueOrWaitForNextElement()
}

func (q *BatchQueue) Len() int {
	return q.fifo.GetLen()
}
