// Package worker replays document writes that failed on the interactive
// path.
package worker

import (
	"context"
	"fmt"
	"time"

	"novoape/internal/amqp"
	"novoape/internal/docstore"
	"novoape/internal/log"
	"novoape/internal/metrics"
	"novoape/internal/persist"
)

// Replayer re-applies failed writes to the document store.
type Replayer struct {
	store   docstore.Writer
	metrics *metrics.Metrics
	logger  *log.Logger
	maxAge  time.Duration
	now     func() time.Time
}

// NewReplayer returns a replayer. Messages older than maxAge are dropped
// because a newer write may already have reached the document; zero keeps
// every message.
func NewReplayer(store docstore.Writer, m *metrics.Metrics, logger *log.Logger, maxAge time.Duration) *Replayer {
	if logger == nil {
		logger = log.Default(log.ComponentWorker)
	}
	return &Replayer{
		store:   store,
		metrics: m,
		logger:  logger.WithComponent(log.ComponentWorker),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// HandleWriteFailed applies one message. A returned error requeues it. When
// the store keeps write stamps, a message older than the document's last
// write is dropped.
func (r *Replayer) HandleWriteFailed(ctx context.Context, msg *amqp.WriteFailedMessage) error {
	path := docstore.Path(msg.Path)
	if err := path.Validate(true); err != nil {
		r.logger.WarnContext(ctx, "Dropping failed write with bad path",
			log.FieldDocPath, msg.Path,
			log.FieldError, err.Error())
		return nil
	}

	if r.maxAge > 0 && r.now().Sub(msg.Timestamp) > r.maxAge {
		r.logger.WarnContext(ctx, "Dropping stale failed write",
			log.FieldDocPath, msg.Path,
			"age", r.now().Sub(msg.Timestamp).Round(time.Second))
		return nil
	}

	if v, ok := r.store.(docstore.Versioned); ok {
		written, err := v.WrittenAt(ctx, path)
		if err != nil {
			return fmt.Errorf("read write stamp %s: %w", msg.Path, err)
		}
		if written.After(msg.Timestamp) {
			r.metrics.ObserveSupersededReplay()
			r.logger.InfoContext(ctx, "Skipping superseded failed write",
				log.FieldOperation, msg.Op,
				log.FieldDocPath, msg.Path,
				log.FieldUserID, msg.UserID)
			return nil
		}
	}
	// Stamp with the original attempt so a later failed write of the same
	// path still replays over this one.
	ctx = docstore.WithWriteTime(ctx, msg.Timestamp)

	var err error
	switch persist.Op(msg.Op) {
	case persist.OpSave:
		err = r.store.Set(ctx, path, msg.Body)
	case persist.OpMerge:
		err = r.store.Merge(ctx, path, msg.Body)
	case persist.OpDelete:
		err = r.store.Delete(ctx, path)
	default:
		r.logger.WarnContext(ctx, "Dropping failed write with unknown op", log.FieldOperation, msg.Op)
		return nil
	}
	r.metrics.ObserveReplay(err)
	if err != nil {
		return fmt.Errorf("replay %s %s: %w", msg.Op, msg.Path, err)
	}

	r.logger.InfoContext(ctx, "Replayed failed write",
		log.FieldOperation, msg.Op,
		log.FieldDocPath, msg.Path,
		log.FieldUserID, msg.UserID)
	return nil
}
