package ircpresence

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// outputQueue implements the rfc1459-style rate-limited output queue (§ Rate-limited output) with
// a golang.org/x/time/rate token bucket: one token is refilled every messagePenalty and the bucket
// holds messageBurst/messagePenalty tokens, so up to messageBurst worth of lines go out back to
// back before the queue stalls. Dropping the penalty once an operator is done by lifting the
// limiter's rate to rate.Inf (see setFloodExempt).
type outputQueue struct {
	limiter *rate.Limiter
	penalty time.Duration

	send func(line string)

	lines  chan string
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// newOutputQueue starts a queue that calls send for each enqueued line, spaced at least penalty
// apart but allowed to burst ahead by up to burst worth of lines.
func newOutputQueue(penalty, burst time.Duration, send func(line string)) *outputQueue {
	if penalty <= 0 {
		penalty = time.Nanosecond
	}
	burstN := int(burst / penalty)
	if burstN < 1 {
		burstN = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &outputQueue{
		limiter: rate.NewLimiter(rate.Every(penalty), burstN),
		penalty: penalty,
		send:    send,
		lines:   make(chan string, 4096),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *outputQueue) run() {
	defer close(q.done)
	for {
		select {
		case line := <-q.lines:
			if err := q.limiter.Wait(q.ctx); err != nil {
				return
			}
			q.send(line)
		case <-q.ctx.Done():
			return
		}
	}
}

// enqueue queues line for eventual, rate-limited delivery. It never blocks the caller beyond the
// channel buffer filling, matching the fire-and-forget nature of the source's sendLine.
func (q *outputQueue) enqueue(line string) {
	select {
	case q.lines <- line:
	case <-q.ctx.Done():
	}
}

// setFloodExempt removes rate limiting entirely, used once an operator's MODE +o is confirmed
// (RPL_YOUREOPER), matching messagePenalty being overridden to 0 in the source.
func (q *outputQueue) setFloodExempt(exempt bool) {
	if exempt {
		q.limiter.SetLimit(rate.Inf)
	} else {
		q.limiter.SetLimit(rate.Every(q.penalty))
	}
}

// stop terminates the queue's delivery goroutine. Queued-but-undelivered lines are dropped.
func (q *outputQueue) stop() {
	q.cancel()
	<-q.done
}
