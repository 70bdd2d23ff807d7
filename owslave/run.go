// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owslave

import (
	"context"
	"errors"
)

// Run is the main loop. It returns when ctx is done, with the engine idle.
func (e *Engine) Run(ctx context.Context) error {
	e.ctx = ctx
	defer func() {
		e.ctx = context.Background()
	}()
	for {
		if err := ctx.Err(); err != nil {
			e.Idle()
			e.flush()
			return err
		}
		if err := e.Poll(); err != nil {
			e.Idle()
			e.flush()
			return err
		}
		e.hw.Wait()
	}
}

// Poll runs the command handler when a command byte is pending.
//
// It is the body of Run, for callers that drive their own loop. The only
// errors returned are from the context passed to Run.
func (e *Engine) Poll() error {
	e.flush()
	s := e.hw.DisableInterrupts()
	if !e.cmdReady || e.mode != Running {
		e.hw.RestoreInterrupts(s)
		return nil
	}
	cmd := e.cmd
	e.cmdReady = false
	e.op = opNone
	e.cur = e.txn
	e.hw.RestoreInterrupts(s)
	e.stats.commands.Add(1)
	return e.dispatch(cmd)
}

func (e *Engine) dispatch(cmd byte) error {
	err := e.handler.Command(e, cmd)
	if err == nil {
		err = e.finish()
	}
	defer e.flush()
	if err == nil {
		e.stats.completed.Add(1)
		return nil
	}
	if r, ok := IsAbort(err); ok {
		if r == ReasonDone {
			e.stats.completed.Add(1)
		}
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	e.logf("owslave: command %#02x: %v", cmd, err)
	_ = e.Abort(ReasonFailed)
	return nil
}

// finish lets the last transmission go out and ends the transaction.
func (e *Engine) finish() error {
	s, err := e.suspend()
	if err != nil {
		return err
	}
	e.cancel(ReasonDone)
	e.hw.RestoreInterrupts(s)
	return nil
}
