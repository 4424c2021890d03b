package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

// control is the outcome of one loop step.
type control int

const (
	controlContinue control = iota
	controlRestart
	controlStop
	controlEnd
)

// run is the generation loop. It seeks the cursor to the window start and
// then steps once per candidate until a step returns something other than
// controlContinue.
func (e *Engine[S]) run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	cur := e.space.newCursor(ctx)
	w := e.Window()
	e.logger.Debug("engine started", "engine", e.id, "start", w.Start, "end", w.End)
	e.emit(e.snapshot(EventStart, nil))

	for {
		start := e.rewind()
		if err := cur.seek(start); err != nil {
			return err
		}

		ctl, found, err := e.pass(ctx, cur, start)
		if err != nil {
			return err
		}
		switch ctl {
		case controlRestart:
			e.logger.Debug("engine restarting", "engine", e.id, "start", e.StartPos())
			e.emit(e.snapshot(EventRestart, cur.candidate()))
		case controlStop:
			ev := e.snapshot(EventStop, cur.candidate())
			e.settle(StateStopped)
			e.logger.Debug("engine stopped", "engine", e.id, "real_pos", ev.Position)
			e.emit(ev)
			return nil
		case controlEnd:
			ev := e.snapshot(EventEnd, cur.candidate())
			ev.Found = found
			e.settle(StateEnded)
			e.logger.Debug("engine ended", "engine", e.id, "real_pos", ev.Position, "found", found)
			e.emit(ev)
			return nil
		default:
			f := cur.fault()
			f.Message = fmt.Sprintf("unexpected loop control %d", ctl)
			return f
		}
	}
}

// rewind prepares a pass from the window start and returns that start.
func (e *Engine[S]) rewind() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.restart = false
	e.total = e.window.Size()
	e.generated.Store(0)
	e.realPos.Store(e.window.Start - 1)
	return e.window.Start
}

// pass emits candidates from start until the loop must restart, stop or end.
func (e *Engine[S]) pass(ctx context.Context, cur cursor[S], start int64) (control, bool, error) {
	pos := start
	for generated := int64(1); ; generated++ {
		if ctl, found := e.step(ctx, cur, pos, generated); ctl != controlContinue {
			return ctl, found, nil
		}
		ok, err := cur.next()
		if err != nil {
			return controlContinue, false, err
		}
		if !ok {
			return controlContinue, false, cur.fault()
		}
		pos++
	}
}

// step handles the candidate at pos, the generated-th of this pass.
func (e *Engine[S]) step(ctx context.Context, cur cursor[S], pos, generated int64) (control, bool) {
	if e.found != nil && e.found.Load() {
		return controlEnd, false
	}
	if e.takeRestart() {
		return controlRestart, false
	}

	e.realPos.Store(pos)
	e.generated.Store(generated)
	if e.check(Generated[S]{
		EngineID:  e.id,
		Candidate: cur.candidate(),
		Position:  pos,
		Generated: generated,
		Total:     e.Total(),
	}) {
		return controlEnd, true
	}

	if e.holdOrStop(ctx, cur) {
		return controlStop, false
	}
	if e.takeRestart() {
		return controlRestart, false
	}

	e.mu.Lock()
	end, total := e.window.End, e.total
	e.mu.Unlock()
	if pos >= end || generated >= total {
		return controlEnd, false
	}
	return controlContinue, false
}

func (e *Engine[S]) takeRestart() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.restart
	e.restart = false
	return r
}

// holdOrStop blocks while a pause is requested and reports whether the loop
// must stop.
func (e *Engine[S]) holdOrStop(ctx context.Context, cur cursor[S]) bool {
	if e.paused.Load() {
		e.state.Store(int32(StatePaused))
		e.emit(e.snapshot(EventPause, cur.candidate()))

		ticker := time.NewTicker(e.poll)
		defer ticker.Stop()
		for e.paused.Load() {
			if e.stopped.Load() {
				return true
			}
			select {
			case <-ctx.Done():
				return true
			case <-ticker.C:
			}
		}
		if e.stopped.Load() {
			return true
		}
		e.state.Store(int32(StateRunning))
		e.emit(e.snapshot(EventResume, cur.candidate()))
	}
	return e.stopped.Load() || ctx.Err() != nil
}
