package engine

import "sync/atomic"

// Display is the full-buffer repaint capability: Draw(frame) invoked once
// per Repaint event rather than per changed cell, favoring simple backends
// over incremental ones.
type Display interface {
	Draw(frame []bool)
}

// Audio is the tone-producing capability, invoked on receipt of the
// corresponding timer event.
type Audio interface {
	PlayTone()
	StopTone()
}

// Input is the keypad-polling capability, sampled once per executor cycle.
type Input interface {
	GetKeysDown() map[byte]struct{}
}

// KeyWaiter is an optional Input capability: a backend may implement it to
// supply its own press-then-release wait, rather than having the Executor
// synthesize the wait from repeated GetKeysDown polls.
type KeyWaiter interface {
	WaitForKey(shutdown *atomic.Bool) (byte, bool)
}
