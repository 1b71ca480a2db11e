package serverconn

import "time"

// deadline is a single re-armable timer. It is touched only from the
// connection's control loop, so no locking is required to keep arm/disarm
// race-free. Disarming an already-disarmed deadline is a no-op, matching
// the idempotent-cancellation requirement.
type deadline struct {
	timer *time.Timer
}

func (d *deadline) arm(dur time.Duration) {
	d.disarm()
	d.timer = time.NewTimer(dur)
}

func (d *deadline) disarm() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// C returns the deadline's fire channel, or nil when unarmed. A nil channel
// blocks forever in a select, so an unarmed deadline simply never wins.
func (d *deadline) C() <-chan time.Time {
	if d.timer == nil {
		return nil
	}
	return d.timer.C
}

// timers bundles the deadlines the control loop arms and disarms: the
// operation deadline (server_timeout) and the keepalive. The connect timeout
// is not held here: run() bounds resolution and dialing with
// peer_connect_timeout through a context and net.DialTimeout, and arms the
// operation deadline for the first time once the login frame is written.
type timers struct {
	operation deadline
	keepalive deadline
}

func (t *timers) disarmAll() {
	t.operation.disarm()
	t.keepalive.disarm()
}
