package serverconn

import (
	"testing"
	"time"
)

func TestDeadlineUnarmedChannelIsNil(t *testing.T) {
	var d deadline
	if d.C() != nil {
		t.Fatal("an unarmed deadline must expose a nil channel")
	}
}

func TestDeadlineArmFires(t *testing.T) {
	var d deadline
	d.arm(10 * time.Millisecond)
	select {
	case <-d.C():
	case <-time.After(time.Second):
		t.Fatal("armed deadline never fired")
	}
}

func TestDeadlineDisarmStopsFiring(t *testing.T) {
	var d deadline
	d.arm(5 * time.Millisecond)
	d.disarm()
	if d.C() != nil {
		t.Fatal("disarm must leave the channel nil")
	}
}

func TestDeadlineRearmReplacesTimer(t *testing.T) {
	var d deadline
	d.arm(time.Hour)
	d.arm(5 * time.Millisecond)
	select {
	case <-d.C():
	case <-time.After(time.Second):
		t.Fatal("re-armed deadline with a short duration never fired")
	}
}

func TestTimersDisarmAll(t *testing.T) {
	var ts timers
	ts.operation.arm(time.Hour)
	ts.keepalive.arm(time.Hour)
	ts.disarmAll()
	if ts.operation.C() != nil || ts.keepalive.C() != nil {
		t.Fatal("disarmAll must clear both timers")
	}
}
