package httpapi

import (
	"context"
	"testing"
	"time"
)

func TestJoinContexts(t *testing.T) {
	a, ac := context.WithCancel(context.Background())
	defer ac()
	b, bc := context.WithCancel(context.Background())
	defer bc()
	j, cancelJ := joinContexts(a, b)
	defer cancelJ()
	bc()
	select {
	case <-j.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("joined context did not cancel after parent canceled")
	}
}

func TestSetBaseContext_NilResetsToBackground(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	SetBaseContext(ctx)
	cancel()
	// nolint:staticcheck // SA1012: nil resets to Background
	SetBaseContext(nil)
	if serverBaseCtx.Err() != nil {
		t.Fatal("base context should be Background after nil reset")
	}
}
