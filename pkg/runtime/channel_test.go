package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/lemonberrylabs/lexflow/pkg/types"
)

func TestChannelSendReceiveRoundtrip(t *testing.T) {
	ch := NewChannel(1)
	if err := ch.Send(context.Background(), types.NewInt(7)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := ch.Receive(context.Background(), 0)
	if err != nil || v.AsInt() != 7 {
		t.Fatalf("expected to receive 7, got %v, err %v", v, err)
	}
}

func TestChannelTrySendRespectsCapacity(t *testing.T) {
	ch := NewChannel(1)
	ok, err := ch.TrySend(types.NewInt(1))
	if err != nil || !ok {
		t.Fatalf("expected first TrySend to succeed, got %v, err %v", ok, err)
	}
	ok, err = ch.TrySend(types.NewInt(2))
	if err != nil || ok {
		t.Fatalf("expected second TrySend on a full buffer to fail without error, got %v, err %v", ok, err)
	}
}

func TestChannelTryReceiveEmpty(t *testing.T) {
	ch := NewChannel(1)
	_, ok := ch.TryReceive()
	if ok {
		t.Error("expected TryReceive on an empty channel to report false")
	}
}

func TestChannelSendOnClosedFails(t *testing.T) {
	ch := NewChannel(1)
	ch.Close()
	if err := ch.Send(context.Background(), types.NewInt(1)); err == nil {
		t.Fatal("expected Send on a closed channel to fail")
	}
}

func TestChannelReceiveOnClosedEmptyFails(t *testing.T) {
	ch := NewChannel(1)
	ch.Close()
	_, err := ch.Receive(context.Background(), 0)
	if err == nil {
		t.Fatal("expected Receive on a closed, empty channel to fail")
	}
}

func TestChannelCloseStillDrainsBufferedValues(t *testing.T) {
	ch := NewChannel(2)
	ch.Send(context.Background(), types.NewInt(1))
	ch.Close()

	v, err := ch.Receive(context.Background(), 0)
	if err != nil || v.AsInt() != 1 {
		t.Fatalf("expected a buffered value to still be receivable after Close, got %v, err %v", v, err)
	}
}

func TestChannelReceiveTimesOut(t *testing.T) {
	ch := NewChannel(0)
	_, err := ch.Receive(context.Background(), 10*time.Millisecond)
	if err == nil {
		t.Fatal("expected Receive to time out on an empty, unbuffered channel")
	}
}

func TestChannelReceiveRespectsContextCancellation(t *testing.T) {
	ch := NewChannel(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ch.Receive(ctx, 0)
	if err == nil {
		t.Fatal("expected Receive to fail on an already-cancelled context")
	}
}

func TestChannelDoubleCloseIsSafe(t *testing.T) {
	ch := NewChannel(1)
	ch.Close()
	ch.Close()
	if !ch.IsClosed() {
		t.Error("expected IsClosed to be true after Close")
	}
}

func TestChannelLenAndCap(t *testing.T) {
	ch := NewChannel(3)
	ch.Send(context.Background(), types.NewInt(1))
	if ch.Len() != 1 {
		t.Errorf("expected Len() == 1, got %d", ch.Len())
	}
	if ch.Cap() != 3 {
		t.Errorf("expected Cap() == 3, got %d", ch.Cap())
	}
}
