package httpapi

import (
	"context"
	"testing"
	"time"
)

type ctxKey struct{}

func TestJoinContexts_BaseCancelPropagates(t *testing.T) {
	base, cancelBase := context.WithCancel(context.Background())
	req := context.WithValue(context.Background(), ctxKey{}, "rid")
	ctx, cancel := joinContexts(base, req)
	defer cancel()

	if ctx.Value(ctxKey{}) != "rid" {
		t.Fatal("request values should be preserved")
	}
	cancelBase()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("joined context not canceled by base")
	}
}

func TestJoinContexts_RequestCancelPropagates(t *testing.T) {
	req, cancelReq := context.WithCancel(context.Background())
	ctx, cancel := joinContexts(context.Background(), req)
	defer cancel()
	cancelReq()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("joined context not canceled by request")
	}
}

func TestSetBaseContext_NilResetsToBackground(t *testing.T) {
	SetBaseContext(nil)
	if serverBaseCtx != context.Background() {
		t.Fatal("expected Background")
	}
}
