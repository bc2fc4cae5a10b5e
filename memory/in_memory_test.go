package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/hupe1980/agentstudio/core"
)

// Interface compliance (compile-time assertions)
var _ core.ConversationStore = (*InMemoryStore)(nil)

func TestInMemoryStore_AppendAndHistory(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryStore()

	h, err := svc.History(ctx, "agent-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h) != 0 {
		t.Fatalf("expected empty history, got %#v", h)
	}

	err = svc.AppendTurns(ctx, "agent-1",
		core.NewUserMessage("hi"),
		core.NewToolMessage("c1", "calculator", "4"),
		core.NewAssistantMessage("hello"),
	)
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}

	h2, _ := svc.History(ctx, "agent-1")
	if len(h2) != 2 || h2[0].Content != "hi" || h2[1].Role != core.RoleAssistant {
		t.Fatalf("unexpected history: %#v", h2)
	}

	// mutation safety (returned slice is a copy)
	h2[0].Content = "changed"
	h3, _ := svc.History(ctx, "agent-1")
	if h3[0].Content != "hi" {
		t.Fatalf("expected copy isolation, got %q", h3[0].Content)
	}
}

func TestInMemoryStore_RetentionAndClear(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryStore(func(o *Options) { o.MaxMessages = 2 })

	for _, c := range []string{"a", "b", "c"} {
		if err := svc.AppendTurns(ctx, "s", core.NewUserMessage(c)); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	h, _ := svc.History(ctx, "s")
	if len(h) != 2 || h[0].Content != "b" || h[1].Content != "c" {
		t.Fatalf("expected last two turns, got %#v", h)
	}

	if ids := svc.Conversations(); len(ids) != 1 || ids[0] != "s" {
		t.Fatalf("unexpected conversations: %v", ids)
	}
	if err := svc.Clear(ctx, "s"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if err := svc.Clear(ctx, "unknown"); err != nil {
		t.Fatalf("clear of unknown conversation failed: %v", err)
	}
	h, _ = svc.History(ctx, "s")
	if len(h) != 0 {
		t.Fatalf("expected cleared history, got %#v", h)
	}
}

func TestInMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.AppendTurns(ctx, "shared", core.NewUserMessage("x"))
			_, _ = svc.History(ctx, "shared")
		}()
	}
	wg.Wait()

	h, _ := svc.History(ctx, "shared")
	if len(h) != 20 {
		t.Fatalf("expected 20 turns, got %d", len(h))
	}
}
