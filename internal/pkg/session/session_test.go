package session

import (
	"context"
	"testing"
	"time"

	"memoriza-service/internal/domain/auth"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func identity(claims map[string]any) *auth.Identity {
	return &auth.Identity{Claims: claims}
}

var perms = []auth.ModulePermission{{Module: "produtos", Actions: map[string]any{"view": true}}}

func TestMergePermissionsCurrentGeneration(t *testing.T) {
	s := New("s1")
	gen := s.Apply("tok", identity(map[string]any{"employeeGroupId": "7"}))

	if !s.MergePermissions(gen, perms, []string{"produtos"}) {
		t.Fatal("MergePermissions() = false for the current generation")
	}

	snap := s.Snapshot()
	if !snap.User.PermissionsLoaded || len(snap.User.GroupPermissions) != 1 {
		t.Fatalf("permissions not merged: %+v", snap.User)
	}
}

func TestMergePermissionsAfterLogout(t *testing.T) {
	s := New("s1")
	gen := s.Apply("tok", identity(map[string]any{"employeeGroupId": "7"}))
	s.Clear()

	if s.MergePermissions(gen, perms, []string{"produtos"}) {
		t.Fatal("MergePermissions() resurrected a logged-out session")
	}
	if snap := s.Snapshot(); snap.User != nil || snap.Token != "" {
		t.Fatalf("session not empty after logout: %+v", snap)
	}
}

func TestMergePermissionsAfterRelogin(t *testing.T) {
	s := New("s1")
	first := s.Apply("tok-a", identity(map[string]any{"employeeGroupId": "7"}))
	s.Apply("tok-b", identity(map[string]any{"employeeGroupId": "8"}))

	if s.MergePermissions(first, perms, []string{"produtos"}) {
		t.Fatal("permissions of an older login merged into a newer one")
	}
	if s.Snapshot().User.PermissionsLoaded {
		t.Fatal("newer identity marked as loaded")
	}
}

func TestConfirmFollowsGeneration(t *testing.T) {
	s := New("s1")
	first := s.Apply("tok-a", identity(map[string]any{"isAdmin": true}))
	if s.Confirmed() {
		t.Fatal("fresh token counted as confirmed")
	}

	s.Apply("tok-b", identity(map[string]any{"isAdmin": true}))
	if s.Confirm(first) || s.Confirmed() {
		t.Fatal("confirmation of an older token applied to a newer one")
	}

	gen := s.Generation()
	if !s.Confirm(gen) || !s.Snapshot().Confirmed {
		t.Fatal("current token not confirmed")
	}

	s.Clear()
	if s.Confirmed() || s.Confirm(gen) {
		t.Fatal("confirmation survived logout")
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	s := New("s1")
	s.Apply("tok", identity(map[string]any{"email": "a@b.c"}))

	snap := s.Snapshot()
	snap.User.Claims["email"] = "mutated"

	if s.Snapshot().User.Claims["email"] != "a@b.c" {
		t.Fatal("snapshot shares state with the session")
	}
}

func TestUpdateUserWithoutIdentity(t *testing.T) {
	s := New("s1")
	called := false
	if s.UpdateUser(func(*auth.Identity) { called = true }) || called {
		t.Fatal("UpdateUser() ran without an identity")
	}
}

func TestNewSessionIsLoading(t *testing.T) {
	s := New("s1")
	if !s.Snapshot().IsLoading {
		t.Fatal("new session not loading")
	}
	s.MarkReady()
	if s.Snapshot().IsLoading {
		t.Fatal("session still loading after MarkReady")
	}
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestManagerResolve(t *testing.T) {
	m := NewManager(nil, zap.NewNop())
	ctx := context.Background()

	s, created := m.Resolve(ctx, "")
	if !created || s.ID() == "" {
		t.Fatalf("Resolve(\"\") = %v, %v", s, created)
	}

	again, created := m.Resolve(ctx, s.ID())
	if created || again != s {
		t.Fatal("Resolve() did not return the live session")
	}

	fresh, created := m.Resolve(ctx, "forged-id")
	if !created || fresh.ID() == "forged-id" {
		t.Fatal("Resolve() adopted an unknown id")
	}
	if m.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", m.Count())
	}
}

func TestManagerPersistAndRestore(t *testing.T) {
	mr, client := newRedis(t)
	store := NewRedisStore(client, time.Hour)
	ctx := context.Background()

	first := NewManager(store, zap.NewNop())
	s, _ := first.Resolve(ctx, "")
	gen := s.Apply("tok", identity(map[string]any{"email": "a@b.c", "employeeGroupId": "7"}))
	s.MergePermissions(gen, perms, []string{"produtos"})
	s.Confirm(gen)
	first.Persist(ctx, s)

	if !mr.Exists("session:" + s.ID()) {
		t.Fatal("session not written to redis")
	}
	if ttl := mr.TTL("session:" + s.ID()); ttl != time.Hour {
		t.Fatalf("TTL = %v, want 1h", ttl)
	}

	// a second process restores the snapshot
	second := NewManager(store, zap.NewNop())
	restored, created := second.Resolve(ctx, s.ID())
	if created {
		t.Fatal("persisted session not restored")
	}
	snap := restored.Snapshot()
	if snap.Token != "tok" || snap.User.Email() != "a@b.c" || !snap.User.HasModule("produtos") || !snap.Confirmed {
		t.Fatalf("restored state = %+v", snap)
	}

	restored.Clear()
	second.Persist(ctx, restored)
	if mr.Exists("session:" + s.ID()) {
		t.Fatal("logged-out session still persisted")
	}
}

func TestManagerSweep(t *testing.T) {
	m := NewManager(nil, zap.NewNop())
	s, _ := m.Resolve(context.Background(), "")

	if n := m.Sweep(time.Hour); n != 0 {
		t.Fatalf("Sweep() removed %d fresh sessions", n)
	}

	s.mu.Lock()
	s.lastSeen = time.Now().Add(-2 * time.Hour)
	s.mu.Unlock()

	if n := m.Sweep(time.Hour); n != 1 {
		t.Fatalf("Sweep() = %d, want 1", n)
	}
	if _, ok := m.Get(s.ID()); ok {
		t.Fatal("idle session still live")
	}
}

func TestRateLimiter(t *testing.T) {
	mr, client := newRedis(t)
	rl := NewRateLimiter(client, 3, 15*time.Minute)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		ok, remaining, err := rl.CheckLoginAttempt(ctx, "10.0.0.1", "Ana@Memoriza.com.br")
		if err != nil || !ok {
			t.Fatalf("attempt %d: ok=%v err=%v", i, ok, err)
		}
		if remaining != int64(3-i) {
			t.Fatalf("attempt %d: remaining = %d", i, remaining)
		}
	}

	ok, _, err := rl.CheckLoginAttempt(ctx, "10.0.0.1", "ana@memoriza.com.br")
	if err != nil || ok {
		t.Fatalf("fourth attempt allowed: ok=%v err=%v", ok, err)
	}

	// other client is unaffected
	if ok, _, _ := rl.CheckLoginAttempt(ctx, "10.0.0.2", "ana@memoriza.com.br"); !ok {
		t.Fatal("limit leaked across clients")
	}

	mr.FastForward(16 * time.Minute)
	if remaining, err := rl.GetRemainingAttempts(ctx, "10.0.0.1", "ana@memoriza.com.br"); err != nil || remaining != 3 {
		t.Fatalf("after window: remaining=%d err=%v", remaining, err)
	}

	rl.CheckLoginAttempt(ctx, "10.0.0.1", "ana@memoriza.com.br")
	if err := rl.ResetLoginAttempts(ctx, "10.0.0.1", "ana@memoriza.com.br"); err != nil {
		t.Fatalf("ResetLoginAttempts() error = %v", err)
	}
	if remaining, _ := rl.GetRemainingAttempts(ctx, "10.0.0.1", "ana@memoriza.com.br"); remaining != 3 {
		t.Fatalf("after reset: remaining=%d", remaining)
	}
}
