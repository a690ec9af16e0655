package perf

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

type tokenTable map[string]int64

func (t tokenTable) Authenticate(ctx context.Context, token string) (shared.TokenInfo, error) {
	id, ok := t[token]
	if !ok {
		return shared.TokenInfo{}, shared.ErrInvalidToken
	}
	return shared.TokenInfo{UserID: id}, nil
}

// gateFixture seeds a catalog, an Admin role holding all of it, and a user
// carrying extra overrides so resolution touches both sets.
func gateFixture(tb testing.TB, extra int) rbac.Gate {
	tb.Helper()
	ctx := context.Background()
	store := rbac.NewMemoryStore()
	catalog := rbac.NewService(store, nil)

	names := shared.PermissionCatalog()
	for i := 0; i < extra; i++ {
		names = append(names, fmt.Sprintf("custom_%03d", i))
	}
	perms, err := catalog.EnsureCatalog(ctx, names)
	if err != nil {
		tb.Fatalf("ensure catalog: %v", err)
	}
	var roleIDs, overrideIDs []int64
	for i, p := range perms {
		if i%2 == 0 {
			roleIDs = append(roleIDs, p.ID)
		} else {
			overrideIDs = append(overrideIDs, p.ID)
		}
	}
	role, err := catalog.EnsureRole(ctx, shared.AdminRoleName, roleIDs)
	if err != nil {
		tb.Fatalf("ensure role: %v", err)
	}
	user, err := store.CreateUser(ctx, rbac.User{Name: "Bench", Email: "bench@example.com", RoleID: &role.ID, OverrideIDs: overrideIDs})
	if err != nil {
		tb.Fatalf("create user: %v", err)
	}
	return rbac.Gate{
		Tokens:   tokenTable{"bench": user.ID},
		Users:    store,
		Resolver: catalog.Resolver(),
	}
}

func TestGateLatencyTargets(t *testing.T) {
	gate := gateFixture(t, 200)
	ctx := context.Background()

	samples := make([]time.Duration, 0, 200)
	for i := 0; i < cap(samples); i++ {
		start := time.Now()
		p, _, err := gate.Authenticate(ctx, "Bearer bench")
		if err != nil {
			t.Fatalf("authenticate: %v", err)
		}
		if !p.EffectivePermissions.Has(shared.PermReadUser) && !p.EffectivePermissions.Has(shared.PermCreateUser) {
			t.Fatal("resolved set lost catalog permissions")
		}
		samples = append(samples, time.Since(start))
	}

	if p95 := percentile95(samples); p95 > 50*time.Millisecond {
		t.Fatalf("gate latency regression: p95=%s threshold=%s", p95, 50*time.Millisecond)
	}
}

func BenchmarkGateAuthenticate(b *testing.B) {
	gate := gateFixture(b, 200)
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := gate.Authenticate(ctx, "Bearer bench"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkReconcile(b *testing.B) {
	current := make([]int64, 500)
	add := make([]int64, 100)
	remove := make([]int64, 100)
	for i := range current {
		current[i] = int64(i)
	}
	for i := range add {
		add[i] = int64(450 + i)
		remove[i] = int64(i * 3)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rbac.Reconcile(current, add, remove)
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
