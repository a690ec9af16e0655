package rbac

import "sort"

// Reconcile returns (current ∪ add) \ remove as a sorted, duplicate free slice.
// Removal is applied after addition, so an id in both lists ends up absent.
// The result only depends on the three sets, which makes the operation
// idempotent: Reconcile(Reconcile(s, a, r), a, r) == Reconcile(s, a, r).
func Reconcile(current, add, remove []int64) []int64 {
	set := make(map[int64]struct{}, len(current)+len(add))
	for _, id := range current {
		set[id] = struct{}{}
	}
	for _, id := range add {
		set[id] = struct{}{}
	}
	for _, id := range remove {
		delete(set, id)
	}
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func permissionIDs(perms []Permission) []int64 {
	ids := make([]int64, 0, len(perms))
	for _, p := range perms {
		ids = append(ids, p.ID)
	}
	return ids
}

func permissionNames(perms []Permission) []string {
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, p.Name)
	}
	return names
}
