package router

// CacheMode discriminates the page cache eviction policy variants.
type CacheMode uint8

const (
	// CacheAlways never evicts: every visited location keeps its page
	// state for the life of the router.
	CacheAlways CacheMode = iota

	// CacheNever always recreates page state when a location is
	// revisited.
	CacheNever

	// CacheCustom asks a caller predicate per target route.
	CacheCustom
)

// String returns the string representation of the CacheMode.
func (m CacheMode) String() string {
	switch m {
	case CacheAlways:
		return "always"
	case CacheNever:
		return "never"
	case CacheCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// CachePolicy decides, per target route, whether a previously created
// page state is reused on revisit. Eviction is lazy: it happens at the
// moment a location is revisited, never on a timer.
type CachePolicy[R any] struct {
	mode CacheMode
	keep func(R) bool
}

// Always returns the policy that never evicts.
func Always[R any]() CachePolicy[R] {
	return CachePolicy[R]{mode: CacheAlways}
}

// Never returns the policy that always recreates page state on revisit.
func Never[R any]() CachePolicy[R] {
	return CachePolicy[R]{mode: CacheNever}
}

// Custom returns the policy that consults keep per target route.
// A nil predicate behaves like Always.
func Custom[R any](keep func(route R) bool) CachePolicy[R] {
	return CachePolicy[R]{mode: CacheCustom, keep: keep}
}

// Mode returns the policy variant.
func (p CachePolicy[R]) Mode() CacheMode { return p.mode }

// Keep reports whether the cached page state for route is reused.
func (p CachePolicy[R]) Keep(route R) bool {
	switch p.mode {
	case CacheNever:
		return false
	case CacheCustom:
		if p.keep == nil {
			return true
		}
		return p.keep(route)
	default:
		return true
	}
}
