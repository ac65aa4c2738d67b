package membership

import "time"

// DowningView is the narrow slice of coordinator state a DowningPolicy
// is allowed to see: the current member set and which addresses are
// unreachable, per the "(view, reachability) -> set of UniqueAddress to
// Down" contract in §6.
type DowningView interface {
	Members() []Member
	IsUnreachable(ua UniqueAddress) bool
	UnreachableSince(ua UniqueAddress) (time.Time, bool)
}

// DowningPolicy decides which members to Down on a given leader tick.
// It is an external collaborator (§1, §6): the core only consumes this
// decision, never makes it itself except through the built-in policy
// in the downing package.
type DowningPolicy interface {
	Decide(now time.Time, view DowningView) []UniqueAddress
}

// DowningConstructor builds a DowningPolicy from a Config at
// resolution time.
type DowningConstructor func(cfg *Config) DowningPolicy

var downingRegistry = map[string]DowningConstructor{}

// RegisterDowningPolicy adds a named DowningPolicy constructor to the
// registry Config.DowningProviderClass resolves against — a
// register-by-name collaborator registry, the same pattern serf uses
// for its pluggable EventDelegate/MergeDelegate rather than
// reflection-based class loading (§9 explicitly rules out the latter).
func RegisterDowningPolicy(name string, ctor DowningConstructor) {
	downingRegistry[name] = ctor
}

// ResolveDowningPolicy looks up the DowningPolicy named by
// cfg.DowningProviderClass.
func ResolveDowningPolicy(cfg *Config) (DowningPolicy, bool) {
	ctor, ok := downingRegistry[cfg.DowningProviderClass]
	if !ok {
		return nil, false
	}
	return ctor(cfg), true
}
