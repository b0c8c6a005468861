package auth

import (
	"context"

	"github.com/avicola/eggcoop-core/internal/infrastructure/logging"
)

// NavigateFunc redirects the user to an unauthorized destination, typically
// the sign-in or "no access" screen. Implementations are supplied by the UI
// shell hosting this module.
type NavigateFunc func()

// GuardState is the outcome of a route access check. A route starts in
// StateChecking and moves exactly once to StateGranted or StateDenied;
// protected content must only render in StateGranted.
type GuardState int

const (
	StateChecking GuardState = iota
	StateGranted
	StateDenied
)

func (s GuardState) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateGranted:
		return "granted"
	case StateDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Guard gates access to protected routes by role. Any failure to resolve
// the user's roles denies access: the guard fails closed.
type Guard struct {
	resolver *Resolver
	navigate NavigateFunc
	logger   *logging.Logger
}

// NewGuard creates a route guard. navigate is invoked on every denial and
// may be nil when no redirect is wanted. A nil logger discards log output.
func NewGuard(resolver *Resolver, navigate NavigateFunc, logger *logging.Logger) *Guard {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Guard{resolver: resolver, navigate: navigate, logger: logger}
}

// Check resolves the user's effective roles and grants access when at least
// one matches the allowed labels. Label comparison is case- and
// whitespace-insensitive. An empty allowed list denies everything.
func (g *Guard) Check(ctx context.Context, allowedLabels []string) GuardState {
	labels, err := g.resolver.EffectiveRoleLabels(ctx)
	if err != nil {
		g.logger.Warn("role resolution failed, denying access", "error", err)
		return g.deny()
	}

	allowed := make(map[string]struct{}, len(allowedLabels))
	for _, label := range allowedLabels {
		allowed[NormalizeLabel(label)] = struct{}{}
	}

	for _, label := range labels {
		if _, ok := allowed[NormalizeLabel(label)]; ok {
			return StateGranted
		}
	}

	g.logger.Info("access denied", "effective_roles", labels, "allowed_roles", allowedLabels)
	return g.deny()
}

func (g *Guard) deny() GuardState {
	if g.navigate != nil {
		g.navigate()
	}
	return StateDenied
}
