package rbac

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Evaluator decides whether a role holds a permission. It never allows on error.
type Evaluator struct {
	source    PermissionSource
	decisions *prometheus.CounterVec
}

func NewEvaluator(source PermissionSource, reg prometheus.Registerer) *Evaluator {
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classhub",
		Name:      "authorization_decisions_total",
		Help:      "Authorization decisions by permission and outcome.",
	}, []string{"permission", "decision"})
	if reg != nil {
		if err := reg.Register(decisions); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
					decisions = existing
				}
			}
		}
	}
	return &Evaluator{source: source, decisions: decisions}
}

func (e *Evaluator) Authorize(ctx context.Context, roleID uint, permission string) (Decision, error) {
	if roleID == 0 || permission == "" {
		e.decisions.WithLabelValues(permission, "deny").Inc()
		return Deny, nil
	}
	set, err := e.source.PermissionsFor(ctx, roleID)
	if err != nil {
		e.decisions.WithLabelValues(permission, "error").Inc()
		return Deny, err
	}
	if !set.Has(permission) {
		e.decisions.WithLabelValues(permission, "deny").Inc()
		return Deny, nil
	}
	e.decisions.WithLabelValues(permission, "allow").Inc()
	return Allow, nil
}
