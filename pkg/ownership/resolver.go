// Package ownership answers outlet and data-ownership questions that
// depend on the cross-service staff roster: which staff are assigned to
// which outlet. The roster service is external and may be down; every
// failure resolves to deny. Availability of the ownership service is never
// allowed to widen access.
package ownership

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/tillstack/tillstack/pkg/audit"
	"github.com/tillstack/tillstack/pkg/authz"
	"github.com/tillstack/tillstack/pkg/observability"
)

const defaultCacheSize = 4096

// Resolver evaluates ownership-style checks by delegating roster lookups
// to the external client. Membership outcomes are cached for a short TTL
// (staleness favors a re-check, never a stale allow beyond the TTL), and
// concurrent fetches for the same outlet are deduplicated.
type Resolver struct {
	client  RosterClient
	engine  *authz.Engine
	cache   *lru.LRU[string, bool]
	group   singleflight.Group
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewResolver creates a resolver. A zero cacheTTL disables caching so
// every check re-fetches the roster.
func NewResolver(client RosterClient, engine *authz.Engine, cacheTTL time.Duration, logger *observability.Logger, metrics *observability.Metrics) *Resolver {
	r := &Resolver{
		client:  client,
		engine:  engine,
		logger:  logger,
		metrics: metrics,
	}
	if cacheTTL > 0 {
		r.cache = lru.NewLRU[string, bool](defaultCacheSize, nil, cacheTTL)
	}
	return r
}

// CanAccessOutlet decides whether the principal may act on the outlet.
// Admins always may; everyone else must appear on the outlet's staff
// roster. Roster failure or timeout denies.
func (r *Resolver) CanAccessOutlet(ctx context.Context, p *authz.Principal, outletID int64) authz.Decision {
	if p == nil {
		return authz.Deny("no principal")
	}
	if d := r.engine.HasRole(p, authz.RoleAdmin); d.Granted {
		return authz.Allow("admin override")
	}

	cacheKey := fmt.Sprintf("outlet:%d:user:%d", outletID, p.ID)
	if r.cache != nil {
		if member, ok := r.cache.Get(cacheKey); ok {
			r.cacheHit()
			if member {
				return authz.Allow("rostered to outlet (cached)")
			}
			return authz.Deny("not rostered to outlet (cached)")
		}
		r.cacheMiss()
	}

	staff, err := r.outletStaff(ctx, outletID)
	if err != nil {
		r.rosterFailure(ctx, p, fmt.Sprintf("outlet %d staff lookup failed", outletID), err)
		return authz.Deny("roster lookup failed")
	}

	member := false
	for _, s := range staff {
		if s.UserID == p.ID {
			member = true
			break
		}
	}
	if r.cache != nil {
		r.cache.Add(cacheKey, member)
	}

	if member {
		return authz.Allow(fmt.Sprintf("rostered to outlet %d", outletID))
	}
	return authz.Deny(fmt.Sprintf("not rostered to outlet %d", outletID))
}

// CanModifyUserData decides whether the principal may modify data owned by
// another user. Owners and admins always may; a manager may iff the
// manager and the data owner share at least one outlet assignment. Any
// roster failure along the way denies.
func (r *Resolver) CanModifyUserData(ctx context.Context, p *authz.Principal, ownerID int64) authz.Decision {
	if p == nil {
		return authz.Deny("no principal")
	}
	if p.ID == ownerID {
		return authz.Allow("principal owns the data")
	}
	if d := r.engine.HasRole(p, authz.RoleAdmin); d.Granted {
		return authz.Allow("admin override")
	}
	if d := r.engine.HasRole(p, authz.RoleManager); !d.Granted {
		return authz.Deny("not the owner, an admin, or a manager")
	}

	outlets, err := r.userOutlets(ctx, p.ID)
	if err != nil {
		r.rosterFailure(ctx, p, fmt.Sprintf("outlet list lookup failed for manager %d", p.ID), err)
		return authz.Deny("roster lookup failed")
	}

	for _, outlet := range outlets {
		staff, err := r.outletStaff(ctx, outlet.OutletID)
		if err != nil {
			r.rosterFailure(ctx, p, fmt.Sprintf("outlet %d staff lookup failed", outlet.OutletID), err)
			return authz.Deny("roster lookup failed")
		}
		for _, s := range staff {
			if s.UserID == ownerID {
				return authz.Allow(fmt.Sprintf("shares outlet %d with data owner", outlet.OutletID))
			}
		}
	}
	return authz.Deny("no shared outlet with data owner")
}

// outletStaff fetches a roster, deduplicating concurrent fetches for the
// same outlet.
func (r *Resolver) outletStaff(ctx context.Context, outletID int64) ([]StaffAssignment, error) {
	key := fmt.Sprintf("staff:%d", outletID)
	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		return r.timedLookup(ctx, "outlet_staff", func() (interface{}, error) {
			return r.client.OutletStaff(ctx, outletID)
		})
	})
	if err != nil {
		return nil, err
	}
	return v.([]StaffAssignment), nil
}

func (r *Resolver) userOutlets(ctx context.Context, userID int64) ([]OutletAssignment, error) {
	key := fmt.Sprintf("outlets:%d", userID)
	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		return r.timedLookup(ctx, "user_outlets", func() (interface{}, error) {
			return r.client.UserOutlets(ctx, userID)
		})
	})
	if err != nil {
		return nil, err
	}
	return v.([]OutletAssignment), nil
}

func (r *Resolver) timedLookup(_ context.Context, operation string, fetch func() (interface{}, error)) (interface{}, error) {
	start := time.Now()
	v, err := fetch()
	if r.metrics != nil {
		r.metrics.RosterLookupDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		status := "success"
		if err != nil {
			status = "error"
		}
		r.metrics.RosterLookupsTotal.WithLabelValues(operation, status).Inc()
	}
	return v, err
}

// rosterFailure logs and audits a failed lookup. Fire-and-forget: neither
// sink may block the deny that follows.
func (r *Resolver) rosterFailure(ctx context.Context, p *authz.Principal, message string, err error) {
	if r.logger != nil {
		r.logger.WithError(err).WithField("principal_id", p.ID).Warn(message)
	}
	event := audit.Denied(ctx, audit.EventTypeRosterFailure, message)
	event.Status = audit.EventStatusFailure
	event.PrincipalID = &p.ID
	event.Username = p.Username
	event.Metadata = map[string]interface{}{"error": err.Error()}
	_ = audit.FromContext(ctx).Log(ctx, event)
}

func (r *Resolver) cacheHit() {
	if r.metrics != nil {
		r.metrics.RosterCacheHitsTotal.Inc()
	}
}

func (r *Resolver) cacheMiss() {
	if r.metrics != nil {
		r.metrics.RosterCacheMissTotal.Inc()
	}
}
