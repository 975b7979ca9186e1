// Package perm is the single authorization gate every mutation passes through.
package perm

import (
	"context"
	"strconv"
	"strings"

	"todoblock/internal/apperr"
	"todoblock/internal/model"
)

// CapabilityAddInstance is required for every list operation.
const CapabilityAddInstance = "todo:myaddinstance"

// Capabilities answers capability questions for an actor.
type Capabilities interface {
	HasCapability(ctx context.Context, actorID, capability string) bool
}

// AllowAll grants every capability to every non-empty actor.
type AllowAll struct{}

func (AllowAll) HasCapability(_ context.Context, actorID, _ string) bool {
	return strings.TrimSpace(actorID) != ""
}

// Grants is a static actor -> capabilities table. The "*" actor applies to everyone.
type Grants map[string][]string

func (g Grants) HasCapability(_ context.Context, actorID, capability string) bool {
	for _, who := range []string{actorID, "*"} {
		for _, c := range g[who] {
			if c == capability {
				return true
			}
		}
	}
	return false
}

type Gate struct {
	Caps Capabilities
}

// RequireCapability returns the trimmed actor id, or UNAUTHORIZED when the
// actor is anonymous or lacks capability.
func (g Gate) RequireCapability(ctx context.Context, actorID, capability string) (string, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return "", apperr.Unauthorized(capability)
	}
	caps := g.Caps
	if caps == nil {
		caps = AllowAll{}
	}
	if !caps.HasCapability(ctx, actorID, capability) {
		return "", apperr.Unauthorized(capability)
	}
	return actorID, nil
}

// Authorize checks the list capability for actorID.
func (g Gate) Authorize(ctx context.Context, actorID string) (string, error) {
	return g.RequireCapability(ctx, actorID, CapabilityAddInstance)
}

// CanEditItem reports whether actorID may mutate it. Only the owner can.
func CanEditItem(actorID string, it model.Item) bool {
	actorID = strings.TrimSpace(actorID)
	return actorID != "" && it.OwnerID == actorID
}

// RequireOwner fails with NOT_FOUND for items the actor does not own, so
// foreign ids are indistinguishable from missing ones.
func RequireOwner(actorID string, it model.Item) error {
	if !CanEditItem(actorID, it) {
		return apperr.NotFound("item", strconv.FormatInt(it.ID, 10))
	}
	return nil
}
