package domain_test

import (
	"testing"

	"github.com/vladislavdragonenkov/inventpro/internal/domain"
)

func TestAllowed(t *testing.T) {
	cases := []struct {
		name     string
		actor    domain.Actor
		action   domain.Action
		clientID string
		want     bool
	}{
		{
			name:     "admin creates for any client",
			actor:    domain.Actor{ID: "u1", Role: domain.RoleAdmin},
			action:   domain.ActionCreateOrder,
			clientID: "c1",
			want:     true,
		},
		{
			name:     "sales mutates any order",
			actor:    domain.Actor{ID: "u2", Role: domain.RoleSales},
			action:   domain.ActionMutateOrder,
			clientID: "c9",
			want:     true,
		},
		{
			name:     "client acts on own orders",
			actor:    domain.Actor{ID: "c1", Role: domain.RoleClient},
			action:   domain.ActionCreateOrder,
			clientID: "c1",
			want:     true,
		},
		{
			name:     "client cannot act for others",
			actor:    domain.Actor{ID: "c1", Role: domain.RoleClient},
			action:   domain.ActionMutateOrder,
			clientID: "c2",
			want:     false,
		},
		{
			name:   "client cannot adjust stock",
			actor:  domain.Actor{ID: "c1", Role: domain.RoleClient},
			action: domain.ActionAdjustStock,
			want:   false,
		},
		{
			name:   "sales adjusts stock",
			actor:  domain.Actor{ID: "u2", Role: domain.RoleSales},
			action: domain.ActionAdjustStock,
			want:   true,
		},
		{
			name:     "unknown role treated as non-privileged",
			actor:    domain.Actor{ID: "c1", Role: domain.Role("intruder")},
			action:   domain.ActionCreateOrder,
			clientID: "c2",
			want:     false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := domain.Allowed(tc.actor, tc.action, tc.clientID); got != tc.want {
				t.Fatalf("Allowed(%+v, %s, %q) = %v, want %v", tc.actor, tc.action, tc.clientID, got, tc.want)
			}
		})
	}
}
