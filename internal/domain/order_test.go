package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/inventpro/internal/domain"
)

// helper для создания базового заказа с одной позицией.
func makeOrder() domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:         "order-1",
		ClientID:   "client-1",
		Status:     domain.OrderStatusPending,
		TotalMinor: 500,
		Lines: []domain.OrderLine{
			{
				ID:         "line-1",
				OrderID:    "order-1",
				ProductID:  "product-1",
				Qty:        5,
				PriceMinor: 100,
				CreatedAt:  now,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from    domain.OrderStatus
		to      domain.OrderStatus
		allowed bool
	}{
		{domain.OrderStatusPending, domain.OrderStatusProcessing, true},
		{domain.OrderStatusPending, domain.OrderStatusCancelled, true},
		{domain.OrderStatusPending, domain.OrderStatusCompleted, false},
		{domain.OrderStatusProcessing, domain.OrderStatusCompleted, true},
		{domain.OrderStatusProcessing, domain.OrderStatusCancelled, true},
		{domain.OrderStatusProcessing, domain.OrderStatusPending, false},
		{domain.OrderStatusCompleted, domain.OrderStatusCancelled, false},
		{domain.OrderStatusCompleted, domain.OrderStatusPending, false},
		{domain.OrderStatusCancelled, domain.OrderStatusPending, false},
		{domain.OrderStatusCancelled, domain.OrderStatusProcessing, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
				t.Fatalf("CanTransitionTo(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
			}
		})
	}
}

func TestOrderTransitionTo_SameStatusIsNoop(t *testing.T) {
	order := makeOrder()
	order.Status = domain.OrderStatusProcessing

	if err := order.TransitionTo(domain.OrderStatusProcessing); err != nil {
		t.Fatalf("same-status transition must be idempotent, got %v", err)
	}
	if order.Status != domain.OrderStatusProcessing {
		t.Fatalf("status changed unexpectedly: %s", order.Status)
	}
}

func TestOrderTransitionTo_IllegalReturnsConflict(t *testing.T) {
	order := makeOrder()
	order.Status = domain.OrderStatusCompleted

	err := order.TransitionTo(domain.OrderStatusCancelled)
	if err == nil {
		t.Fatal("expected transition error")
	}
	if !errors.Is(err, domain.ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}

	var trErr *domain.TransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected *TransitionError, got %T", err)
	}
	if trErr.From != domain.OrderStatusCompleted || trErr.To != domain.OrderStatusCancelled {
		t.Fatalf("unexpected transition error details: %+v", trErr)
	}
}

func TestOrderTransitionTo_InvalidStatus(t *testing.T) {
	order := makeOrder()
	if err := order.TransitionTo(domain.OrderStatus("shipped")); !errors.Is(err, domain.ErrStatusInvalid) {
		t.Fatalf("expected ErrStatusInvalid, got %v", err)
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	if domain.OrderStatusPending.Terminal() || domain.OrderStatusProcessing.Terminal() {
		t.Fatal("pending/processing must not be terminal")
	}
	if !domain.OrderStatusCompleted.Terminal() || !domain.OrderStatusCancelled.Terminal() {
		t.Fatal("completed/cancelled must be terminal")
	}
}

func TestOrderLineForProduct(t *testing.T) {
	order := makeOrder()

	line := order.LineForProduct("product-1")
	if line == nil {
		t.Fatal("expected line for product-1")
	}
	if line.Qty != 5 {
		t.Fatalf("unexpected qty: %d", line.Qty)
	}
	if order.LineForProduct("missing") != nil {
		t.Fatal("expected nil for unknown product")
	}
}

func TestOrderValidateInvariants_Ok(t *testing.T) {
	order := makeOrder()
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestOrderValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(o *domain.Order)
	}{
		{
			name: "no client",
			mut: func(o *domain.Order) {
				o.ClientID = ""
			},
		},
		{
			name: "invalid status",
			mut: func(o *domain.Order) {
				o.Status = "shipped"
			},
		},
		{
			name: "negative total",
			mut: func(o *domain.Order) {
				o.TotalMinor = -1
			},
		},
		{
			name: "qty invalid",
			mut: func(o *domain.Order) {
				o.Lines[0].Qty = 0
			},
		},
		{
			name: "price invalid",
			mut: func(o *domain.Order) {
				o.Lines[0].PriceMinor = -5
			},
		},
		{
			name: "total mismatch",
			mut: func(o *domain.Order) {
				o.TotalMinor = 999
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := makeOrder()
			tc.mut(&order)

			if len(order.ValidateInvariants()) == 0 {
				t.Fatalf("expected validation errors for case %s", tc.name)
			}
		})
	}
}

func TestProductValidateInvariants_BackorderAllowed(t *testing.T) {
	product := domain.Product{
		ID:         "product-1",
		Name:       "keyboard",
		PriceMinor: 100,
		Stock:      -7,
	}
	if errs := product.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("negative stock is a valid backorder state, got %v", errs)
	}
}
