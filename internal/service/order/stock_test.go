package ordersvc

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/inventpro/internal/domain"
)

func TestMergeLineRequests_DedupesAndSorts(t *testing.T) {
	merged, err := mergeLineRequests([]LineRequest{
		{ProductID: "prod-z", Qty: 1},
		{ProductID: "prod-a", Qty: 2},
		{ProductID: "prod-z", Qty: 4},
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(merged) != 2 {
		t.Fatalf("merged lines = %d, want 2", len(merged))
	}
	// Детерминированный порядок по идентификатору товара.
	if merged[0].ProductID != "prod-a" || merged[1].ProductID != "prod-z" {
		t.Fatalf("unexpected order: %+v", merged)
	}
	if merged[1].Qty != 5 {
		t.Fatalf("merged qty = %d, want 5", merged[1].Qty)
	}
}

func TestMergeLineRequests_Validation(t *testing.T) {
	cases := []struct {
		name string
		reqs []LineRequest
		want error
	}{
		{"empty", nil, domain.ErrLinesRequired},
		{"no product", []LineRequest{{Qty: 1}}, domain.ErrQtyInvalid},
		{"zero qty", []LineRequest{{ProductID: "prod-a", Qty: 0}}, domain.ErrQtyInvalid},
		{"negative qty", []LineRequest{{ProductID: "prod-a", Qty: -3}}, domain.ErrQtyInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := mergeLineRequests(tc.reqs); !errors.Is(err, tc.want) {
				t.Fatalf("mergeLineRequests(%v) = %v, want %v", tc.reqs, err, tc.want)
			}
		})
	}
}
