package service

import (
	"errors"
	"testing"

	"stockroom/internal/domain"
	"stockroom/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanForCreate(t *testing.T) {
	productA := uuid.New()
	productB := uuid.New()

	plan := PlanForCreate([]*domain.OrderItem{
		{ProductID: productA, Quantity: 3},
		{ProductID: productB, Quantity: 1},
	})

	assert.Equal(t, StockPlan{productA: -3, productB: -1}, plan)
}

func TestPlanForUpdate(t *testing.T) {
	productA := uuid.New()
	productB := uuid.New()
	productC := uuid.New()

	before := map[uuid.UUID]int{
		productA: 2, // will grow to 5
		productB: 4, // will be removed
		productC: 3, // unchanged
	}
	after := []*domain.OrderItem{
		{ProductID: productA, Quantity: 5},
		{ProductID: productC, Quantity: 3},
	}

	plan := PlanForUpdate(before, after)

	assert.Equal(t, -3, plan[productA], "grown line decrements the difference")
	assert.Equal(t, 4, plan[productB], "removed line restores its full quantity")
	_, ok := plan[productC]
	assert.False(t, ok, "unchanged line contributes no delta")
}

func TestPlanForUpdate_NewItem(t *testing.T) {
	productA := uuid.New()

	plan := PlanForUpdate(map[uuid.UUID]int{}, []*domain.OrderItem{
		{ProductID: productA, Quantity: 7},
	})

	assert.Equal(t, StockPlan{productA: -7}, plan)
}

func TestPlanForUpdate_QuantityDecrease(t *testing.T) {
	productA := uuid.New()

	plan := PlanForUpdate(map[uuid.UUID]int{productA: 6}, []*domain.OrderItem{
		{ProductID: productA, Quantity: 2},
	})

	assert.Equal(t, StockPlan{productA: 4}, plan)
}

func TestStockPlanValidate(t *testing.T) {
	productA := uuid.New()
	productB := uuid.New()

	products := map[uuid.UUID]*domain.Product{
		productA: {ID: productA, StockQuantity: 10, Price: decimal.NewFromInt(5)},
		productB: {ID: productB, StockQuantity: 3, Price: decimal.NewFromInt(2)},
	}

	t.Run("whole batch within stock", func(t *testing.T) {
		plan := StockPlan{productA: -10, productB: -3}
		assert.NoError(t, plan.Validate(products))
	})

	t.Run("one product short rejects the batch", func(t *testing.T) {
		plan := StockPlan{productA: -1, productB: -4}
		err := plan.Validate(products)
		require.Error(t, err)

		var stockErr *repository.InsufficientStockError
		require.True(t, errors.As(err, &stockErr))
		assert.Equal(t, productB, stockErr.ProductID)
		assert.Equal(t, 3, stockErr.Available)
		assert.Equal(t, 4, stockErr.Requested)
	})

	t.Run("restocking deltas never fail", func(t *testing.T) {
		plan := StockPlan{productA: 100, productB: 50}
		assert.NoError(t, plan.Validate(products))
	})

	t.Run("unknown product", func(t *testing.T) {
		plan := StockPlan{uuid.New(): -1}
		assert.ErrorIs(t, plan.Validate(products), repository.ErrProductNotFound)
	})
}
