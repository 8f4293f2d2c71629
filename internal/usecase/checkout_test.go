package usecase_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ErlanBelekov/shop-backend/internal/domain"
	"github.com/ErlanBelekov/shop-backend/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkoutFixture struct {
	store    *fakeStore
	cart     *usecase.CartUsecase
	checkout *usecase.CheckoutUsecase
	userID   string
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	store := newFakeStore()
	user := store.addUser("buyer@b.c", true)
	return &checkoutFixture{
		store:    store,
		cart:     usecase.NewCartUsecase(store),
		checkout: usecase.NewCheckoutUsecase(store),
		userID:   user.ID,
	}
}

func (f *checkoutFixture) setLine(t *testing.T, variantID string, qty int) {
	t.Helper()
	_, err := f.cart.SetItem(context.Background(), f.userID, variantID, qty)
	require.NoError(t, err)
}

func (f *checkoutFixture) input() usecase.CheckoutInput {
	comment := "ring twice"
	return usecase.CheckoutInput{
		UserID:   f.userID,
		Delivery: domain.Delivery{Method: "courier", Address: json.RawMessage(`{"city":"Kazan"}`)},
		Contact:  domain.Contact{Name: " Anna ", Phone: "+79990001122", Email: " Buyer@B.C "},
		Comment:  &comment,
	}
}

func TestCheckout_PlacesOrderAndEmptiesCart(t *testing.T) {
	f := newCheckoutFixture(t)
	a := f.store.addVariant("199.90", 5, true)
	b := f.store.addVariant("0.10", 10, true)
	f.setLine(t, a, 2)
	f.setLine(t, b, 3)

	order, err := f.checkout.CreateOrderFromCart(context.Background(), f.input())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPlaced, order.Status)
	assert.Equal(t, domain.CurrencyRUB, order.Currency)
	assert.Equal(t, "400.10", order.Subtotal.StringFixed(2))
	assert.True(t, order.Delivery.IsZero())
	assert.True(t, order.Total.Equal(order.Subtotal.Add(order.Delivery)))
	assert.Equal(t, domain.Contact{Name: "Anna", Phone: "+79990001122", Email: "buyer@b.c"}, order.Contact)
	assert.Equal(t, "courier", order.Shipping.Method)

	require.Len(t, order.Items, 2)
	assert.Equal(t, a, order.Items[0].VariantID)
	assert.Equal(t, "399.80", order.Items[0].LineTotal.StringFixed(2))
	assert.Equal(t, 3, order.Items[1].Qty)

	events := f.store.eventsFor(order.ID)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].FromStatus)
	assert.Equal(t, domain.StatusPlaced, events[0].ToStatus)
	assert.Equal(t, domain.ActorSystem, events[0].CreatedBy)

	assert.Empty(t, f.store.cartQty(f.userID))
}

func TestCheckout_SnapshotSurvivesCatalogChange(t *testing.T) {
	f := newCheckoutFixture(t)
	orders := usecase.NewOrderUsecase(f.store)
	v := f.store.addVariant("10.00", 5, true)
	f.setLine(t, v, 1)

	placed, err := f.checkout.CreateOrderFromCart(context.Background(), f.input())
	require.NoError(t, err)

	f.store.setPrice(v, "99.00")

	got, err := orders.Get(context.Background(), f.userID, placed.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "10.00", got.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "10.00", got.Total.StringFixed(2))
}

func TestCheckout_OneLineOverStockRejectsWholeOrder(t *testing.T) {
	f := newCheckoutFixture(t)
	ok := f.store.addVariant("10.00", 5, true)
	short := f.store.addVariant("20.00", 5, true)
	f.setLine(t, ok, 1)
	f.setLine(t, short, 3)
	f.store.setStock(short, 2)

	_, err := f.checkout.CreateOrderFromCart(context.Background(), f.input())

	var oos *domain.OutOfStockError
	require.ErrorAs(t, err, &oos)
	assert.ErrorIs(t, err, domain.ErrOutOfStock)
	assert.Equal(t, []string{short}, oos.VariantIDs)
	assert.Equal(t, 0, f.store.orderCount())
	assert.Equal(t, map[string]int{ok: 1, short: 3}, f.store.cartQty(f.userID))
}

func TestCheckout_ReportsEveryBadLine(t *testing.T) {
	f := newCheckoutFixture(t)
	a := f.store.addVariant("10.00", 1, true)
	b := f.store.addVariant("10.00", 5, true)
	c := f.store.addVariant("10.00", 5, true)
	f.setLine(t, a, 2)
	f.setLine(t, b, 1)
	f.setLine(t, c, 1)
	f.store.mu.Lock()
	f.store.data.variants[c].Variant.IsActive = false
	f.store.mu.Unlock()

	_, err := f.checkout.CreateOrderFromCart(context.Background(), f.input())

	var oos *domain.OutOfStockError
	require.ErrorAs(t, err, &oos)
	assert.ElementsMatch(t, []string{a, c}, oos.VariantIDs)
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.checkout.CreateOrderFromCart(context.Background(), f.input())
	assert.ErrorIs(t, err, domain.ErrCartEmpty, "no cart yet")

	_, err = f.cart.Get(context.Background(), f.userID)
	require.NoError(t, err)

	_, err = f.checkout.CreateOrderFromCart(context.Background(), f.input())
	assert.ErrorIs(t, err, domain.ErrCartEmpty, "cart without lines")
}

func TestCheckout_RollsBackWhenEventWriteFails(t *testing.T) {
	f := newCheckoutFixture(t)
	v := f.store.addVariant("10.00", 5, true)
	f.setLine(t, v, 2)
	f.store.failOn["Orders.AppendEvent"] = assert.AnError

	_, err := f.checkout.CreateOrderFromCart(context.Background(), f.input())

	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 0, f.store.orderCount())
	assert.Equal(t, map[string]int{v: 2}, f.store.cartQty(f.userID))
}

func TestCheckout_RollsBackWhenCartClearFails(t *testing.T) {
	f := newCheckoutFixture(t)
	v := f.store.addVariant("10.00", 5, true)
	f.setLine(t, v, 1)
	f.store.failOn["Carts.DeleteItems"] = assert.AnError

	_, err := f.checkout.CreateOrderFromCart(context.Background(), f.input())

	require.Error(t, err)
	assert.Equal(t, 0, f.store.orderCount())
}
