package selectctx_test

import (
	"fmt"
	"testing"

	"github.com/vango-dev/selectctx/pkg/selectctx"
	"github.com/vango-dev/selectctx/pkg/seltest"
)

type appState struct {
	User  *userInfo
	Cart  *cartInfo
	Theme string
}

type userInfo struct {
	Name string
}

type cartInfo struct {
	Count int
}

func TestSelectiveSubscriptionEndToEnd(t *testing.T) {
	obs := seltest.NewRecordingObserver()
	h := seltest.NewHarness(
		appState{User: &userInfo{Name: "ada"}, Cart: &cartInfo{Count: 0}},
		selectctx.WithName("app"),
		selectctx.WithObserver(obs),
	)
	defer h.Dispose()

	var userName string
	userBadge := h.Mount("user-badge", func() {
		u := selectctx.UseSelector(h.Ctx, func(s appState) *userInfo { return s.User })
		userName = u.Name
	})

	var cartCount int
	cartBadge := h.Mount("cart-badge", func() {
		c := selectctx.UseSelector(h.Ctx, func(s appState) *cartInfo { return s.Cart })
		cartCount = c.Count
	})

	// Add an item: only the cart consumer re-renders.
	prev := h.Value()
	h.Set(appState{User: prev.User, Cart: &cartInfo{Count: 1}, Theme: prev.Theme})

	seltest.ExpectRenders(t, userBadge, 1)
	seltest.ExpectRenders(t, cartBadge, 2)
	if cartCount != 1 || userName != "ada" {
		t.Errorf("cart=%d user=%q, want cart=1 user=ada", cartCount, userName)
	}

	// Change an unrelated field: both consumers bail out.
	prev = h.Value()
	h.Set(appState{User: prev.User, Cart: prev.Cart, Theme: "dark"})

	seltest.ExpectRenders(t, userBadge, 1)
	seltest.ExpectRenders(t, cartBadge, 2)
	seltest.ExpectVersion(t, h.Ctx.Cell(), 3)

	if obs.Count(seltest.EventCommit) != 2 {
		t.Errorf("expected 2 commits, got %d", obs.Count(seltest.EventCommit))
	}
	if obs.Count(seltest.EventBailout) == 0 {
		t.Error("expected bail-outs for the unrelated change")
	}
}

func ExampleUseSelector() {
	loop := selectctx.NewLoop()
	ctx := selectctx.CreateContext(appState{Cart: &cartInfo{Count: 0}},
		selectctx.WithScheduler(loop),
	)

	loop.Mount("cart-badge", func() {
		cart := selectctx.UseSelector(ctx, func(s appState) *cartInfo { return s.Cart })
		fmt.Printf("cart: %d items\n", cart.Count)
	})

	ctx.Cell().Update(func() {
		ctx.Cell().Set(appState{Cart: &cartInfo{Count: 2}})
	})

	// Output:
	// cart: 0 items
	// cart: 2 items
}
