// Package seltest provides testing helpers for selectctx consumers.
//
// The seltest package reduces boilerplate when testing selector
// subscriptions by providing a loop-backed harness, a recording protocol
// observer, and render-count assertions.
//
// # Quick Start
//
//	func TestCartBadge(t *testing.T) {
//	    h := seltest.NewHarness(CartState{})
//	    badge := h.Mount("badge", func() {
//	        count = selectctx.UseSelector(h.Ctx, func(s CartState) int { return s.Count })
//	    })
//	    h.Set(CartState{Count: 3})
//	    seltest.ExpectRenders(t, badge, 2)
//	}
//
// # Recording Observer
//
// Attach a RecordingObserver to assert on the update protocol itself:
//
//	obs := seltest.NewRecordingObserver()
//	h := seltest.NewHarness(0, selectctx.WithObserver(obs))
//	h.Set(1)
//	if obs.Count(seltest.EventBroadcast) != 2 {
//	    t.Error("expected both phases to broadcast")
//	}
//
// # Counting Listener
//
// For tests that drive a Subscription or Cell without a loop, a
// CountingListener records wakeups:
//
//	l := seltest.NewCountingListener()
//	unsub := cell.Subscribe(func(selectctx.Notification[int]) { l.MarkDirty() })
//	defer unsub()
package seltest
