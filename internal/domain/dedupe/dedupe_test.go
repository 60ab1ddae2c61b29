package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/intervue/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it should start empty", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When recording keys", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the key is new", func() {
				seen := d.SeenAndRecord(ctx, "s1@2000")

				Convey("Then it should return false and record the key", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the key was already seen", func() {
				d.SeenAndRecord(ctx, "s1@2000")
				seen := d.SeenAndRecord(ctx, "s1@2000")

				Convey("Then it should return true", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})
		})

		Convey("When forgetting keys", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(4))
			d.SeenAndRecord(ctx, "a")
			d.SeenAndRecord(ctx, "b")
			d.Forget(ctx, "a")
			d.Forget(ctx, "missing")

			Convey("Then the key can be recorded again", func() {
				So(d.Size(), ShouldEqual, 1)
				So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
				So(d.SeenAndRecord(ctx, "b"), ShouldBeTrue)
			})
		})

		Convey("When using bounded mode at capacity", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
			for _, k := range []string{"k1", "k2", "k3"} {
				So(d.SeenAndRecord(ctx, k), ShouldBeFalse)
			}
			So(d.SeenAndRecord(ctx, "k4"), ShouldBeFalse)

			Convey("Then the oldest key is forgotten first", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "k2"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "k3"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "k4"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "k1"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 3)
			})
		})

		Convey("When using unbounded mode", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
			const numKeys = 1000
			for i := 0; i < numKeys; i++ {
				So(d.SeenAndRecord(ctx, fmt.Sprintf("key-%d", i)), ShouldBeFalse)
			}

			Convey("Then all keys are remembered", func() {
				So(d.Size(), ShouldEqual, int64(numKeys))
				for i := 0; i < numKeys; i++ {
					So(d.SeenAndRecord(ctx, fmt.Sprintf("key-%d", i)), ShouldBeTrue)
				}
			})
		})
	})
}

func TestTickKey(t *testing.T) {
	Convey("Given tick keys", t, func() {
		So(dedupe.TickKey("s1", 2.0), ShouldEqual, "s1@2000")
		So(dedupe.TickKey("s1", 4.0), ShouldNotEqual, dedupe.TickKey("s1", 2.0))
		So(dedupe.TickKey("s2", 2.0), ShouldNotEqual, dedupe.TickKey("s1", 2.0))
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given a deduper with concurrent access", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1000))
		const numGoroutines = 10
		const keysPerGoroutine = 100

		Convey("When multiple goroutines record the same keys", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			firsts := 0
			for i := 0; i < numGoroutines; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < keysPerGoroutine; j++ {
						if !d.SeenAndRecord(context.Background(), fmt.Sprintf("key-%d", j)) {
							mu.Lock()
							firsts++
							mu.Unlock()
						}
					}
				}()
			}
			wg.Wait()

			Convey("Then each key is recorded exactly once", func() {
				So(firsts, ShouldEqual, keysPerGoroutine)
				So(d.Size(), ShouldEqual, int64(keysPerGoroutine))
			})
		})
	})
}
