package animation

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type countingObserver struct {
	mu     sync.Mutex
	loads  int
	ticks  int
	maxIdx int
}

func (obs *countingObserver) Loaded(Frame) {
	obs.mu.Lock()
	defer obs.mu.Unlock()
	obs.loads++
}

func (obs *countingObserver) Ticked(f Frame) {
	obs.mu.Lock()
	defer obs.mu.Unlock()
	obs.ticks++
	obs.maxIdx = f.Index
}

// awaitFrame reads frames until pred holds or the timeout elapses.
func awaitFrame(p *Player, timeout time.Duration, pred func(Frame) bool) (Frame, bool) {
	deadline := time.After(timeout)
	for {
		select {
		case f := <-p.Frames():
			if pred(f) {
				return f, true
			}
		case <-deadline:
			return Frame{}, false
		}
	}
}

func TestPlayer(t *testing.T) {
	cfg := Config{TickInterval: time.Millisecond, HaltOnDone: true}

	Convey("When a path is played", t, func() {
		obs := &countingObserver{}
		player := NewPlayer(cfg, discard, obs)
		defer player.Stop()

		first := player.Load(straightPath(3))
		So(first.Index, ShouldEqual, 0)
		So(first.State, ShouldEqual, Playing)

		Convey("Playback advances monotonically to the final cell", func() {
			last := -1
			final, ok := awaitFrame(player, 2*time.Second, func(f Frame) bool {
				So(f.Index, ShouldBeGreaterThanOrEqualTo, last)
				So(f.Index, ShouldBeLessThanOrEqualTo, 2)
				last = f.Index
				return f.State == Done
			})
			So(ok, ShouldBeTrue)
			So(final.Index, ShouldEqual, 2)

			head, ok := final.Head()
			So(ok, ShouldBeTrue)
			So(head.Col, ShouldEqual, 2)

			Convey("The index stays pinned and the observer saw every step", func() {
				time.Sleep(20 * time.Millisecond)
				So(player.Snapshot().Index, ShouldEqual, 2)
				obs.mu.Lock()
				defer obs.mu.Unlock()
				So(obs.loads, ShouldEqual, 1)
				So(obs.ticks, ShouldEqual, 2)
				So(obs.maxIdx, ShouldEqual, 2)
			})
		})
	})

	Convey("When an empty path is loaded", t, func() {
		player := NewPlayer(cfg, discard)
		defer player.Stop()
		frame := player.Load(nil)

		Convey("No timer runs and no head is drawn", func() {
			So(frame.State, ShouldEqual, Idle)
			_, ok := frame.Head()
			So(ok, ShouldBeFalse)
			time.Sleep(10 * time.Millisecond)
			So(player.Snapshot().State, ShouldEqual, Idle)
		})
	})

	Convey("When a single cell path is played", t, func() {
		player := NewPlayer(cfg, discard)
		defer player.Stop()
		player.Load(straightPath(1))

		Convey("The done frame is still published", func() {
			final, ok := awaitFrame(player, 2*time.Second, func(f Frame) bool { return f.State == Done })
			So(ok, ShouldBeTrue)
			So(final.Index, ShouldEqual, 0)
		})
	})

	Convey("When a new path replaces one still playing", t, func() {
		player := NewPlayer(cfg, discard)
		defer player.Stop()

		player.Load(straightPath(10000))
		time.Sleep(5 * time.Millisecond)
		replaced := player.Load(straightPath(4))
		So(replaced.Generation, ShouldEqual, 2)
		So(replaced.Index, ShouldEqual, 0)

		Convey("Only the new path is stepped", func() {
			final, ok := awaitFrame(player, 2*time.Second, func(f Frame) bool {
				So(f.Generation, ShouldEqual, 2)
				So(len(f.Path), ShouldEqual, 4)
				return f.State == Done
			})
			So(ok, ShouldBeTrue)
			So(final.Index, ShouldEqual, 3)
		})
	})

	Convey("When playback is stopped", t, func() {
		player := NewPlayer(Config{TickInterval: time.Millisecond}, discard)
		player.Load(straightPath(10000))
		time.Sleep(5 * time.Millisecond)
		player.Stop()
		stopped := player.Snapshot().Index

		Convey("The index no longer moves", func() {
			time.Sleep(10 * time.Millisecond)
			So(player.Snapshot().Index, ShouldEqual, stopped)
		})
	})

	Convey("When the timer is kept running past the end", t, func() {
		player := NewPlayer(Config{TickInterval: time.Millisecond, HaltOnDone: false}, discard)
		defer player.Stop()
		player.Load(straightPath(2))

		Convey("Extra ticks are harmless no-ops", func() {
			_, ok := awaitFrame(player, 2*time.Second, func(f Frame) bool { return f.State == Done })
			So(ok, ShouldBeTrue)
			time.Sleep(10 * time.Millisecond)
			snap := player.Snapshot()
			So(snap.Index, ShouldEqual, 1)
			So(snap.State, ShouldEqual, Done)
		})
	})
}
