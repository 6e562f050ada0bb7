package indicator_test

import (
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"go.jacobcolvin.com/hostprof/indicator"
	"go.jacobcolvin.com/hostprof/loop"
)

// fakeSurface records what the indicator draws.
type fakeSurface struct {
	texts   []string
	visible bool
}

func (s *fakeSurface) SetVisible(v bool) { s.visible = v }

func (s *fakeSurface) SetText(text string) { s.texts = append(s.texts, text) }

func (s *fakeSurface) text() string {
	if len(s.texts) == 0 {
		return ""
	}

	return s.texts[len(s.texts)-1]
}

type fixture struct {
	ind     *indicator.Indicator
	surface *fakeSurface
	clock   *fakeClock
	loop    *loop.Loop
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		surface: &fakeSurface{visible: true},
		clock:   newFakeClock(),
		loop:    loop.New(),
	}
	f.ind = indicator.New(f.surface, f.loop, indicator.WithClock(f.clock))

	return f
}

// advance moves the clock and runs the redraws the ticks posted.
func (f *fixture) advance(d time.Duration) {
	f.clock.Advance(d)
	f.loop.Drain()
}

func TestNew(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	assert.False(t, f.ind.Visible())
	assert.False(t, f.surface.visible, "attaching hides the surface")
	assert.Equal(t, indicator.Label, f.surface.text())
	assert.Equal(t, indicator.Label, f.ind.Label())
	assert.Zero(t, f.clock.live())
}

func TestIndicatorShow(t *testing.T) {
	t.Parallel()

	t.Run("draws immediately", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.ind.Show(func() {})

		assert.True(t, f.ind.Visible())
		assert.True(t, f.surface.visible)
		assert.Equal(t, "Profiling extension host (0 sec)", f.surface.text())
		assert.Equal(t, 1, f.clock.live())
	})

	t.Run("tick rounds elapsed seconds", func(t *testing.T) {
		t.Parallel()

		tcs := map[string]struct {
			elapsed time.Duration
			want    string
		}{
			"rounds down": {
				elapsed: 2400 * time.Millisecond,
				want:    "Profiling extension host (2 sec)",
			},
			"rounds up": {
				elapsed: 2600 * time.Millisecond,
				want:    "Profiling extension host (3 sec)",
			},
			"one minute": {
				elapsed: time.Minute,
				want:    "Profiling extension host (60 sec)",
			},
		}

		for name, tc := range tcs {
			t.Run(name, func(t *testing.T) {
				t.Parallel()

				f := newFixture(t)
				f.ind.Show(func() {})

				f.advance(tc.elapsed)

				assert.Equal(t, tc.want, f.surface.text())
				assert.Equal(t, tc.want, f.ind.Label())
			})
		}
	})

	t.Run("redraws once per interval", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.ind.Show(func() {})

		before := len(f.surface.texts)
		f.advance(3 * time.Second)

		assert.Len(t, f.surface.texts, before+3)
	})

	t.Run("custom interval", func(t *testing.T) {
		t.Parallel()

		surface := &fakeSurface{}
		clock := newFakeClock()
		l := loop.New()
		ind := indicator.New(surface, l, indicator.WithClock(clock), indicator.WithInterval(500*time.Millisecond))

		ind.Show(func() {})

		before := len(surface.texts)
		clock.Advance(2 * time.Second)
		l.Drain()

		assert.Len(t, surface.texts, before+4)
	})

	t.Run("second show keeps origin and timer", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		var clicked []string

		f.ind.Show(func() { clicked = append(clicked, "first") })
		f.advance(3 * time.Second)

		f.ind.Show(func() { clicked = append(clicked, "second") })

		assert.Equal(t, "Profiling extension host (3 sec)", f.ind.Label())
		assert.Equal(t, 1, f.clock.live(), "re-show must not start another timer")

		f.ind.Click()
		assert.Equal(t, []string{"second"}, clicked)
	})
}

func TestIndicatorHide(t *testing.T) {
	t.Parallel()

	t.Run("resets state and cancels timer", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		clicks := 0

		f.ind.Show(func() { clicks++ })
		f.advance(2 * time.Second)

		f.ind.Hide()

		assert.False(t, f.ind.Visible())
		assert.False(t, f.surface.visible)
		assert.Equal(t, indicator.Label, f.ind.Label())
		assert.Zero(t, f.clock.live())

		f.ind.Click()
		assert.Zero(t, clicks, "hidden indicator ignores clicks")
	})

	t.Run("drops ticks posted before hide", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.ind.Show(func() {})

		// The tick is posted but not yet run when Hide happens.
		f.clock.Advance(time.Second)
		f.ind.Hide()

		drawn := len(f.surface.texts)
		f.loop.Drain()

		assert.Len(t, f.surface.texts, drawn)
		assert.Equal(t, indicator.Label, f.surface.text())
	})

	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		f.ind.Hide()
		f.ind.Hide()

		assert.False(t, f.ind.Visible())
		assert.Zero(t, f.clock.live())
	})

	t.Run("show after hide restarts elapsed time", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		f.ind.Show(func() {})
		f.advance(5 * time.Second)
		f.ind.Hide()

		f.advance(5 * time.Second)
		f.ind.Show(func() {})

		assert.Equal(t, "Profiling extension host (0 sec)", f.surface.text())
		assert.Equal(t, 1, f.clock.live())
	})
}

func TestIndicatorClick(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	// Never shown.
	f.ind.Click()

	clicks := 0

	f.ind.Show(func() { clicks++ })
	f.ind.Click()
	f.ind.Click()

	assert.Equal(t, 2, clicks)
}

var labelSeconds = regexp.MustCompile(`\((\d+) sec\)$`)

func seconds(t *rapid.T, label string) int {
	m := labelSeconds.FindStringSubmatch(label)
	if m == nil {
		t.Fatalf("label %q has no elapsed time", label)
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		t.Fatalf("parse seconds: %v", err)
	}

	return n
}

// TestIndicatorShowMonotonic checks that repeated Show calls without a Hide
// never move the elapsed time backwards.
func TestIndicatorShowMonotonic(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		surface := &fakeSurface{}
		clock := newFakeClock()
		l := loop.New()
		ind := indicator.New(surface, l, indicator.WithClock(clock))

		ind.Show(func() {})

		prev := seconds(rt, surface.text())

		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for range steps {
			clock.Advance(time.Duration(rapid.IntRange(0, 3000).Draw(rt, "ms")) * time.Millisecond)

			if rapid.Bool().Draw(rt, "reshow") {
				ind.Show(func() {})
			}

			l.Drain()

			got := seconds(rt, ind.Label())
			if got < prev {
				rt.Fatalf("elapsed went backwards: %d -> %d", prev, got)
			}

			prev = got

			if clock.live() != 1 {
				rt.Fatalf("%d live timers", clock.live())
			}
		}
	})
}

func TestIndicatorElapsedScenario(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.ind.Show(func() {})

	f.clock.Advance(2400 * time.Millisecond)
	require.Positive(t, f.loop.Pending(), "ticks are delivered through the loop")

	f.loop.Drain()
	assert.Equal(t, "Profiling extension host (2 sec)", f.surface.text())
}
