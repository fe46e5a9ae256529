package pacing

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/gwillem/digrig/pkg/device"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New(%+v): %v", cfg, err)
	}
	return e
}

func TestEngine_Interval(t *testing.T) {
	tests := []struct {
		rpm  float64
		want time.Duration
	}{
		{0.5, 60 * time.Second}, // 60 / (2 * 0.5)
		{1, 30 * time.Second},
		{2, 15 * time.Second},
		{-1, 30 * time.Second}, // direction does not matter
	}

	for _, tt := range tests {
		e := newEngine(t, Config{Speed: tt.rpm, Increment: 0.5, ExtendRate: 0.1})
		if got := e.Interval(); got != tt.want {
			t.Errorf("Interval() at %v rpm = %v, want %v", tt.rpm, got, tt.want)
		}
		if got := e.RotationPeriod(); got != 2*tt.want {
			t.Errorf("RotationPeriod() at %v rpm = %v, want %v", tt.rpm, got, 2*tt.want)
		}
	}
}

func TestEngine_SetSpeedRecomputes(t *testing.T) {
	e := newEngine(t, Config{Speed: 0.5, Increment: 0.5, ExtendRate: 0.1})
	if err := e.SetSpeed(3); err != nil {
		t.Fatal(err)
	}
	if got := e.Interval(); got != 10*time.Second {
		t.Errorf("Interval() = %v, want 10s", got)
	}

	// 1e-10 rpm would overflow time.Duration; 1e6 rpm steps every 30µs.
	for _, bad := range []float64{0, math.NaN(), math.Inf(1), 1e-10, -1e-10, 1e-300, 1e6} {
		if err := e.SetSpeed(bad); !errors.Is(err, ErrInvalidSpeed) {
			t.Errorf("SetSpeed(%v) = %v, want ErrInvalidSpeed", bad, err)
		}
	}
	if e.Speed() != 3 {
		t.Errorf("rejected SetSpeed changed speed to %v", e.Speed())
	}
}

func TestStepInterval_Bounds(t *testing.T) {
	tests := []struct {
		rpm  float64
		want time.Duration
	}{
		{0.0009765625, 30720 * time.Second}, // 2^-10 rpm
		{-0.0009765625, 30720 * time.Second},
		{15000, 2 * time.Millisecond},
	}
	for _, tt := range tests {
		got, err := StepInterval(tt.rpm)
		if err != nil {
			t.Errorf("StepInterval(%v): %v", tt.rpm, err)
			continue
		}
		if got != tt.want {
			t.Errorf("StepInterval(%v) = %v, want %v", tt.rpm, got, tt.want)
		}
	}

	if _, err := StepInterval(1e-4); !errors.Is(err, ErrInvalidSpeed) {
		t.Errorf("StepInterval(1e-4) = %v, want ErrInvalidSpeed (over %v)", err, MaxInterval)
	}
}

func TestNew_Rejects(t *testing.T) {
	bad := []Config{
		{Speed: 0, Increment: 0.5, ExtendRate: 0.1},
		{Speed: 1e-10, Increment: 0.5, ExtendRate: 0.1},
		{Speed: 1, Increment: 0, ExtendRate: 0.1},
		{Speed: 1, Increment: 0.5, ExtendRate: -1},
	}
	for _, cfg := range bad {
		if _, err := New(cfg); err == nil {
			t.Errorf("New(%+v) should fail", cfg)
		}
	}
}

func TestEngine_ExtensionRate(t *testing.T) {
	fixed := newEngine(t, Config{Speed: 1, Increment: 0.5, ExtendRate: 0.1})
	if got := fixed.ExtensionRate(4); got != 0.1 {
		t.Errorf("fixed ExtensionRate(4) = %v, want 0.1", got)
	}

	scaled := newEngine(t, Config{Speed: 1, Increment: 0.5, ExtendRate: 0.1, ScaleRate: true})
	tests := []struct {
		n    int
		want float64
	}{
		{1, 0.05},
		{2, 0.025},
		{4, 0.0125},
	}
	for _, tt := range tests {
		if got := scaled.ExtensionRate(tt.n); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("scaled ExtensionRate(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestEngine_Schedule(t *testing.T) {
	e := newEngine(t, Config{Speed: 1, Increment: 0.5, ExtendRate: 0.1})
	if e.Scheduled() || e.Due(t0.Add(time.Hour)) {
		t.Fatal("new engine should be unscheduled")
	}

	e.Schedule(t0)
	if !e.Next().Equal(t0.Add(30 * time.Second)) {
		t.Errorf("Next() = %v", e.Next())
	}
	if e.Due(t0.Add(29 * time.Second)) {
		t.Error("Due before deadline")
	}
	if !e.Due(t0.Add(30 * time.Second)) {
		t.Error("not Due at deadline")
	}

	e.Reset()
	if e.Scheduled() {
		t.Error("Reset left the engine scheduled")
	}
}

func TestEngine_CadenceIsPeriodic(t *testing.T) {
	e := newEngine(t, Config{Speed: 0.5, Increment: 0.5, ExtendRate: 0.1})
	travels := []device.Travel{{Current: 0, Min: 0, Max: 100, Limit: 0.5}}

	e.Schedule(t0)
	prev := e.Next()
	for range 10 {
		e.Step(prev, travels)
		next := e.Next()
		if gap := next.Sub(prev); gap != e.Interval() {
			t.Fatalf("deadline gap = %v, want %v", gap, e.Interval())
		}
		prev = next
	}
}

func TestEngine_StepReschedulesOnEveryOutcome(t *testing.T) {
	e := newEngine(t, Config{Speed: 1, Increment: 0.5, ExtendRate: 0.1})
	atMax := []device.Travel{{Current: 10, Min: 0, Max: 10, Limit: 10}}

	now := t0.Add(time.Minute)
	if plan := e.Step(now, atMax); plan.Outcome != MaxDepth {
		t.Fatalf("Outcome = %v, want max-depth", plan.Outcome)
	}
	if !e.Next().Equal(now.Add(e.Interval())) {
		t.Errorf("Next() = %v, want %v", e.Next(), now.Add(e.Interval()))
	}

	e.Skip(now.Add(time.Second))
	if !e.Next().Equal(now.Add(time.Second + e.Interval())) {
		t.Errorf("Skip did not reschedule: %v", e.Next())
	}
}

func TestEngine_Step(t *testing.T) {
	tests := []struct {
		name    string
		travels []device.Travel
		outcome Outcome
		limits  []float64
	}{
		{
			name: "advance all",
			travels: []device.Travel{
				{Current: 1, Min: 0, Max: 10, Limit: 1},
				{Current: 0.8, Min: 0, Max: 10, Limit: 1},
			},
			outcome: Advance,
			limits:  []float64{1.5, 1.5},
		},
		{
			name: "clamp uneven travel",
			travels: []device.Travel{
				{Current: 9.8, Min: 0, Max: 10, Limit: 9.8},
				{Current: 7, Min: 0, Max: 8, Limit: 7},
			},
			outcome: Clamp,
			limits:  []float64{10, 8},
		},
		{
			name: "one at max, one short",
			travels: []device.Travel{
				{Current: 10, Min: 0, Max: 10, Limit: 10},
				{Current: 7.9, Min: 0, Max: 8, Limit: 8},
			},
			outcome: Clamp,
			limits:  []float64{10, 8},
		},
		{
			name: "all at max",
			travels: []device.Travel{
				{Current: 10, Min: 0, Max: 10, Limit: 10},
				{Current: 8, Min: 0, Max: 8, Limit: 8},
			},
			outcome: MaxDepth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, Config{Speed: 1, Increment: 0.5, ExtendRate: 0.1})
			plan := e.Step(t0, tt.travels)
			if plan.Outcome != tt.outcome {
				t.Fatalf("Outcome = %v, want %v", plan.Outcome, tt.outcome)
			}
			if len(plan.Limits) != len(tt.limits) {
				t.Fatalf("Limits = %v, want %v", plan.Limits, tt.limits)
			}
			for i := range tt.limits {
				if math.Abs(plan.Limits[i]-tt.limits[i]) > 1e-9 {
					t.Errorf("Limits[%d] = %v, want %v", i, plan.Limits[i], tt.limits[i])
				}
			}
		})
	}
}

func TestEngine_InitialLimits(t *testing.T) {
	e := newEngine(t, Config{Speed: 1, Increment: 0.5, ExtendRate: 0.1})
	got := e.InitialLimits([]device.Travel{
		{Current: 0, Min: 0, Max: 10},
		{Current: 1, Min: 1, Max: 1.2},
	})
	want := []float64{0.5, 1.2}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("InitialLimits()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
