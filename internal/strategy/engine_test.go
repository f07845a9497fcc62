package strategy

import (
	"math"
	"math/rand"
	"testing"

	"SignalDesk/internal/model"
)

func trend(n int, start, step float64, tail int, tailStep float64) []model.Candle {
	candles := make([]model.Candle, 0, n+tail)
	p := start
	add := func(next float64) {
		open := p
		p = next
		candles = append(candles, model.Candle{
			Time:  int64(len(candles) * 60),
			Open:  open,
			High:  math.Max(open, p),
			Low:   math.Min(open, p),
			Close: p,
		})
	}
	for i := 0; i < n; i++ {
		add(p + step)
	}
	for i := 0; i < tail; i++ {
		add(p + tailStep)
	}
	return candles
}

func TestEvaluate_InsufficientData(t *testing.T) {
	sig := Evaluate(trend(10, 100, 0.1, 0, 0), DefaultParams())
	if sig.Signal != model.SignalHold {
		t.Errorf("expected HOLD, got %q", sig.Signal)
	}
	if sig.Reason == "" {
		t.Error("expected a reason for insufficient data")
	}
	if Classify(nil, DefaultParams()) != model.SignalHold {
		t.Error("expected HOLD for empty input")
	}
}

func TestEvaluate_SharpSellOff(t *testing.T) {
	sig := Evaluate(trend(50, 100, 0.1, 10, -1), DefaultParams())
	if len(sig.Factors) != 5 {
		t.Fatalf("expected 5 factors, got %d", len(sig.Factors))
	}
	if sig.Signal != model.SignalCall {
		t.Errorf("score %.3f: expected %q, got %q", sig.TotalScore, model.SignalCall, sig.Signal)
	}
}

func TestEvaluate_SharpRally(t *testing.T) {
	sig := Evaluate(trend(50, 100, -0.1, 10, 1), DefaultParams())
	if sig.Signal != model.SignalPut {
		t.Errorf("score %.3f: expected %q, got %q", sig.TotalScore, model.SignalPut, sig.Signal)
	}
}

func TestEvaluate_FlatMarketHolds(t *testing.T) {
	sig := Evaluate(trend(60, 100, 0, 0, 0), DefaultParams())
	if sig.Signal != model.SignalHold {
		t.Errorf("score %.3f: expected HOLD, got %q", sig.TotalScore, sig.Signal)
	}
}

func TestEvaluate_WeightsSumToOne(t *testing.T) {
	sig := Evaluate(trend(60, 100, 0.05, 0, 0), DefaultParams())
	sum := 0.0
	for _, f := range sig.Factors {
		sum += f.Weight
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("expected weights to sum to 1, got %.3f", sum)
	}
}

func TestClassify_AlwaysInSet(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for seed := 0; seed < 50; seed++ {
		n := r.Intn(120)
		candles := make([]model.Candle, n)
		p := 100.0
		for i := range candles {
			open := p
			p += r.Float64()*4 - 2
			candles[i] = model.Candle{Time: int64(i * 60), Open: open, High: math.Max(open, p) + r.Float64(), Low: math.Min(open, p) - r.Float64(), Close: p}
		}
		if sig := Classify(candles, DefaultParams()); !sig.Valid() {
			t.Fatalf("seed %d: invalid signal %q", seed, sig)
		}
	}
}

func TestClassify_Idempotent(t *testing.T) {
	candles := trend(50, 100, 0.1, 10, -1)
	first := Classify(candles, DefaultParams())
	for i := 0; i < 3; i++ {
		if got := Classify(candles, DefaultParams()); got != first {
			t.Fatalf("run %d: expected %q, got %q", i, first, got)
		}
	}
}

func TestMapSignal(t *testing.T) {
	p := DefaultParams()
	cases := []struct {
		score    float64
		expected model.Signal
	}{
		{1.2, model.SignalCall},
		{0.5, model.SignalCall},
		{0.49, model.SignalHold},
		{0, model.SignalHold},
		{-0.5, model.SignalPut},
		{-2, model.SignalPut},
		{math.NaN(), model.SignalHold},
		{math.Inf(1), model.SignalHold},
	}
	for _, tc := range cases {
		if got := mapSignal(tc.score, p); got != tc.expected {
			t.Errorf("score %.2f: expected %q, got %q", tc.score, tc.expected, got)
		}
	}
}

func TestScoreRSI_Zones(t *testing.T) {
	cases := []struct {
		rsi      float64
		expected float64
	}{
		{15, 2.0},
		{25, 1.0},
		{50, 0},
		{72, -1.0},
		{90, -2.0},
	}
	for _, tc := range cases {
		f := scoreRSI([]model.LinePoint{{Value: tc.rsi}})
		if f.RawScore != tc.expected {
			t.Errorf("RSI %.0f: expected %.1f, got %.1f", tc.rsi, tc.expected, f.RawScore)
		}
	}
	if f := scoreRSI(nil); f.Commentary != "unavailable" || f.Weighted != 0 {
		t.Errorf("expected unavailable factor, got %+v", f)
	}
}
