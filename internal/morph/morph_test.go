package morph

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-resynth/internal/module"
	"github.com/tphakala/go-resynth/internal/testutil"
)

const testFrame = 256

var testFormat = module.Format{SampleRate: 48000, FrameSize: testFrame, Channels: 2}

func operands(seedA, seedB float64) (a, b [][]complex128) {
	bins := testFormat.Bins()
	a = [][]complex128{testutil.Spectrum(bins, seedA), testutil.Spectrum(bins, seedA+10)}
	b = [][]complex128{testutil.Spectrum(bins, seedB), testutil.Spectrum(bins, seedB+10)}
	return a, b
}

func clone(x [][]complex128) [][]complex128 {
	out := make([][]complex128, len(x))
	for i := range x {
		out[i] = append([]complex128(nil), x[i]...)
	}
	return out
}

func build(t *testing.T, id string) module.Morph {
	t.Helper()
	r := NewRegistry()
	idx := r.IndexOf(id)
	require.GreaterOrEqual(t, idx, 0)
	m := r.New(idx)
	m.Reset(testFormat)
	return m
}

func TestRegistryOrder(t *testing.T) {
	r := NewRegistry()
	ids := make([]string, 0, r.Len())
	for _, e := range r.Entries() {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{IDNull, IDCrossSynthesis, IDVocoder, IDWaveMorph}, ids)
	assert.Equal(t, IDNull, r.At(42).ID)
	assert.NotContains(t, r.Labels(true), "Spectral Vocoder")
}

func TestNullIsInactiveIdentity(t *testing.T) {
	m := build(t, IDNull)
	assert.False(t, m.Active())
	a, b := operands(1, 2)
	want := clone(b)
	m.Morph(a, b)
	assert.Equal(t, want, b)
}

func TestVocoderIsInert(t *testing.T) {
	m := build(t, IDVocoder)
	assert.False(t, m.Active())
	require.True(t, m.Params().SetNumber(ParamSensitivity, 1))
	a, b := operands(1, 2)
	want := clone(b)
	m.Morph(a, b)
	assert.Equal(t, want, b)
}

func TestCrossSynthesisZeroAmountsLeaveB(t *testing.T) {
	for _, mode := range []string{ModePolar, ModeCepstral} {
		t.Run(mode, func(t *testing.T) {
			m := build(t, IDCrossSynthesis)
			p := m.Params()
			require.True(t, p.SetEnumString(ParamMorphMode, mode))
			p.SetNumber(ParamMagnitudeMorph, 0)
			p.SetNumber(ParamPhaseMorph, 0)

			a, b := operands(3, 4)
			want := clone(b)
			m.Morph(a, b)
			for ch := range b {
				testutil.AssertComplexInDelta(t, want[ch], b[ch], testutil.SpectralTolerance)
			}
		})
	}
}

func TestCrossSynthesisFullAmountsCopyA(t *testing.T) {
	m := build(t, IDCrossSynthesis)
	p := m.Params()
	p.SetNumber(ParamMagnitudeMorph, 1)
	p.SetNumber(ParamPhaseMorph, 1)

	a, b := operands(5, 6)
	m.Morph(a, b)
	for ch := range b {
		testutil.AssertComplexInDelta(t, a[ch], b[ch], 1e-9)
	}
}

func TestCrossSynthesisHalfMagnitude(t *testing.T) {
	m := build(t, IDCrossSynthesis)
	p := m.Params()
	p.SetNumber(ParamMagnitudeMorph, 0.5)
	p.SetNumber(ParamPhaseMorph, 0)

	a, b := operands(7, 8)
	orig := clone(b)
	m.Morph(a, b)
	for i := range b[0] {
		want := (cmplx.Abs(a[0][i]) + cmplx.Abs(orig[0][i])) / 2
		assert.InDelta(t, want, cmplx.Abs(b[0][i]), 1e-9, "bin %d", i)
		assert.InDelta(t, 0, math.Abs(phaseDelta(b[0][i], orig[0][i])), 1e-9, "bin %d phase", i)
	}
}

// A uniformly scaled operand has the same envelope shape shifted by the log
// gain, so a full cepstral magnitude morph applies exactly that gain.
func TestCepstralMorphTransfersEnvelopeGain(t *testing.T) {
	m := build(t, IDCrossSynthesis)
	p := m.Params()
	p.SetEnumString(ParamMorphMode, ModeCepstral)
	p.SetNumber(ParamPhaseMorph, 0)

	for _, amt := range []float64{1, 0.5} {
		p.SetNumber(ParamMagnitudeMorph, amt)
		_, b := operands(9, 9)
		a := clone(b)
		for ch := range a {
			for i := range a[ch] {
				a[ch][i] *= 2
			}
		}
		orig := clone(b)
		m.Morph(a, b)
		gain := math.Pow(2, amt)
		for i := range b[0] {
			testutil.AssertRelativeError(t, gain*cmplx.Abs(orig[0][i]), cmplx.Abs(b[0][i]), 1e-6)
		}
	}
}

func TestCepstralEmphasisVisibility(t *testing.T) {
	m := build(t, IDCrossSynthesis)
	p := m.Params()
	hasEmphasis := func() bool {
		for _, d := range p.Descriptors(false) {
			if d.ID == ParamEmphasis {
				return true
			}
		}
		return false
	}
	assert.False(t, hasEmphasis())
	p.SetEnumString(ParamMorphMode, ModeCepstral)
	assert.True(t, hasEmphasis())
	assert.True(t, p.RequiresRebuild(ParamMorphMode))
	assert.False(t, p.RequiresRebuild(ParamEmphasis))
}

func TestWaveMorphZeroAmountsRestoreSecondOperand(t *testing.T) {
	for _, shape := range []string{ShapeSquare, ShapeSaw, ShapeTriangle} {
		t.Run(shape, func(t *testing.T) {
			m := build(t, IDWaveMorph)
			p := m.Params()
			p.SetEnumString(ParamWaveShape, shape)
			p.SetNumber(ParamStartFrequency, 0.05)
			p.SetNumber(ParamMagnitudeMorph, 0)
			p.SetNumber(ParamPhaseMorph, 0)

			a, b := operands(11, 12)
			aOrig := clone(a)
			want := clone(b)
			m.Morph(a, b)
			for ch := range b {
				testutil.AssertComplexInDelta(t, want[ch], b[ch], testutil.SpectralTolerance)
			}
			assert.Equal(t, aOrig, a, "operand a must not be modified")
		})
	}
}

func TestWaveMorphIdenticalOperands(t *testing.T) {
	m := build(t, IDWaveMorph)
	p := m.Params()
	p.SetNumber(ParamMagnitudeMorph, 1)
	p.SetNumber(ParamPhaseMorph, 1)
	_, b := operands(13, 13)
	a := clone(b)
	want := clone(b)
	m.Morph(a, b)
	for ch := range b {
		testutil.AssertComplexInDelta(t, want[ch], b[ch], 1e-9)
	}
}

func TestHarmonicAmplitude(t *testing.T) {
	assert.InDelta(t, 1.0, HarmonicAmplitude(Square, 1), 0)
	assert.InDelta(t, 0.0, HarmonicAmplitude(Square, 2), 0)
	assert.InDelta(t, 1.0/3, HarmonicAmplitude(Square, 3), 1e-15)
	assert.InDelta(t, 0.5, HarmonicAmplitude(Saw, 2), 0)
	assert.InDelta(t, -1.0/9, HarmonicAmplitude(Triangle, 3), 1e-15)
	assert.InDelta(t, 1.0/25, HarmonicAmplitude(Triangle, 5), 1e-15)
	assert.InDelta(t, 0.0, HarmonicAmplitude(Triangle, 4), 0)
	assert.InDelta(t, 0.0, HarmonicAmplitude(Saw, 0), 0)
}

func TestExtractHarmonicsStopsAtSpectrumEdge(t *testing.T) {
	x := testutil.Spectrum(100, 1)
	h := make([]complex128, len(x))
	n := extractHarmonics(x, h, 7, Saw)
	assert.Equal(t, 14, n, "harmonics at 7..98 fit, 105 does not")

	restoreHarmonics(x, h, n, 7)
	testutil.AssertComplexInDelta(t, testutil.Spectrum(100, 1), x, 1e-12)

	assert.Equal(t, 0, extractHarmonics(x, h, 0, Saw))
	assert.Equal(t, 0, extractHarmonics(x, h, 100, Saw))
}

func TestExtractHarmonicsRemovesFundamental(t *testing.T) {
	x := testutil.Spectrum(64, 2)
	h := make([]complex128, len(x))
	extractHarmonics(x, h, 4, Square)
	assert.InDelta(t, 0, cmplx.Abs(x[4]), 1e-12, "fundamental bin is fully removed")
}

func TestMinHarmonicBin(t *testing.T) {
	assert.Equal(t, 1, minHarmonicBin(0, 129))
	assert.Equal(t, 13, minHarmonicBin(0.1, 129))
}

func TestMorphIgnoresMismatchedFrames(t *testing.T) {
	for _, id := range []string{IDCrossSynthesis, IDWaveMorph} {
		m := build(t, id)
		a := [][]complex128{testutil.Spectrum(10, 1)}
		b := [][]complex128{testutil.Spectrum(12, 2)}
		want := clone(b)
		assert.NotPanics(t, func() { m.Morph(a, b) })
		assert.Equal(t, want, b)
	}
}
