package crosstalk

import (
	"fmt"
	"math"
)

// StackProvider supplies calibrated, stacked amplifier images for one
// sensor. Amplifier numbering is 1-based, following readout channel
// convention. Implementations wrap the instrument image pipeline;
// image I/O stays outside this package.
type StackProvider interface {
	NumAmps() int
	CalibratedStack(amp int) (Image, error)
}

// Matrix maps (aggressor amp, victim amp) pairs to fitted crosstalk
// coefficients. Rows are filled incrementally, one aggressor at a
// time; amps without a detected aggressor spot keep NaN rows.
type Matrix struct {
	AggressorSensor string
	VictimSensor    string
	NumAmps         int
	coeffs          map[int]map[int]float64
}

// NewMatrix creates an empty matrix for the given sensor pair.
func NewMatrix(aggressorSensor, victimSensor string, numAmps int) *Matrix {
	return &Matrix{
		AggressorSensor: aggressorSensor,
		VictimSensor:    victimSensor,
		NumAmps:         numAmps,
		coeffs:          make(map[int]map[int]float64),
	}
}

// SetRow records the fitted coefficients for one aggressor amplifier.
func (m *Matrix) SetRow(aggressor int, row map[int]float64) {
	copied := make(map[int]float64, len(row))
	for k, v := range row {
		copied[k] = v
	}
	m.coeffs[aggressor] = copied
}

// Coefficient returns the crosstalk coefficient for an aggressor and
// victim amplifier, or NaN when the aggressor row was never measured.
func (m *Matrix) Coefficient(aggressor, victim int) float64 {
	row, ok := m.coeffs[aggressor]
	if !ok {
		return math.NaN()
	}
	v, ok := row[victim]
	if !ok {
		return math.NaN()
	}
	return v
}

// Rows returns the aggressor amplifiers that have been measured.
func (m *Matrix) Rows() []int {
	out := make([]int, 0, len(m.coeffs))
	for amp := 1; amp <= m.NumAmps; amp++ {
		if _, ok := m.coeffs[amp]; ok {
			out = append(out, amp)
		}
	}
	return out
}

// MeasureConfig controls the matrix measurement.
type MeasureConfig struct {
	// Threshold is the minimum mean signal (electrons) inside the
	// search disk for a spot to count as an aggressor.
	Threshold float64
	// MaxAggressors stops the search early once this many aggressor
	// spots have been measured; a projector position illuminates only
	// a handful of amplifiers.
	MaxAggressors int
	// SmoothSigma is the Gaussian sigma used to suppress noise before
	// locating the spot peak; it also sets the search disk radius.
	SmoothSigma float64
	// StampSize is the cutout side length around each aggressor.
	StampSize int
	// Fit configures the per-victim model fit.
	Fit ModelFitConfig
}

// DefaultMeasureConfig returns the standard measurement settings.
func DefaultMeasureConfig() MeasureConfig {
	return MeasureConfig{
		Threshold:     40000,
		MaxAggressors: 4,
		SmoothSigma:   20,
		StampSize:     200,
		Fit:           DefaultModelFitConfig(),
	}
}

// MeasureMatrix searches every aggressor amplifier for a bright spot
// and, for each one found, fits the induced signal in every victim
// amplifier at the same pixel location, building the matrix row by
// row. The aggressor and victim providers may be the same object when
// measuring intra-sensor crosstalk.
func MeasureMatrix(aggressorSensor, victimSensor string, agg, vic StackProvider, cfg MeasureConfig) (*Matrix, error) {
	matrix := NewMatrix(aggressorSensor, victimSensor, agg.NumAmps())
	found := 0

	for amp := 1; amp <= agg.NumAmps(); amp++ {
		stack, err := agg.CalibratedStack(amp)
		if err != nil {
			return nil, fmt.Errorf("aggressor amp %d: %w", amp, err)
		}

		smoothed := GaussianSmooth(stack, cfg.SmoothSigma)
		py, px := Peak(smoothed)
		if DiskMean(smoothed, py, px, cfg.SmoothSigma) <= cfg.Threshold {
			continue
		}

		aggressorStamp := MakeStamp(stack, py, px, cfg.StampSize)
		row := make(map[int]float64, vic.NumAmps())
		for victim := 1; victim <= vic.NumAmps(); victim++ {
			victimStack, err := vic.CalibratedStack(victim)
			if err != nil {
				return nil, fmt.Errorf("victim amp %d: %w", victim, err)
			}
			victimStamp := MakeStamp(victimStack, py, px, cfg.StampSize)
			coeffs, err := FitModel(aggressorStamp, victimStamp, cfg.Fit)
			if err != nil {
				return nil, fmt.Errorf("fit aggressor %d victim %d: %w", amp, victim, err)
			}
			row[victim] = coeffs.Crosstalk
		}
		matrix.SetRow(amp, row)

		found++
		if cfg.MaxAggressors > 0 && found >= cfg.MaxAggressors {
			break
		}
	}
	return matrix, nil
}
