package crosstalk

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ModelFitConfig controls the per-victim crosstalk model fit.
type ModelFitConfig struct {
	// NSig is the outlier rejection threshold in units of Noise.
	NSig float64
	// NumIter is the number of clip-and-refit rounds.
	NumIter int
	// Noise is the per-pixel read noise (electrons) used to scale the
	// rejection threshold.
	Noise float64
}

// DefaultModelFitConfig returns the standard fit settings.
func DefaultModelFitConfig() ModelFitConfig {
	return ModelFitConfig{NSig: 5.0, NumIter: 3, Noise: 6.0}
}

// Coefficients is the fitted crosstalk model for one aggressor-victim
// pair: victim = Crosstalk*aggressor + Offset + TiltY*y + TiltX*x.
type Coefficients struct {
	Crosstalk float64
	Offset    float64
	TiltY     float64
	TiltX     float64
}

// ErrStampMismatch is returned when aggressor and victim stamps have
// different shapes.
var ErrStampMismatch = errors.New("crosstalk: stamp shape mismatch")

// FitModel fits the crosstalk model of a victim stamp against its
// aggressor stamp by iterative linear least squares: the model
// includes the aggressor template plus a planar background, solved via
// QR, with pixels whose residual exceeds NSig*Noise clipped between
// rounds.
func FitModel(aggressor, victim Stamp, cfg ModelFitConfig) (Coefficients, error) {
	if aggressor.Rows != victim.Rows || aggressor.Cols != victim.Cols {
		return Coefficients{}, fmt.Errorf("%w: %dx%d vs %dx%d", ErrStampMismatch,
			aggressor.Rows, aggressor.Cols, victim.Rows, victim.Cols)
	}
	if cfg.NumIter <= 0 {
		cfg.NumIter = 1
	}
	if cfg.Noise <= 0 {
		cfg.Noise = 6.0
	}

	n := len(aggressor.Pix)
	keep := make([]bool, n)
	for i := range keep {
		keep[i] = true
	}

	var coeffs Coefficients
	for iter := 0; iter < cfg.NumIter; iter++ {
		var err error
		coeffs, err = solve(aggressor, victim, keep)
		if err != nil {
			return Coefficients{}, err
		}
		if iter == cfg.NumIter-1 || cfg.NSig <= 0 {
			break
		}
		// Clip pixels inconsistent with the current model.
		threshold := cfg.NSig * cfg.Noise
		for i := range keep {
			if !keep[i] {
				continue
			}
			y := float64(i / aggressor.Cols)
			x := float64(i % aggressor.Cols)
			model := coeffs.Crosstalk*aggressor.Pix[i] + coeffs.Offset + coeffs.TiltY*y + coeffs.TiltX*x
			if math.Abs(victim.Pix[i]-model) > threshold {
				keep[i] = false
			}
		}
	}
	return coeffs, nil
}

func solve(aggressor, victim Stamp, keep []bool) (Coefficients, error) {
	rows := 0
	for _, k := range keep {
		if k {
			rows++
		}
	}
	if rows < 4 {
		return Coefficients{}, fmt.Errorf("crosstalk: only %d pixels left after clipping", rows)
	}

	a := mat.NewDense(rows, 4, nil)
	b := mat.NewVecDense(rows, nil)
	r := 0
	for i, k := range keep {
		if !k {
			continue
		}
		a.Set(r, 0, aggressor.Pix[i])
		a.Set(r, 1, 1)
		a.Set(r, 2, float64(i/aggressor.Cols))
		a.Set(r, 3, float64(i%aggressor.Cols))
		b.SetVec(r, victim.Pix[i])
		r++
	}

	var qr mat.QR
	qr.Factorize(a)
	var sol mat.VecDense
	if err := qr.SolveVecTo(&sol, false, b); err != nil {
		return Coefficients{}, fmt.Errorf("crosstalk: least squares solve: %w", err)
	}
	return Coefficients{
		Crosstalk: sol.AtVec(0),
		Offset:    sol.AtVec(1),
		TiltY:     sol.AtVec(2),
		TiltX:     sol.AtVec(3),
	}, nil
}
