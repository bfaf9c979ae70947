// Package catalog provides the source-catalog collaborators of the
// grid pipeline: an in-memory table implementing the schema capability
// the core requires, and a SQLite backing store for catalogs and
// fitted grid results.
package catalog

import "math"

// FieldMap names the backing-store columns that supply each capability
// field. Only the store layer ever sees these names; the core operates
// on the SourceCatalog interface.
type FieldMap struct {
	Y    string `mapstructure:"y" yaml:"y" json:"y"`
	X    string `mapstructure:"x" yaml:"x" json:"x"`
	XX   string `mapstructure:"xx" yaml:"xx" json:"xx"`
	YY   string `mapstructure:"yy" yaml:"yy" json:"yy"`
	Flux string `mapstructure:"flux" yaml:"flux" json:"flux"`
}

// DefaultFieldMap returns the standard SdssShape column names.
func DefaultFieldMap() FieldMap {
	return FieldMap{
		Y:    "base_SdssShape_y",
		X:    "base_SdssShape_x",
		XX:   "base_SdssShape_xx",
		YY:   "base_SdssShape_yy",
		Flux: "base_SdssShape_instFlux",
	}
}

// Table is an in-memory source catalog held as parallel measurement
// slices. Missing measurements are represented as NaN.
type Table struct {
	ys, xs   []float64
	xxs, yys []float64
	fluxes   []float64
}

// NewTable builds a Table from parallel measurement slices, which must
// all have the same length.
func NewTable(y, x, xx, yy, flux []float64) *Table {
	return &Table{ys: y, xs: x, xxs: xx, yys: yy, fluxes: flux}
}

// NumSources returns the number of catalog entries.
func (t *Table) NumSources() int { return len(t.ys) }

// Position returns the centroid of source i.
func (t *Table) Position(i int) (y, x float64) { return t.ys[i], t.xs[i] }

// Moments returns the second shape moments of source i.
func (t *Table) Moments(i int) (xx, yy float64) { return t.xxs[i], t.yys[i] }

// Flux returns the instrumental flux of source i.
func (t *Table) Flux(i int) float64 { return t.fluxes[i] }

// Ys returns the y coordinates of all sources.
func (t *Table) Ys() []float64 { return t.ys }

// Xs returns the x coordinates of all sources.
func (t *Table) Xs() []float64 { return t.xs }

// FilterMinWidth returns a new Table containing only sources whose
// shape magnitude hypot(xx, yy) exceeds minWidth. This drops cosmic
// rays and mis-measured detections before grid estimation.
func (t *Table) FilterMinWidth(minWidth float64) *Table {
	out := &Table{}
	for i := range t.ys {
		if !(math.Hypot(t.xxs[i], t.yys[i]) > minWidth) {
			continue
		}
		out.ys = append(out.ys, t.ys[i])
		out.xs = append(out.xs, t.xs[i])
		out.xxs = append(out.xxs, t.xxs[i])
		out.yys = append(out.yys, t.yys[i])
		out.fluxes = append(out.fluxes, t.fluxes[i])
	}
	return out
}
