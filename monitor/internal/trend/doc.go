// Package trend fits a least-squares drift line over a reading window and
// projects remaining useful life: the time until the line crosses the
// configured critical threshold.
//
// Fit returns ErrDegenerate instead of a model when the window cannot
// support a line (fewer than two readings, or zero time span), so division
// safety is established once here rather than at every call site.
package trend
