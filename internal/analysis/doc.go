// Package analysis provides structural diagnostics for star clusters.
//
// The package measures the quantities a cluster run is judged by:
//
//   - [DensityCenter]: Casertano-Hut density-weighted center
//   - [CoreRadius]: density-squared-weighted core radius
//   - [LagrangianRadii]: radii enclosing given mass fractions
//   - [Energies]: kinetic, potential and virial ratio in one pass
//   - [BoundMassFraction]: mass fraction with negative specific energy
//   - [MassFunction]: logarithmic mass histogram
//
// # Center Choice
//
// Radii are measured from the density center rather than the center of
// mass: once escapers stream along the orbit, the center of mass drifts
// off the cluster while the density center stays on the core.
//
//	center, dens := analysis.DensityCenter(bodies, analysis.DefaultNeighbors)
//	rc := analysis.CoreRadius(bodies, center, dens)
//	rh := analysis.HalfMassRadius(bodies, center)
package analysis
