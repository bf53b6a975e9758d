// Package ic builds initial conditions for star cluster simulations.
//
// The package covers the three ingredients of a cluster model and the
// pipeline that assembles them into a live system:
//
//   - [IMF]: stellar mass functions ([NewKroupa], [NewSalpeter],
//     [NewBrokenPowerLaw], [NewEqualMass])
//   - [Profile]: phase-space samplers ([NewPlummer], [NewHernquist],
//     [EnclosedMassModel] for arbitrary mass profiles)
//   - [BuildCluster]: draws masses, samples the profile, rescales to
//     Hénon units and wires gravity and stellar evolution codes
//
// # Mass Versus Count
//
// Cluster size can be fixed by star count or by total mass. Given a
// target mass, [NumForTotalMass] bisects on the count until the sampled
// total lands within a fractional tolerance:
//
//	n, total, _, err := ic.NumForTotalMass(imf, units.New(5e4, units.MSun), 1e-3, seed)
//
// All sampled masses, positions and velocities are SI once a converter
// is involved; profiles sampled without one stay in N-body units.
package ic
