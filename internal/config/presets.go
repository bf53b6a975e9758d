package config

import "sort"

// Preset is a named ready-to-run configuration layered between the
// built-in defaults and the config file, so flags and env vars still
// override it.
type Preset struct {
	Summary string
	Values  map[string]interface{}
}

var Presets = map[string]Preset{
	"plummer-small": {
		Summary: "1k Kroupa stars in a tight Plummer sphere on the direct code, pure dynamics",
		Values: map[string]interface{}{
			"cluster.n":             1000,
			"cluster.virial_radius": "3 pc",
			"run.code":              "direct",
			"run.evolution":         false,
			"run.timestep":          "0.05 Myr",
			"run.t_end":             "5 Myr",
			"run.snapshot_every":    "0.5 Myr",
		},
	},
	"plummer-32k": {
		Summary: "32k-star Plummer sphere on the tree code, 100 Myr production run",
		Values: map[string]interface{}{
			"cluster.n":             32768,
			"cluster.softening":     "0.05 pc",
			"cluster.opening_angle": 0.5,
			"run.code":              "bhtree",
			"run.timestep":          "0.25 Myr",
			"run.t_end":             "100 Myr",
			"run.snapshot_every":    "5 Myr",
			"run.diag_every":        "1 Myr",
		},
	},
	"kroupa-cluster": {
		Summary: "4k cluster over the full Kroupa range with stellar evolution and mass loss",
		Values: map[string]interface{}{
			"cluster.n":             4096,
			"cluster.imf.min":       "0.08 MSun",
			"cluster.imf.max":       "100 MSun",
			"cluster.virial_radius": "5 pc",
			"run.evolution":         true,
			"run.timestep":          "0.5 Myr",
			"run.t_end":             "200 Myr",
			"run.snapshot_every":    "10 Myr",
		},
	},
	"cluster-in-halo": {
		// 200 kms is the circular speed of this halo at 8 kpc, so the
		// default run covers one full orbit.
		Summary: "2k cluster on a circular 8 kpc orbit inside an NFW halo via the bridge",
		Values: map[string]interface{}{
			"cluster.n":           2048,
			"cluster.position":    "[8, 0, 0] kpc",
			"cluster.velocity":    "[0, 200, 0] kms",
			"run.code":            "bhtree",
			"run.evolution":       false,
			"run.timestep":        "0.5 Myr",
			"run.t_end":           "250 Myr",
			"run.snapshot_every":  "10 Myr",
			"run.bridge.timestep": "0.25 Myr",
			"run.bridge.threaded": true,
			"run.bridge.partners": []interface{}{
				map[string]interface{}{
					"kind":         "nfw",
					"mass":         "1e12 MSun",
					"scale_radius": "16 kpc",
				},
			},
		},
	},
	"two-clusters": {
		Summary: "head-on encounter of two 1k Plummer spheres coupled through the bridge",
		Values: map[string]interface{}{
			"cluster.n":               1024,
			"cluster.virial_radius":   "3 pc",
			"cluster.position":        "[-25, 0, 0] pc",
			"cluster.velocity":        "[1.5, 0, 0] kms",
			"companion.name":          "companion",
			"companion.n":             1024,
			"companion.virial_radius": "3 pc",
			"companion.position":      "[25, 0, 0] pc",
			"companion.velocity":      "[-1.5, 0, 0] kms",
			"run.code":                "direct",
			"run.evolution":           false,
			"run.timestep":            "0.1 Myr",
			"run.t_end":               "50 Myr",
			"run.snapshot_every":      "2 Myr",
			"run.bridge.timestep":     "0.05 Myr",
		},
	},
}

// PresetNames lists the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
