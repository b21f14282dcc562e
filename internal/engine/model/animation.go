package model

import "github.com/Faultbox/midgard-gltf/pkg/gltf"

// Duration returns the last keyframe time across all samplers of a.
func Duration(a *gltf.Animation) float32 {
	var d float32
	for i := range a.Samplers {
		times := a.Samplers[i].Input.Floats()
		if n := len(times); n > 0 && times[n-1] > d {
			d = times[n-1]
		}
	}
	return d
}

// HasAnimation reports whether any animation has more than one keyframe.
// Single-keyframe animations are static poses.
func HasAnimation(m *gltf.Model) bool {
	for i := range m.Animations {
		for _, s := range m.Animations[i].Samplers {
			if s.Input.Count() > 1 {
				return true
			}
		}
	}
	return false
}
