package math

// Compose builds the local matrix T * R * S: a point is scaled first,
// then rotated, then translated. r is not normalized.
func Compose(t Vec3, r Quat, s Vec3) Mat4 {
	return Translate(t.X, t.Y, t.Z).Mul(r.ToMat4()).Mul(Scale(s.X, s.Y, s.Z))
}

// Decompose splits an affine matrix into translation, rotation and scale.
//
// Translation is column 3 as stored. The rotation comes from Gram-Schmidt
// orthonormalization of columns 0, 1 and 2 in that order, and the scale is
// the length of each orthogonalized column, so skew is folded into scale.
// When the resulting basis is left-handed the X scale is negated to keep
// the rotation proper. Zero-length columns produce a zero scale on that axis.
func Decompose(m Mat4) (t Vec3, r Quat, s Vec3) {
	t = Vec3{m[12], m[13], m[14]}

	c0, c1, c2 := m.Column(0), m.Column(1), m.Column(2)

	s.X = c0.Length()
	x := Vec3{1, 0, 0}
	if s.X != 0 {
		x = c0.Scale(1 / s.X)
	}

	c1 = c1.Sub(x.Scale(x.Dot(c1)))
	s.Y = c1.Length()
	var y Vec3
	if s.Y != 0 {
		y = c1.Scale(1 / s.Y)
	} else {
		y = perpendicular(x)
	}

	c2 = c2.Sub(x.Scale(x.Dot(c2))).Sub(y.Scale(y.Dot(c2)))
	s.Z = c2.Length()
	var z Vec3
	if s.Z != 0 {
		z = c2.Scale(1 / s.Z)
	} else {
		z = x.Cross(y)
	}

	if x.Cross(y).Dot(z) < 0 {
		s.X = -s.X
		x = x.Scale(-1)
	}

	r = QuatFromRotation(x, y, z)
	return t, r, s
}

// perpendicular returns a unit vector orthogonal to the unit vector v.
func perpendicular(v Vec3) Vec3 {
	axis := Vec3{0, 0, 1}
	if v.Z > 0.9 || v.Z < -0.9 {
		axis = Vec3{0, 1, 0}
	}
	return axis.Cross(v).Normalize()
}
