package main

import "github.com/chewxy/math32"

// mat4 is a row-major 4x4 matrix.
type mat4 [16]float32

func scale(x, y, z float32) mat4 {
	return mat4{
		x, 0, 0, 0,
		0, y, 0, 0,
		0, 0, z, 0,
		0, 0, 0, 1,
	}
}

func rotationZ(angle float32) mat4 {
	s, c := math32.Sincos(angle)
	return mat4{
		c, -s, 0, 0,
		s, c, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

func multiply(a, b mat4) mat4 {
	var m mat4
	for row := range 4 {
		for col := range 4 {
			var sum float32
			for k := range 4 {
				sum += a[row*4+k] * b[k*4+col]
			}
			m[row*4+col] = sum
		}
	}
	return m
}

// aspectScale keeps the triangle square in a width x height target.
func aspectScale(width, height uint32) mat4 {
	aspect := float32(width) / math32.Max(float32(height), 1)
	if aspect >= 1 {
		return scale(1/aspect, 1, 1)
	}
	return scale(1, aspect, 1)
}
