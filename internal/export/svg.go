package export

import (
	"fmt"
	"math"
	"strings"
)

type Point struct{ X, Y float64 }

// PolylineSVG draws points as a single path scaled to width×height with 10%
// padding. Fewer than two points yield "".
func PolylineSVG(points []Point, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor))

	for i, p := range points {
		x := (p.X - minX) / rangeX * float64(width)
		y := float64(height) - (p.Y-minY)/rangeY*float64(height)

		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}

// ResidualPoints pairs each iteration index with its residual value.
func ResidualPoints(values []float64) []Point {
	pts := make([]Point, len(values))
	for k, v := range values {
		pts[k] = Point{X: float64(k), Y: v}
	}
	return pts
}

// IteratePoints traces the iterates in the plane. Two or more components
// plot x0 against x1; one component plots x0 against the iteration index.
func IteratePoints(iterates [][]float64) []Point {
	pts := make([]Point, 0, len(iterates))
	for k, x := range iterates {
		switch {
		case len(x) >= 2:
			pts = append(pts, Point{X: x[0], Y: x[1]})
		case len(x) == 1:
			pts = append(pts, Point{X: float64(k), Y: x[0]})
		}
	}
	return pts
}
