// pkg/core/types.go
package core

import (
	"fmt"
	"math"
)

// Vector3 is a world-space coordinate or a set of Euler angles in degrees.
type Vector3 struct {
	X float64 `json:"x" mapstructure:"x"`
	Y float64 `json:"y" mapstructure:"y"`
	Z float64 `json:"z" mapstructure:"z"`
}

// Up is the world up axis.
var Up = Vector3{X: 0, Y: 1, Z: 0}

// Add returns v + o.
func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Scale returns v multiplied by s.
func (v Vector3) Scale(s float64) Vector3 {
	return Vector3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Distance returns the euclidean distance between v and o.
func (v Vector3) Distance(o Vector3) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Uniform returns a vector with all three components set to s.
func Uniform(s float64) Vector3 {
	return Vector3{X: s, Y: s, Z: s}
}

// String formats the vector the way the game prints positions in chat.
func (v Vector3) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", v.X, v.Y, v.Z)
}

// SpawnLocation is an administrator-defined spawn point.
// Rotation holds Euler angles in degrees.
type SpawnLocation struct {
	Position Vector3 `json:"Position" mapstructure:"Position"`
	Rotation Vector3 `json:"Rotation" mapstructure:"Rotation"`
}

// DropItem is one entry of the custom loot table.
type DropItem struct {
	ShortName string `json:"ShortName" mapstructure:"ShortName"`
	Amount    int    `json:"Amount" mapstructure:"Amount"`
}
