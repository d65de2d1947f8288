package photo

import "fmt"

// Direction is the way a rotation edit turns a photo.
type Direction string

const (
	// Right rotates 90 degrees clockwise.
	Right Direction = "right"
	// Left rotates 90 degrees counter-clockwise.
	Left Direction = "left"
)

// Delta returns the signed degree change for the direction.
func (d Direction) Delta() int {
	if d == Left {
		return -90
	}
	return 90
}

// ParseDirection accepts "right"/"r"/"cw" and "left"/"l"/"ccw".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "right", "r", "cw":
		return Right, nil
	case "left", "l", "ccw":
		return Left, nil
	default:
		return "", fmt.Errorf("invalid rotation direction %q", s)
	}
}

// Normalize maps any integer angle onto {0, 90, 180, 270}: reduce mod 360,
// round to the nearest multiple of 90, and fold 360 back to 0.
func Normalize(degrees int) int {
	d := ((degrees % 360) + 360) % 360
	d = ((d + 45) / 90) * 90
	if d == 360 {
		return 0
	}
	return d
}

// Rotate applies a direction to a rotation and normalizes the result.
func Rotate(current int, dir Direction) int {
	return Normalize(current + dir.Delta())
}

// IsQuarterTurn reports whether a normalized rotation swaps width and height.
func IsQuarterTurn(degrees int) bool {
	return Normalize(degrees)%180 == 90
}

// RotationState is the server-confirmed rotation of one photo.
type RotationState struct {
	Version       int `json:"rotation_version"`
	FinalRotation int `json:"final_rotation"`
}
