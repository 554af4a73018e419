// Package motion gives access to pre-recorded robot motions.
//
// A motion is a JSON file in the store directory named after the gesture it
// implements, e.g. motions/kisses.json. Each file holds joint-space keyframes
// the robot bridge can replay.
package motion

import "time"

// fileExt is the extension every recording carries on disk.
const fileExt = ".json"

// recordingFile is the on-disk JSON shape.
type recordingFile struct {
	// Description says what the motion looks like on stage.
	Description string `json:"description"`

	// Joints names the actuated joints, one column per frame value.
	Joints []string `json:"joints"`

	// Time holds the offset of each frame in seconds.
	Time []float64 `json:"time"`

	// Frames holds one joint angle vector (radians) per timestamp.
	Frames [][]float64 `json:"frames"`
}

// Recording is a loaded, validated motion.
type Recording struct {
	Name        string
	Description string
	Joints      []string
	Timestamps  []float64
	Frames      [][]float64
	Duration    time.Duration
}
