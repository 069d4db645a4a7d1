package core

// Frame holds the features extracted from one camera image by the capture pipeline.
type Frame struct {
	Seq    uint64 `json:"seq"`
	Width  int    `json:"width"`
	Height int    `json:"height"`

	// JPEG is the encoded image, kept for picture uploads.
	JPEG []byte `json:"-"`

	// ParaRatio is the share of parachute-coloured pixels.
	ParaRatio float64 `json:"paraRatio"`

	// SkyRatio is the share of pixels above the detected horizon.
	SkyRatio float64 `json:"skyRatio"`

	// StripEdges is the edge density of each horizontal strip, top to bottom.
	StripEdges []float64 `json:"stripEdges"`

	// ColumnEdges is the edge density of each vertical column, left to right.
	ColumnEdges []float64 `json:"columnEdges"`

	// Horizon is the horizon row in pixels measured at each column, left to right.
	Horizon []float64 `json:"horizon"`

	// Blob is the largest goal-coloured region, nil when none is visible.
	Blob *Blob `json:"blob,omitempty"`
}

// Blob is a colour region in normalised image coordinates.
type Blob struct {
	// CX is the horizontal centre in [-1, 1]; negative is left of centre.
	CX float64 `json:"cx"`

	// Area is the share of the image covered by the region.
	Area float64 `json:"area"`
}

// Vision classifies frames. A nil frame means the camera is unavailable and
// every method must still answer.
type Vision interface {
	// IsParaExist reports whether the parachute still covers the camera.
	IsParaExist(f *Frame) bool

	// IsSky reports whether the camera faces the sky.
	IsSky(f *Frame) bool

	// IsWadachiExist reports a rut ahead and raises the alert buzzer when it does.
	IsWadachiExist(f *Frame) bool

	// WadachiExiting returns the exit direction out of a rut: -1 left, +1 right,
	// 0 when no safe direction is visible.
	WadachiExiting(f *Frame) int

	// GoalBlob returns the goal-coloured region, if any.
	GoalBlob(f *Frame) (Blob, bool)
}
