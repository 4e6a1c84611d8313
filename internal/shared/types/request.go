package types

// ValueRequest sets one continuous session value in [0, 1].
// Out-of-range values are clamped by the store.
type ValueRequest struct {
	Value *float64 `json:"value" binding:"required"`
}

// CategoryRequest switches the active category
type CategoryRequest struct {
	Category string `json:"category" binding:"required"`
}

// AudioRequest starts or stops audio
type AudioRequest struct {
	Started *bool `json:"started" binding:"required"`
}

// SprayRequest is a click into the field at normalized coordinates
type SprayRequest struct {
	X *float64 `json:"x" binding:"required"`
	Y *float64 `json:"y" binding:"required"`
}

// RenameRequest renames a captured moment
type RenameRequest struct {
	Name string `json:"name" binding:"required"`
}

// ImportResponse reports how many entries an import kept
type ImportResponse struct {
	Imported int    `json:"imported"`
	Format   string `json:"format"`
}
