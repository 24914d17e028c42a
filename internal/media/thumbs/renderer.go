package thumbs

// Renderer turns a source image file into encoded thumbnail bytes.
// Implementations resize to TargetHeight preserving aspect ratio
// without enlarging smaller images, and encode webp at WebpQuality.
type Renderer interface {
	Render(srcPath string) ([]byte, error)
}
