package types

// ImageObject is the payload and user metadata of a stored object.
type ImageObject struct {
	Body        []byte
	Metadata    map[string]string
	ContentType string
}

// ImageInfo is what the codec reports about an encoded image.
type ImageInfo struct {
	Width       int
	Height      int
	Format      string
	Quality     int
	Compression string
	Filesize    int64
}

// EncodeOptions control a re-encode of an image.
type EncodeOptions struct {
	Quality     int
	Compression string
}

// ScalePreset is one derived size: the source dimensions are divided by
// Divisor and the output key carries Suffix.
type ScalePreset struct {
	Divisor int
	Suffix  string
}

// TransformResult is a buffer ready to be written under Key.
type TransformResult struct {
	Key  string
	Body []byte
}
