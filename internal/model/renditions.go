package model

import "strconv"

// RenditionFormat describes one target output tier in the fixed catalog.
type RenditionFormat struct {
	Name         string
	MaxHeight    int
	VideoCodec   string
	CRF          int
	Preset       string
	AudioCodec   string
	AudioBitrate string
}

var catalog = []RenditionFormat{
	{Name: "1080p", MaxHeight: 1080, VideoCodec: "libx264", CRF: 21, Preset: "medium", AudioCodec: "aac", AudioBitrate: "192k"},
	{Name: "720p", MaxHeight: 720, VideoCodec: "libx264", CRF: 23, Preset: "medium", AudioCodec: "aac", AudioBitrate: "128k"},
	{Name: "480p", MaxHeight: 480, VideoCodec: "libx264", CRF: 26, Preset: "fast", AudioCodec: "aac", AudioBitrate: "96k"},
}

// Catalog returns the ordered list of target formats. The worker processes
// them in this order.
func Catalog() []RenditionFormat {
	cp := make([]RenditionFormat, len(catalog))
	copy(cp, catalog)
	return cp
}

// CatalogNames returns the format names in catalog order.
func CatalogNames() []string {
	names := make([]string, len(catalog))
	for i, f := range catalog {
		names[i] = f.Name
	}
	return names
}

// TranscodeArgs builds the ffmpeg argument list for this format. The scale
// filter caps the output height at the tier's target and keeps the width
// divisible by two for the encoder.
func (f RenditionFormat) TranscodeArgs(inputPath, outputPath string) []string {
	return []string{
		"-y", "-hide_banner", "-nostats",
		"-i", inputPath,
		"-c:v", f.VideoCodec,
		"-crf", strconv.Itoa(f.CRF),
		"-preset", f.Preset,
		"-vf", "scale=-2:min(" + strconv.Itoa(f.MaxHeight) + "\\,ih)",
		"-c:a", f.AudioCodec,
		"-b:a", f.AudioBitrate,
		"-movflags", "+faststart",
		outputPath,
	}
}

// ThumbnailArgs builds the ffmpeg argument list that extracts a single frame
// near the start of the source.
func ThumbnailArgs(inputPath, outputPath string) []string {
	return []string{
		"-y", "-hide_banner", "-nostats",
		"-ss", "1",
		"-i", inputPath,
		"-frames:v", "1",
		"-vf", "scale=640:-2",
		outputPath,
	}
}
