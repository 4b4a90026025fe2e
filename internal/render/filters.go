package render

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"pitchsync/internal/config"
	"pitchsync/internal/overlay"
)

// Style controls how the overlay blocks are drawn.
type Style struct {
	FontFile    string
	FontSize    int
	FontColor   string
	BoxColor    string
	BoxBorder   int
	Margin      int
	LineSpacing int
}

// StyleFromConfig maps the overlay section of the config onto a Style.
func StyleFromConfig(cfg config.OverlayConfig) Style {
	return Style{
		FontFile:    cfg.FontFile,
		FontSize:    cfg.FontSize,
		FontColor:   cfg.FontColor,
		BoxColor:    cfg.BoxColor,
		BoxBorder:   cfg.BoxBorder,
		Margin:      cfg.Margin,
		LineSpacing: cfg.LineSpacing,
	}
}

// Encoding carries the encoder settings for annotated clips.
type Encoding struct {
	VideoCodec string
	Preset     string
	CRF        int
	KeepAudio  bool
}

// EncodingFromConfig maps the encoding section of the config onto Encoding.
func EncodingFromConfig(cfg config.EncodingConfig) Encoding {
	return Encoding{
		VideoCodec: cfg.VideoCodec,
		Preset:     cfg.Preset,
		CRF:        cfg.CRF,
		KeepAudio:  cfg.KeepAudio,
	}
}

type position int

const (
	topLeft position = iota
	topRight
)

// BuildFilterGraph returns two boxed drawtext filters: the pitch block in the
// top-left corner and the situation block in the top-right corner.
func BuildFilterGraph(spec overlay.Spec, style Style) (string, error) {
	if strings.TrimSpace(spec.Left) == "" && strings.TrimSpace(spec.Right) == "" {
		return "", errors.New("overlay is empty")
	}
	filters := []string{
		buildDrawText(spec.Left, topLeft, style),
		buildDrawText(spec.Right, topRight, style),
	}
	return strings.Join(filters, ","), nil
}

func buildDrawText(text string, pos position, style Style) string {
	margin := style.Margin
	if margin < 0 {
		margin = 0
	}
	x := strconv.Itoa(margin)
	if pos == topRight {
		x = fmt.Sprintf("w-text_w-%d", margin)
	}

	values := []string{
		fmt.Sprintf("text='%s'", escapeDrawText(text)),
		fmt.Sprintf("fontsize=%d", max(style.FontSize, 8)),
		fmt.Sprintf("fontcolor=%s", fallback(style.FontColor, "white")),
		fmt.Sprintf("x=%s", x),
		fmt.Sprintf("y=%d", margin),
		"box=1",
		fmt.Sprintf("boxcolor=%s", fallback(style.BoxColor, "black")),
		fmt.Sprintf("boxborderw=%d", max(style.BoxBorder, 0)),
	}
	if style.LineSpacing != 0 {
		values = append(values, fmt.Sprintf("line_spacing=%d", style.LineSpacing))
	}
	if strings.TrimSpace(style.FontFile) != "" {
		values = append(values, fmt.Sprintf("fontfile='%s'", escapeFFmpegPath(style.FontFile)))
	}
	return "drawtext=" + strings.Join(values, ":")
}

// BuildFFmpegCmd assembles the ffmpeg arguments that stamp filter onto the
// source clip. Audio is dropped unless enc.KeepAudio is set.
func BuildFFmpegCmd(source, outputPath, filter string, enc Encoding) ([]string, error) {
	if strings.TrimSpace(source) == "" {
		return nil, errors.New("source path is empty")
	}
	if strings.TrimSpace(outputPath) == "" {
		return nil, errors.New("output path is empty")
	}
	if strings.TrimSpace(filter) == "" {
		return nil, errors.New("video filter graph is empty")
	}

	args := []string{
		"-hide_banner",
		"-y",
		"-i", source,
		"-vf", filter,
	}

	codec := strings.TrimSpace(enc.VideoCodec)
	if codec == "" {
		codec = "libx264"
	}
	args = append(args, "-c:v", codec)
	if preset := strings.TrimSpace(enc.Preset); preset != "" {
		args = append(args, "-preset", preset)
	}
	if enc.CRF > 0 {
		args = append(args, "-crf", strconv.Itoa(enc.CRF))
	}
	args = append(args, "-pix_fmt", "yuv420p")

	if enc.KeepAudio {
		args = append(args, "-c:a", "aac")
	} else {
		args = append(args, "-an")
	}

	args = append(args,
		"-movflags", "+faststart",
		outputPath,
	)
	return args, nil
}

// OutputName returns the annotated file name for source: the base name with
// suffix and an .mp4 extension.
func OutputName(source, suffix string) string {
	base := filepath.Base(source)
	return strings.TrimSuffix(base, filepath.Ext(base)) + suffix + ".mp4"
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}

func escapeDrawText(value string) string {
	value = strings.ReplaceAll(value, "\r\n", "\n")
	value = strings.ReplaceAll(value, "\r", "\n")

	const newlinePlaceholder = "\u0000"
	value = strings.ReplaceAll(value, "\n", newlinePlaceholder)

	value = escapeFilterValueNoQuotes(value)
	value = strings.ReplaceAll(value, "%", `\%`)
	value = strings.ReplaceAll(value, newlinePlaceholder, "\n")
	value = strings.ReplaceAll(value, "'", `'\''`)
	return value
}

func escapeFFmpegPath(value string) string {
	value = filepath.Clean(value)
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, ":", `\:`)
	value = strings.ReplaceAll(value, "'", `\'`)
	return value
}

func escapeFilterValueNoQuotes(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, ":", `\:`)
	value = strings.ReplaceAll(value, ",", `\,`)
	return value
}
