package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// Photo background styles
const (
	BackgroundOriginal = "original"
	BackgroundBlur     = "blur"
	BackgroundOffice   = "office"
	BackgroundSolid    = "solid"
)

const (
	photoMaxDimension = 2048
	photoJPEGQuality  = 90
)

// ErrPhotoProcessing is returned when the pipeline fails after validation.
// Handlers map it to HTTP 500 without leaking internals.
var ErrPhotoProcessing = errors.New("failed to process photo")

// EnhanceOptions are the tuning knobs for photo enhancement. Values outside
// the accepted ranges are clamped, not rejected.
type EnhanceOptions struct {
	Background string
	Brightness float64
	Contrast   float64
	Sharpness  float64
}

// DefaultEnhanceOptions mirrors the form defaults
func DefaultEnhanceOptions() EnhanceOptions {
	return EnhanceOptions{
		Background: BackgroundBlur,
		Brightness: 1.1,
		Contrast:   1.1,
		Sharpness:  1.2,
	}
}

// PhotoService enhances profile photos: tone adjustments, optional
// background removal, and background replacement.
type PhotoService struct {
	remover  BackgroundRemover
	maxBytes int64
}

func NewPhotoService(remover BackgroundRemover, maxUploadMB int) *PhotoService {
	return &PhotoService{
		remover:  remover,
		maxBytes: int64(maxUploadMB) * 1024 * 1024,
	}
}

// Enhance validates the upload and runs the pipeline:
// decode → downscale → brightness → contrast → sharpness, then for styled
// backgrounds: remove background → synthesize backdrop → composite.
// Output is always JPEG.
func (s *PhotoService) Enhance(ctx context.Context, imageBytes []byte, opts EnhanceOptions) ([]byte, error) {
	if len(imageBytes) == 0 {
		return nil, &ValidationError{Reason: "uploaded file is empty"}
	}
	if int64(len(imageBytes)) > s.maxBytes {
		return nil, &ValidationError{Reason: fmt.Sprintf("file exceeds the %dMB upload limit", s.maxBytes/(1024*1024))}
	}

	detected := mimetype.Detect(imageBytes)
	if !detected.Is("image/jpeg") && !detected.Is("image/png") {
		return nil, &ValidationError{Reason: "invalid file type: upload a JPEG or PNG image"}
	}

	opts = normalizeOptions(opts)

	src, err := imaging.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		log.Error().Err(err).Msg("Photo decode failed")
		return nil, ErrPhotoProcessing
	}

	// Cap the longest side, preserving aspect ratio
	bounds := src.Bounds()
	if bounds.Dx() > photoMaxDimension || bounds.Dy() > photoMaxDimension {
		src = imaging.Fit(src, photoMaxDimension, photoMaxDimension, imaging.Lanczos)
	}

	enhanced := adjustTone(src, opts)

	if opts.Background == BackgroundOriginal {
		return encodeJPEG(enhanced)
	}

	// Background removal works on the enhanced image so the foreground
	// keeps the tone adjustments
	var pngBuf bytes.Buffer
	if err := imaging.Encode(&pngBuf, enhanced, imaging.PNG); err != nil {
		log.Error().Err(err).Msg("Photo PNG encode failed")
		return nil, ErrPhotoProcessing
	}

	fgBytes, err := s.remover.Remove(ctx, pngBuf.Bytes())
	if err != nil {
		log.Error().Err(err).Msg("Background removal failed")
		return nil, ErrPhotoProcessing
	}

	foreground, err := imaging.Decode(bytes.NewReader(fgBytes))
	if err != nil {
		log.Error().Err(err).Msg("Foreground decode failed")
		return nil, ErrPhotoProcessing
	}

	backdrop := makeBackground(opts.Background, foreground.Bounds(), src)
	composed := imaging.Overlay(backdrop, foreground, image.Pt(0, 0), 1.0)

	return encodeJPEG(composed)
}

func normalizeOptions(opts EnhanceOptions) EnhanceOptions {
	switch opts.Background {
	case BackgroundOriginal, BackgroundBlur, BackgroundOffice, BackgroundSolid:
	default:
		opts.Background = BackgroundBlur
	}
	opts.Brightness = clampFloat(opts.Brightness, 0.5, 2.0)
	opts.Contrast = clampFloat(opts.Contrast, 0.5, 2.0)
	opts.Sharpness = clampFloat(opts.Sharpness, 0.5, 3.0)
	return opts
}

// adjustTone applies the multiplicative factors in fixed order. Factors are
// 1.0-neutral multipliers mapped onto the library's percentage scale.
func adjustTone(img image.Image, opts EnhanceOptions) *image.NRGBA {
	out := imaging.AdjustBrightness(img, (opts.Brightness-1.0)*100)
	out = imaging.AdjustContrast(out, (opts.Contrast-1.0)*100)
	if opts.Sharpness > 1.0 {
		out = imaging.Sharpen(out, opts.Sharpness-1.0)
	} else if opts.Sharpness < 1.0 {
		out = imaging.Blur(out, 1.0-opts.Sharpness)
	}
	return out
}

// makeBackground synthesizes the backdrop at the foreground's pixel size
func makeBackground(style string, size image.Rectangle, original image.Image) image.Image {
	w, h := size.Dx(), size.Dy()

	switch style {
	case BackgroundBlur:
		bg := imaging.Resize(original, w, h, imaging.Lanczos)
		bg = imaging.Blur(bg, 25)
		return imaging.AdjustBrightness(bg, -30)
	case BackgroundOffice:
		return imaging.New(w, h, color.NRGBA{R: 220, G: 225, B: 230, A: 255})
	case BackgroundSolid:
		return imaging.New(w, h, color.NRGBA{R: 245, G: 245, B: 245, A: 255})
	default:
		return imaging.New(w, h, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	}
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(photoJPEGQuality)); err != nil {
		log.Error().Err(err).Msg("Photo JPEG encode failed")
		return nil, ErrPhotoProcessing
	}
	return buf.Bytes(), nil
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
