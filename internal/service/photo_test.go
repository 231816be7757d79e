package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRemover returns a fully transparent PNG of the same dimensions as its
// input, mimicking a removal service that finds no foreground.
type fakeRemover struct {
	calls int
	err   error
}

func (f *fakeRemover) Remove(_ context.Context, imageBytes []byte) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	src, err := imaging.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, err
	}

	out := image.NewNRGBA(src.Bounds())
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 120, G: 140, B: 160, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG))
	return buf.Bytes()
}

func decodeSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestEnhance_OriginalSkipsRemovalAndKeepsAspect(t *testing.T) {
	remover := &fakeRemover{}
	svc := NewPhotoService(remover, 10)

	opts := DefaultEnhanceOptions()
	opts.Background = BackgroundOriginal

	out, err := svc.Enhance(context.Background(), testJPEG(t, 400, 200), opts)
	require.NoError(t, err)

	assert.Equal(t, 0, remover.calls)
	w, h := decodeSize(t, out)
	assert.Equal(t, 400, w)
	assert.Equal(t, 200, h)
}

func TestEnhance_DownscalesLongestSide(t *testing.T) {
	remover := &fakeRemover{}
	svc := NewPhotoService(remover, 10)

	opts := DefaultEnhanceOptions()
	opts.Background = BackgroundOriginal

	out, err := svc.Enhance(context.Background(), testJPEG(t, 3000, 1500), opts)
	require.NoError(t, err)

	w, h := decodeSize(t, out)
	assert.Equal(t, 2048, w)
	assert.Equal(t, 1024, h)
}

func TestEnhance_StyledBackgroundKeepsPixelSize(t *testing.T) {
	for _, style := range []string{BackgroundBlur, BackgroundOffice, BackgroundSolid} {
		t.Run(style, func(t *testing.T) {
			remover := &fakeRemover{}
			svc := NewPhotoService(remover, 10)

			opts := DefaultEnhanceOptions()
			opts.Background = style

			out, err := svc.Enhance(context.Background(), testJPEG(t, 320, 240), opts)
			require.NoError(t, err)

			assert.Equal(t, 1, remover.calls)
			w, h := decodeSize(t, out)
			assert.Equal(t, 320, w)
			assert.Equal(t, 240, h)
		})
	}
}

func TestEnhance_UnknownStyleFallsBackToBlur(t *testing.T) {
	remover := &fakeRemover{}
	svc := NewPhotoService(remover, 10)

	opts := DefaultEnhanceOptions()
	opts.Background = "underwater"

	_, err := svc.Enhance(context.Background(), testJPEG(t, 64, 64), opts)
	require.NoError(t, err)

	// Blur needs background removal, so the remover must have been called
	assert.Equal(t, 1, remover.calls)
}

func TestEnhance_RemoverFailureIsProcessingError(t *testing.T) {
	remover := &fakeRemover{err: errors.New("model unavailable")}
	svc := NewPhotoService(remover, 10)

	_, err := svc.Enhance(context.Background(), testJPEG(t, 64, 64), DefaultEnhanceOptions())

	assert.ErrorIs(t, err, ErrPhotoProcessing)
}

func TestEnhance_RejectsNonImage(t *testing.T) {
	svc := NewPhotoService(&fakeRemover{}, 10)

	_, err := svc.Enhance(context.Background(), []byte("definitely not an image"), DefaultEnhanceOptions())

	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestEnhance_RejectsEmptyAndOversize(t *testing.T) {
	svc := NewPhotoService(&fakeRemover{}, 1)

	var vErr *ValidationError

	_, err := svc.Enhance(context.Background(), nil, DefaultEnhanceOptions())
	assert.ErrorAs(t, err, &vErr)

	_, err = svc.Enhance(context.Background(), make([]byte, 2*1024*1024), DefaultEnhanceOptions())
	assert.ErrorAs(t, err, &vErr)
}

func TestNormalizeOptions_ClampsFactors(t *testing.T) {
	opts := normalizeOptions(EnhanceOptions{
		Background: BackgroundSolid,
		Brightness: 9.0,
		Contrast:   0.1,
		Sharpness:  -2.0,
	})

	assert.Equal(t, 2.0, opts.Brightness)
	assert.Equal(t, 0.5, opts.Contrast)
	assert.Equal(t, 0.5, opts.Sharpness)
}
