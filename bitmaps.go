package mmsession

import (
	"context"
	"fmt"
	"os"

	"github.com/hybridgroup/yzma/pkg/mtmd"
)

// StageImage decodes the specified image file and appends the resulting
// bitmap to the staging buffer. Staged bitmaps are consumed by the next call
// to EvalMessage in staging order. The vision model must be loaded first.
func (s *Session) StageImage(imageFile string) error {
	if s.visionCtx == 0 {
		return fmt.Errorf("stage-image: %w: vision model not loaded", ErrPrerequisiteMissing)
	}

	if _, err := os.Stat(imageFile); err != nil {
		return fmt.Errorf("stage-image: accessing file %q: %w", imageFile, err)
	}

	bitmap := mtmd.BitmapInitFromFile(s.visionCtx, imageFile)
	if bitmap == 0 {
		return fmt.Errorf("stage-image: %w: file %q", ErrImageDecode, imageFile)
	}

	s.bitmaps = append(s.bitmaps, bitmap)

	s.log(context.Background(), "stage-image", "file", imageFile, "staged", len(s.bitmaps))

	return nil
}

// StageImageData decodes an in-memory encoded image (JPEG, PNG, etc.) and
// appends the resulting bitmap to the staging buffer. The vision model must
// be loaded first.
func (s *Session) StageImageData(data []byte) error {
	if s.visionCtx == 0 {
		return fmt.Errorf("stage-image-data: %w: vision model not loaded", ErrPrerequisiteMissing)
	}

	if len(data) == 0 {
		return fmt.Errorf("stage-image-data: %w: empty buffer", ErrImageDecode)
	}

	bitmap := mtmd.BitmapInitFromBuf(s.visionCtx, &data[0], uint64(len(data)))
	if bitmap == 0 {
		return fmt.Errorf("stage-image-data: %w: buffer of %d bytes", ErrImageDecode, len(data))
	}

	s.bitmaps = append(s.bitmaps, bitmap)

	s.log(context.Background(), "stage-image-data", "bytes", len(data), "staged", len(s.bitmaps))

	return nil
}

// AddBitmap appends an already decoded bitmap to the staging buffer. The
// session takes ownership of the bitmap and will free it when the buffer is
// drained or cleared.
func (s *Session) AddBitmap(bitmap mtmd.Bitmap) {
	s.bitmaps = append(s.bitmaps, bitmap)
}

// StagedImages returns the number of bitmaps waiting in the staging buffer.
func (s *Session) StagedImages() int {
	return len(s.bitmaps)
}

// ClearBitmaps frees every staged bitmap and empties the staging buffer.
func (s *Session) ClearBitmaps() {
	for _, bitmap := range s.bitmaps {
		if bitmap != 0 {
			mtmd.BitmapFree(bitmap)
		}
	}

	s.bitmaps = nil
}
