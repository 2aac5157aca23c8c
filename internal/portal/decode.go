package portal

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/corona10/goimagehash"

	"github.com/konnectors/cozy-konnector-free-mobile/internal/captcha"
	apperr "github.com/konnectors/cozy-konnector-free-mobile/internal/errors"
	"github.com/konnectors/cozy-konnector-free-mobile/internal/imaging"
)

// slotResult is the outcome of decoding one keypad image.
type slotResult struct {
	digit    captcha.Digit
	distance int
	hash     *goimagehash.ImageHash
	err      error
}

// DecodeKeypad downloads and classifies every keypad image of layout.
//
// Slots are decoded concurrently unless the client was configured for
// sequential decoding; both produce the same table. When several slots fail,
// the error of the lowest failing position is returned. Concurrent decoding
// lets every slot finish so that choice does not depend on timing.
func (c *Client) DecodeKeypad(ctx context.Context, layout *Layout) (captcha.Table, error) {
	var results [captcha.KeypadSize]slotResult
	if c.sequential {
		c.decodeSequential(ctx, layout, &results)
	} else {
		c.decodeParallel(ctx, layout, &results)
	}

	if err := firstSlotError(ctx, &results); err != nil {
		return captcha.Table{}, err
	}

	var digits [captcha.KeypadSize]captcha.Digit
	for pos, r := range results {
		digits[pos] = r.digit
	}
	table := captcha.NewTable(digits)
	c.reportCollisions(ctx, table, &results)
	return table, nil
}

func (c *Client) decodeSequential(ctx context.Context, layout *Layout, results *[captcha.KeypadSize]slotResult) {
	for pos, slot := range layout.Slots {
		results[pos] = c.decodeSlot(ctx, slot)
		if results[pos].err != nil {
			return
		}
	}
}

func (c *Client) decodeParallel(ctx context.Context, layout *Layout, results *[captcha.KeypadSize]slotResult) {
	var wg sync.WaitGroup
	for pos, slot := range layout.Slots {
		wg.Add(1)
		go func(pos int, slot Slot) {
			defer wg.Done()
			// Each goroutine owns one array element.
			results[pos] = c.decodeSlot(ctx, slot)
		}(pos, slot)
	}
	wg.Wait()
}

// firstSlotError returns the lowest-position failure.
func firstSlotError(ctx context.Context, results *[captcha.KeypadSize]slotResult) error {
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(err, apperr.PortalUnreachable, "keypad decoding interrupted")
	}
	for _, r := range results {
		if r.err != nil {
			return r.err
		}
	}
	return nil
}

func (c *Client) decodeSlot(ctx context.Context, slot Slot) slotResult {
	log := c.logger(ctx).With("position", slot.Position)
	pos := strconv.Itoa(slot.Position)

	// A browser plays the audio cue of every key; the portal tracks it but a
	// failure here does not break the login.
	if _, err := c.getBytes(ctx, fmt.Sprintf(pathAudioCue, slot.Position), refererSound); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("audio cue request failed", "error", err)
	}

	data, err := c.getBytes(ctx, slot.ImageRef, "")
	if err != nil {
		return slotResult{err: apperr.Wrap(err, apperr.PortalUnreachable, "fetch keypad image").
			WithMetadata("position", pos)}
	}

	img, format, err := imaging.Decode(data)
	if err != nil {
		return slotResult{err: apperr.Wrap(err, apperr.MalformedCaptchaImage, "decode keypad image").
			WithMetadata("position", pos)}
	}

	pattern, err := captcha.Sample(img)
	if err != nil {
		var appErr *apperr.AppError
		if errors.As(err, &appErr) {
			appErr.WithMetadata("position", pos)
		}
		return slotResult{err: err}
	}

	digit, distance := c.matcher.Nearest(pattern)
	log.Debug("keypad image decoded", "format", format, "digit", digit.String(), "distance", distance)

	hash, err := goimagehash.AverageHash(img)
	if err != nil {
		log.Debug("keypad fingerprint failed", "error", err)
		hash = nil
	}
	return slotResult{digit: digit, distance: distance, hash: hash}
}

// reportCollisions logs digits decoded at more than one position. A zero
// fingerprint distance means the portal served the same image twice; any
// other distance points at a misclassification.
func (c *Client) reportCollisions(ctx context.Context, table captcha.Table, results *[captcha.KeypadSize]slotResult) {
	log := c.logger(ctx)
	if undecoded := table.Undecoded(); len(undecoded) > 0 {
		log.Warn("keypad images matched no digit", "positions", undecoded)
	}
	for digit, positions := range table.Duplicates() {
		first := results[positions[0]]
		for _, pos := range positions[1:] {
			attrs := []any{
				"digit", digit.String(),
				"positions", []int{positions[0], pos},
				"distances", []int{first.distance, results[pos].distance},
			}
			if first.hash != nil && results[pos].hash != nil {
				if d, err := first.hash.Distance(results[pos].hash); err == nil {
					attrs = append(attrs, "fingerprint_distance", d)
				}
			}
			log.Warn("digit decoded at several keypad positions", attrs...)
		}
	}
}
