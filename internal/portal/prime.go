package portal

import (
	"context"
	"fmt"
	"strconv"

	"github.com/konnectors/cozy-konnector-free-mobile/internal/captcha"
	apperr "github.com/konnectors/cozy-konnector-free-mobile/internal/errors"
)

// PrimeKeypad requests the pressed-state image of every distinct position in
// seq, one at a time, the way a browser does while the user types. It waits
// PacingDelay after each request so the whole sequence takes at least the
// client's priming budget.
func (c *Client) PrimeKeypad(ctx context.Context, seq captcha.ClickSequence) error {
	positions := captcha.PrimedPositions(seq)
	delay := captcha.PacingDelay(len(positions), c.primingBudget)
	c.logger(ctx).Debug("priming keypad", "positions", positions, "delay", delay)

	for _, pos := range positions {
		if _, err := c.getBytes(ctx, fmt.Sprintf(pathPrime, pos), ""); err != nil {
			return apperr.Wrap(err, apperr.KeypadPrimingFailed, "fetch pressed keypad image").
				WithMetadata("position", strconv.Itoa(pos))
		}
		if err := c.sleep(ctx, delay); err != nil {
			return apperr.Wrap(err, apperr.KeypadPrimingFailed, "keypad priming interrupted")
		}
	}
	return nil
}
