// Package captcha decodes the portal's image keypad and transcodes logins.
//
// The login page shows ten small images, one per keypad position, each
// drawing a digit in red on white. Which digit sits at which position changes
// on every page load. Decoding an image means sampling an 8x15 window of it
// into a BitPattern and classifying that pattern against ten reference
// patterns. The ten results form a Table, which turns a numeric login into the
// ClickSequence the login form expects.
//
// Nothing in this package performs I/O. Fetching the images and pacing the
// keypad requests live in package portal.
package captcha
