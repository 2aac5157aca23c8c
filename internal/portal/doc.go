// Package portal logs in to the Free Mobile subscriber portal and reads the
// bill listing.
//
// The portal hides the login field behind an image keypad whose digits are
// shuffled on every page load. A login attempt therefore runs through fixed
// states:
//
//	fetching_layout -> decoding_digits -> priming_keypad -> submitting_credentials
//
// and ends logged in, rejected, or with the vendor unreachable. Client.Login
// drives the whole attempt; the individual steps (FetchLayout, DecodeKeypad,
// PrimeKeypad, Submit) are exported for diagnostics and tests.
//
// # Browser Mimicry
//
// The portal expects browser-like traffic. For every keypad position the
// client requests the audio cue before the image, and before submitting it
// requests the pressed-state image of each distinct position it will press,
// pacing those requests so that priming takes at least the configured budget.
//
// # Sessions
//
// Every attempt starts with an empty cookie jar and a new attempt id, which
// tags all of its log lines. Attempts on one Client never overlap. A
// successful attempt returns a Session bound to that attempt's cookies.
package portal
