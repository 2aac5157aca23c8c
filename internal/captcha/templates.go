package captcha

// referencePatterns are the ink fingerprints of the keypad glyphs 0-9, in
// column-major order. They were captured from the portal's own images.
var referencePatterns = [10]string{
	"001111111111110011111111111111111111111111111110000000000011110000000000011111111111111111011111111111111001111111111110",
	"001110000000000001110000000000001110000000000011111111111111111111111111111111111111111111000000000000000000000000000000",
	"011110000001111011110000111111111000001111111110000011110011110000111100011111111111000011011111110000011001111000000011",
	"011100000011110111100000011111111000110000111110000110000011110001110000011111111111111111011111111111110001110001111100",
	"000000011111000000001111111000000111110011000011110000011000111111111111111111111111111111111111111111111000000000011000",
	"111111110011110111111110011111111001110000111111001100000011111001100000011111001111111111111001111111111010000111111110",
	"001111111111110011111111111111111111111111111110001100000011110001100000011111001111111111111101111111111011100111111110",
	"111000000000000111000000000000111000000011111111000011111111111011111111111111111111000000111111000000000111100000000000",
	"001110001111110011111111111111111111111111111110000110000011110000110000011111111111111111011111111111111001111001111110",
	"001111111000110011111111100111111111111100111110000001100011110000001100011111111111111111011111111111111001111111111110",
}

// References returns the reference patterns indexed by digit.
func References() [10]BitPattern {
	var out [10]BitPattern
	for d, s := range referencePatterns {
		out[d] = MustParsePattern(s)
	}
	return out
}
