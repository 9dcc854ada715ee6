package lightcurve

// DefaultBandColor is used for bands outside the fixed palette.
const DefaultBandColor = "#000000"

var bandColors = map[string]string{
	"u": "#0396A6",
	"g": "#6ABE4F",
	"r": "#F25E5E",
	"i": "#B6508A",
	"z": "#F2E749",
	"y": "#404040",
}

// BandColor returns the display colour of a photometric band as a hex string.
func BandColor(band string) string {
	if c, ok := bandColors[band]; ok {
		return c
	}
	return DefaultBandColor
}
