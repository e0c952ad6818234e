package filters

// Params carries the decode parameters of a stream filter. Zero fields take
// the defaults given in the PDF reference.
type Params struct {
	Predictor        int
	Colors           int
	BitsPerComponent int
	Columns          int

	// CCITTFaxDecode only
	K        int
	Rows     int
	BlackIs1 bool
}

func (p Params) colors() int {
	if p.Colors <= 0 {
		return 1
	}
	return p.Colors
}

func (p Params) bitsPerComponent() int {
	if p.BitsPerComponent <= 0 {
		return 8
	}
	return p.BitsPerComponent
}

func (p Params) columns(def int) int {
	if p.Columns <= 0 {
		return def
	}
	return p.Columns
}
