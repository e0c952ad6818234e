package filters

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// FlateDecode decompresses zlib data and undoes the predictor named in params.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create zlib reader: %w", err)
	}
	defer r.Close()

	decompressed, err := io.ReadAll(r)
	if err != nil {
		// Truncated streams are common; keep what was recovered.
		if len(decompressed) == 0 {
			return nil, fmt.Errorf("zlib decompression failed: %w", err)
		}
	}

	switch {
	case params.Predictor <= 1:
		return decompressed, nil
	case params.Predictor == 2:
		return tiffPredictor(decompressed, params)
	case params.Predictor >= 10 && params.Predictor <= 15:
		return pngPredictor(decompressed, params)
	default:
		return nil, fmt.Errorf("unsupported predictor: %d", params.Predictor)
	}
}

// FlateEncode compresses data with zlib at the default level.
func FlateEncode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// tiffPredictor undoes TIFF Predictor 2 for 8-bit samples.
func tiffPredictor(data []byte, params Params) ([]byte, error) {
	if bpc := params.bitsPerComponent(); bpc != 8 {
		return nil, fmt.Errorf("TIFF predictor only supports 8 bits per component, got %d", bpc)
	}
	colors := params.colors()
	rowSize := params.columns(1) * colors
	if len(data)%rowSize != 0 {
		return nil, fmt.Errorf("data size %d is not a multiple of row size %d", len(data), rowSize)
	}

	out := append([]byte(nil), data...)
	for row := 0; row < len(out); row += rowSize {
		for i := row + colors; i < row+rowSize; i++ {
			out[i] += out[i-colors]
		}
	}
	return out, nil
}

// pngPredictor undoes the per-row PNG filters (None, Sub, Up, Average, Paeth).
func pngPredictor(data []byte, params Params) ([]byte, error) {
	bpp := (params.colors()*params.bitsPerComponent() + 7) / 8
	width := (params.columns(1)*params.colors()*params.bitsPerComponent() + 7) / 8
	rowSize := width + 1
	if len(data)%rowSize != 0 {
		return nil, fmt.Errorf("data size %d is not a multiple of row size %d", len(data), rowSize)
	}

	rows := len(data) / rowSize
	out := make([]byte, rows*width)
	prev := make([]byte, width)
	for row := 0; row < rows; row++ {
		filter := data[row*rowSize]
		src := data[row*rowSize+1 : (row+1)*rowSize]
		cur := out[row*width : (row+1)*width]

		for i := range cur {
			var left, upLeft byte
			if i >= bpp {
				left = cur[i-bpp]
				upLeft = prev[i-bpp]
			}
			up := prev[i]

			switch filter {
			case 0:
				cur[i] = src[i]
			case 1:
				cur[i] = src[i] + left
			case 2:
				cur[i] = src[i] + up
			case 3:
				cur[i] = src[i] + byte((int(left)+int(up))/2)
			case 4:
				cur[i] = src[i] + paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("unknown PNG filter %d in row %d", filter, row)
			}
		}
		prev = cur
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
