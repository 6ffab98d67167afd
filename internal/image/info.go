package image

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultDPI is assumed when a file carries no resolution.
const DefaultDPI = 72.0

// Info describes an image file's pixel size and resolution.
type Info struct {
	Path      string
	Format    string
	Width     int
	Height    int
	DPIX      float64
	DPIY      float64
	DPIStated bool // false when DefaultDPI was assumed
}

// WidthInches returns the width in inches rounded to 2 decimals.
func (i *Info) WidthInches() float64 {
	return round2(float64(i.Width) / i.DPIX)
}

// HeightInches returns the height in inches rounded to 2 decimals.
func (i *Info) HeightInches() float64 {
	return round2(float64(i.Height) / i.DPIY)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Inspect reads the pixel size and resolution of the image at path.
func Inspect(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	info := &Info{
		Path:   path,
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
		DPIX:   DefaultDPI,
		DPIY:   DefaultDPI,
	}

	var x, y float64
	switch format {
	case "tiff":
		x, y, err = tiffDPI(bytes.NewReader(data))
	case "png":
		x, y, err = pngDPI(data)
	case "jpeg":
		x, y, err = jfifDPI(data)
	default:
		err = errNoResolution
	}
	if err == nil && x > 0 && y > 0 {
		info.DPIX, info.DPIY, info.DPIStated = x, y, true
	}
	return info, nil
}

var errNoResolution = errors.New("no resolution in file")

// tiffDPI reads XResolution, YResolution and ResolutionUnit from the first IFD.
func tiffDPI(r io.ReadSeeker) (float64, float64, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, 0, err
	}

	var byteOrder binary.ByteOrder
	switch {
	case header[0] == 'I' && header[1] == 'I':
		byteOrder = binary.LittleEndian
	case header[0] == 'M' && header[1] == 'M':
		byteOrder = binary.BigEndian
	default:
		return 0, 0, fmt.Errorf("not a valid TIFF file")
	}

	ifdOffset := byteOrder.Uint32(header[4:8])
	if _, err := r.Seek(int64(ifdOffset), io.SeekStart); err != nil {
		return 0, 0, err
	}
	var numEntries uint16
	if err := binary.Read(r, byteOrder, &numEntries); err != nil {
		return 0, 0, err
	}

	var xRes, yRes float64
	var resUnit uint16 = 2 // inches
	entry := make([]byte, 12)
	for i := uint16(0); i < numEntries; i++ {
		if _, err := io.ReadFull(r, entry); err != nil {
			return 0, 0, err
		}
		tag := byteOrder.Uint16(entry[0:2])
		fieldType := byteOrder.Uint16(entry[2:4])
		valueOffset := byteOrder.Uint32(entry[8:12])

		switch tag {
		case 282: // XResolution
			if fieldType == 5 { // RATIONAL
				xRes = readTIFFRational(r, int64(valueOffset), byteOrder)
			}
		case 283: // YResolution
			if fieldType == 5 {
				yRes = readTIFFRational(r, int64(valueOffset), byteOrder)
			}
		case 296: // ResolutionUnit
			if fieldType == 3 { // SHORT, left-justified in the value field
				resUnit = byteOrder.Uint16(entry[8:10])
			}
		}
	}

	if xRes == 0 && yRes == 0 {
		return 0, 0, errNoResolution
	}
	if xRes == 0 {
		xRes = yRes
	}
	if yRes == 0 {
		yRes = xRes
	}
	switch resUnit {
	case 1: // no absolute unit
		return 0, 0, errNoResolution
	case 3: // centimeters
		xRes *= 2.54
		yRes *= 2.54
	}
	return xRes, yRes, nil
}

// readTIFFRational reads a RATIONAL value (two uint32s) at offset.
func readTIFFRational(r io.ReadSeeker, offset int64, byteOrder binary.ByteOrder) float64 {
	currentPos, _ := r.Seek(0, io.SeekCurrent)
	defer r.Seek(currentPos, io.SeekStart)

	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return 0
	}
	var num, denom uint32
	if binary.Read(r, byteOrder, &num) != nil || binary.Read(r, byteOrder, &denom) != nil || denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}

// pngDPI reads the pHYs chunk. Only the metre unit carries a resolution.
func pngDPI(data []byte) (float64, float64, error) {
	const sigLen = 8
	p := sigLen
	for p+8 <= len(data) {
		n := int(binary.BigEndian.Uint32(data[p : p+4]))
		typ := string(data[p+4 : p+8])
		body := p + 8
		if n < 0 || body+n > len(data) {
			break
		}
		switch typ {
		case "pHYs":
			if n < 9 || data[body+8] != 1 {
				return 0, 0, errNoResolution
			}
			ppmX := float64(binary.BigEndian.Uint32(data[body : body+4]))
			ppmY := float64(binary.BigEndian.Uint32(data[body+4 : body+8]))
			return ppmX * 0.0254, ppmY * 0.0254, nil
		case "IDAT", "IEND":
			return 0, 0, errNoResolution
		}
		p = body + n + 4 // skip CRC
	}
	return 0, 0, errNoResolution
}

// jfifDPI reads the density fields of a JFIF APP0 segment.
func jfifDPI(data []byte) (float64, float64, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return 0, 0, errNoResolution
	}
	p := 2
	for p+4 <= len(data) && data[p] == 0xFF {
		marker := data[p+1]
		n := int(binary.BigEndian.Uint16(data[p+2 : p+4]))
		seg := data[p+4:]
		if n < 2 || len(seg) < n-2 {
			break
		}
		seg = seg[:n-2]
		if marker == 0xE0 && len(seg) >= 12 && string(seg[:5]) == "JFIF\x00" {
			unit := seg[7]
			x := float64(binary.BigEndian.Uint16(seg[8:10]))
			y := float64(binary.BigEndian.Uint16(seg[10:12]))
			switch unit {
			case 1:
				return x, y, nil
			case 2:
				return x * 2.54, y * 2.54, nil
			}
			return 0, 0, errNoResolution
		}
		if marker == 0xDA { // start of scan
			break
		}
		p += 2 + n
	}
	return 0, 0, errNoResolution
}

// SupportedFormats returns the file extensions Inspect can read.
func SupportedFormats() []string {
	return []string{".jpg", ".jpeg", ".png", ".bmp", ".gif", ".tiff", ".tif", ".webp"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
