package transformation

// Standard IJG luminance quantization table in zigzag order, the order DQT
// segments store it in.
var standardLuminance = [64]int{
	16, 11, 12, 14, 12, 10, 16, 14, 13, 14, 18, 17, 16, 19, 24, 40,
	26, 24, 22, 22, 24, 49, 35, 37, 29, 40, 58, 51, 61, 60, 57, 51,
	56, 55, 64, 72, 92, 78, 64, 68, 87, 69, 55, 56, 80, 109, 81, 87,
	95, 98, 103, 104, 103, 62, 77, 113, 121, 112, 100, 120, 92, 101, 103, 99,
}

// EstimateJPEGQuality returns the IJG quality (1-100) whose scaled
// luminance table is closest to the one stored in the file, or 0 when the
// buffer carries no quantization table.
func EstimateJPEGQuality(buffer []byte) int {
	table, ok := luminanceTable(buffer)
	if !ok {
		return 0
	}

	best, bestDiff := 0, -1
	for q := 100; q >= 1; q-- {
		diff := 0
		for i, v := range scaledTable(q) {
			d := v - table[i]
			if d < 0 {
				d = -d
			}
			diff += d
		}
		if bestDiff == -1 || diff < bestDiff {
			best, bestDiff = q, diff
		}
	}
	return best
}

func scaledTable(quality int) [64]int {
	var scale int
	if quality < 50 {
		scale = 5000 / quality
	} else {
		scale = 200 - quality*2
	}
	var out [64]int
	for i, v := range standardLuminance {
		x := (v*scale + 50) / 100
		if x < 1 {
			x = 1
		} else if x > 255 {
			x = 255
		}
		out[i] = x
	}
	return out
}

// luminanceTable walks the JPEG markers up to the first scan and returns
// table 0, falling back to the first table found.
func luminanceTable(b []byte) ([64]int, bool) {
	var first [64]int
	found := false

	if len(b) < 4 || b[0] != 0xFF || b[1] != 0xD8 {
		return first, false
	}
	i := 2
	for i+4 <= len(b) {
		if b[i] != 0xFF {
			return first, found
		}
		marker := b[i+1]
		if marker == 0xFF {
			i++
			continue
		}
		if marker == 0xD8 || marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7) {
			i += 2
			continue
		}
		if marker == 0xD9 || marker == 0xDA {
			return first, found
		}
		length := int(b[i+2])<<8 | int(b[i+3])
		end := i + 2 + length
		if length < 2 || end > len(b) {
			return first, found
		}
		if marker == 0xDB {
			p := i + 4
			for p < end {
				precision, id := b[p]>>4, b[p]&0x0F
				p++
				size := 64
				if precision == 1 {
					size = 128
				}
				if p+size > end {
					break
				}
				var table [64]int
				for k := 0; k < 64; k++ {
					if precision == 1 {
						table[k] = int(b[p+2*k])<<8 | int(b[p+2*k+1])
					} else {
						table[k] = int(b[p+k])
					}
				}
				p += size
				if id == 0 {
					return table, true
				}
				if !found {
					first, found = table, true
				}
			}
		}
		i = end
	}
	return first, found
}
