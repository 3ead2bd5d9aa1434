// SPDX-License-Identifier: EPL-2.0

package audio

// ChannelMapper converts interleaved frames between channel counts.
// Downmixing to mono averages all channels, upmixing repeats the native
// channels in order and any other reduction keeps the leading channels.
type ChannelMapper struct {
	in  int
	out int
}

func NewChannelMapper(in, out int) ChannelMapper {
	return ChannelMapper{in: in, out: out}
}

func (m ChannelMapper) In() int  { return m.in }
func (m ChannelMapper) Out() int { return m.out }

// Identity reports whether Map is a plain copy.
func (m ChannelMapper) Identity() bool { return m.in == m.out }

// Map converts frames interleaved samples from src (m.In channels) into dst
// (m.Out channels). dst must hold frames*m.Out samples and must not overlap src.
func (m ChannelMapper) Map(dst, src []float32, frames int) {
	if m.Identity() {
		copy(dst[:frames*m.out], src[:frames*m.in])
		return
	}

	if m.out == 1 {
		invChannels := float32(1.0) / float32(m.in)

		switch m.in {
		case 2: // Stereo
			for f := range frames {
				idx := f << 1
				dst[f] = (src[idx] + src[idx+1]) * 0.5
			}
		default:
			for f := range frames {
				sum := float32(0)
				base := f * m.in
				for c := range m.in {
					sum += src[base+c]
				}
				dst[f] = sum * invChannels
			}
		}

		return
	}

	for f := range frames {
		srcBase := f * m.in
		dstBase := f * m.out
		for c := range m.out {
			dst[dstBase+c] = src[srcBase+c%m.in]
		}
	}
}
