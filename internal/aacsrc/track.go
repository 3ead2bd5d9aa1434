// SPDX-License-Identifier: EPL-2.0

package aacsrc

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/abema/go-mp4"
	"github.com/bluenviron/mediacommon/pkg/codecs/mpeg4audio"
)

// Container identifies how a Track was framed on disk.
type Container int

const (
	ContainerADTS Container = iota + 1
	ContainerMP4
)

func (c Container) String() string {
	switch c {
	case ContainerADTS:
		return "adts"
	case ContainerMP4:
		return "mp4"
	default:
		return fmt.Sprintf("container(%d)", int(c))
	}
}

// units yields the raw access units of a track by index.
type units interface {
	Len() int
	Unit(i int, buf []byte) ([]byte, error)
}

// Track is an indexed AAC elementary stream.
type Track struct {
	Container Container
	// ASC is the MPEG-4 AudioSpecificConfig the decoder is initialised with.
	ASC      []byte
	Channels int
	// TimeScale is the track's media clock in units per second.
	TimeScale int64
	// MediaTime is the start of the edit list in TimeScale units, 0 when absent.
	MediaTime int64

	units units
}

// AccessUnits returns the number of access units in the track.
func (t *Track) AccessUnits() int { return t.units.Len() }

type adtsUnits [][]byte

func (u adtsUnits) Len() int { return len(u) }

func (u adtsUnits) Unit(i int, _ []byte) ([]byte, error) { return u[i], nil }

type mp4Units struct {
	r       io.ReaderAt
	offsets []int64
	sizes   []uint32
}

func (u *mp4Units) Len() int { return len(u.offsets) }

func (u *mp4Units) Unit(i int, buf []byte) ([]byte, error) {
	size := int(u.sizes[i])
	if cap(buf) < size {
		buf = make([]byte, size)
	}
	buf = buf[:size]

	if _, err := u.r.ReadAt(buf, u.offsets[i]); err != nil {
		return nil, fmt.Errorf("access unit %d: %w", i, err)
	}

	return buf, nil
}

// OpenFile indexes the AAC stream in name. ADTS streams are recognised by
// content, anything else is parsed as an ISO BMFF (MP4/M4A) file. The
// returned closer owns the file handle, if one is kept open.
func OpenFile(name string) (*Track, io.Closer, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}

	head := make([]byte, 10)
	n, _ := io.ReadFull(f, head)
	head = head[:n]

	if isADTS(head) {
		data, err := io.ReadAll(io.MultiReader(bytes.NewReader(head), f))
		_ = f.Close()
		if err != nil {
			return nil, nil, err
		}

		t, err := ParseADTS(data)
		return t, nil, err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, nil, err
	}

	t, err := ParseMP4(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}

	return t, f, nil
}

func isADTS(head []byte) bool {
	if len(head) >= 3 && string(head[:3]) == "ID3" {
		return true
	}

	return len(head) >= 2 && head[0] == 0xFF && head[1]&0xF6 == 0xF0
}

// skipID3 drops a leading ID3v2 tag.
func skipID3(data []byte) []byte {
	if len(data) < 10 || string(data[:3]) != "ID3" {
		return data
	}

	size := int(data[6]&0x7F)<<21 | int(data[7]&0x7F)<<14 | int(data[8]&0x7F)<<7 | int(data[9]&0x7F)
	size += 10
	if data[5]&0x10 != 0 {
		size += 10 // footer
	}

	if size > len(data) {
		return nil
	}

	return data[size:]
}

// ParseADTS indexes a complete ADTS stream held in memory.
func ParseADTS(data []byte) (*Track, error) {
	var pkts mpeg4audio.ADTSPackets
	if err := pkts.Unmarshal(skipID3(data)); err != nil {
		return nil, fmt.Errorf("adts: %w", err)
	}
	if len(pkts) == 0 {
		return nil, ErrNoAccessUnits
	}

	first := pkts[0]
	cfg := mpeg4audio.Config{
		Type:         first.Type,
		SampleRate:   first.SampleRate,
		ChannelCount: first.ChannelCount,
	}

	asc, err := cfg.Marshal()
	if err != nil {
		return nil, fmt.Errorf("adts: %w", err)
	}

	aus := make(adtsUnits, len(pkts))
	for i, pkt := range pkts {
		aus[i] = pkt.AU
	}

	return &Track{
		Container: ContainerADTS,
		ASC:       asc,
		Channels:  first.ChannelCount,
		TimeScale: int64(first.SampleRate),
		units:     aus,
	}, nil
}

// ParseMP4 indexes the first AAC track of an ISO BMFF file.
func ParseMP4(r io.ReadSeeker) (*Track, error) {
	info, err := mp4.Probe(r)
	if err != nil {
		return nil, fmt.Errorf("mp4: %w", err)
	}

	var trk *mp4.Track
	for _, t := range info.Tracks {
		if t.Codec == mp4.CodecMP4A {
			trk = t
			break
		}
	}
	if trk == nil {
		return nil, ErrNoAudioTrack
	}
	if trk.Encrypted {
		return nil, ErrEncrypted
	}
	if trk.Timescale == 0 {
		return nil, fmt.Errorf("mp4: %w: zero timescale", ErrBadSampleTable)
	}

	asc, err := audioSpecificConfig(r)
	if err != nil {
		return nil, err
	}

	u, err := sampleOffsets(r, trk)
	if err != nil {
		return nil, err
	}
	if u.Len() == 0 {
		return nil, ErrNoAccessUnits
	}

	t := &Track{
		Container: ContainerMP4,
		ASC:       asc,
		TimeScale: int64(trk.Timescale),
		units:     u,
	}
	if trk.MP4A != nil {
		t.Channels = int(trk.MP4A.ChannelCount)
	}
	for _, e := range trk.EditList {
		if e.MediaTime >= 0 {
			t.MediaTime = e.MediaTime
			break
		}
	}

	return t, nil
}

func audioSpecificConfig(r io.ReadSeeker) ([]byte, error) {
	boxes, err := mp4.ExtractBoxWithPayload(r, nil, mp4.BoxPath{
		mp4.BoxTypeMoov(),
		mp4.BoxTypeTrak(),
		mp4.BoxTypeMdia(),
		mp4.BoxTypeMinf(),
		mp4.BoxTypeStbl(),
		mp4.BoxTypeStsd(),
		mp4.BoxTypeMp4a(),
		mp4.BoxTypeEsds(),
	})
	if err != nil {
		return nil, fmt.Errorf("mp4: %w", err)
	}

	for _, box := range boxes {
		esds, ok := box.Payload.(*mp4.Esds)
		if !ok {
			continue
		}
		for _, d := range esds.Descriptors {
			if d.Tag == mp4.DecSpecificInfoTag && len(d.Data) >= 2 {
				return d.Data, nil
			}
		}
	}

	return nil, ErrNoConfig
}

func sampleOffsets(r io.ReadSeeker, trk *mp4.Track) (*mp4Units, error) {
	ra, ok := r.(io.ReaderAt)
	if !ok {
		return nil, fmt.Errorf("mp4: reader does not support ReadAt")
	}

	u := &mp4Units{
		r:       ra,
		offsets: make([]int64, 0, len(trk.Samples)),
		sizes:   make([]uint32, 0, len(trk.Samples)),
	}

	i := 0
	for _, c := range trk.Chunks {
		offset := int64(c.DataOffset)
		for range c.SamplesPerChunk {
			if i >= len(trk.Samples) {
				return nil, fmt.Errorf("mp4: %w: chunks reference %d+ samples, table has %d",
					ErrBadSampleTable, i+1, len(trk.Samples))
			}

			size := trk.Samples[i].Size
			u.offsets = append(u.offsets, offset)
			u.sizes = append(u.sizes, size)
			offset += int64(size)
			i++
		}
	}

	return u, nil
}
