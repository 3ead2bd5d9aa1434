// SPDX-License-Identifier: EPL-2.0

package aacsrc

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/abema/go-mp4"
	"github.com/bluenviron/mediacommon/pkg/codecs/mpeg4audio"

	"github.com/ik5/audiodecoder/audio"
)

func adtsStream(t *testing.T, units int) []byte {
	t.Helper()

	pkts := make(mpeg4audio.ADTSPackets, units)
	for i := range pkts {
		pkts[i] = &mpeg4audio.ADTSPacket{
			Type:         mpeg4audio.ObjectTypeAACLC,
			SampleRate:   44100,
			ChannelCount: 2,
			AU:           []byte{byte(i), 1, 2, 3},
		}
	}

	data, err := pkts.Marshal()
	if err != nil {
		t.Fatalf("ADTSPackets.Marshal() error = %v", err)
	}

	return data
}

func TestParseADTS(t *testing.T) {
	t.Parallel()

	tr, err := ParseADTS(adtsStream(t, 5))
	if err != nil {
		t.Fatalf("ParseADTS() error = %v", err)
	}

	if tr.Container != ContainerADTS {
		t.Errorf("Container = %v, want adts", tr.Container)
	}
	if tr.AccessUnits() != 5 {
		t.Errorf("AccessUnits() = %d, want 5", tr.AccessUnits())
	}
	if tr.Channels != 2 || tr.TimeScale != 44100 {
		t.Errorf("Channels/TimeScale = %d/%d, want 2/44100", tr.Channels, tr.TimeScale)
	}

	var cfg mpeg4audio.Config
	if err := cfg.Unmarshal(tr.ASC); err != nil {
		t.Fatalf("Config.Unmarshal() error = %v", err)
	}
	if cfg.Type != mpeg4audio.ObjectTypeAACLC || cfg.SampleRate != 44100 || cfg.ChannelCount != 2 {
		t.Errorf("ASC = %+v", cfg)
	}

	au, err := tr.units.Unit(3, nil)
	if err != nil {
		t.Fatalf("Unit() error = %v", err)
	}
	if !bytes.Equal(au, []byte{3, 1, 2, 3}) {
		t.Errorf("Unit(3) = %v", au)
	}
}

func TestParseADTS_WithID3(t *testing.T) {
	t.Parallel()

	tag := []byte{'I', 'D', '3', 4, 0, 0, 0, 0, 0, 5, 'x', 'x', 'x', 'x', 'x'}
	data := append(tag, adtsStream(t, 2)...)

	if !isADTS(data) {
		t.Error("isADTS() = false for ID3 prefixed stream")
	}

	tr, err := ParseADTS(data)
	if err != nil {
		t.Fatalf("ParseADTS() error = %v", err)
	}
	if tr.AccessUnits() != 2 {
		t.Errorf("AccessUnits() = %d, want 2", tr.AccessUnits())
	}
}

func TestParseADTS_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := ParseADTS([]byte("not an adts stream")); err == nil {
		t.Error("ParseADTS() error = nil for garbage")
	}
	if _, err := ParseADTS(nil); err == nil {
		t.Error("ParseADTS() error = nil for empty input")
	}
}

func TestIsADTS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		head []byte
		want bool
	}{
		{"adts mpeg4", []byte{0xFF, 0xF1}, true},
		{"adts mpeg2", []byte{0xFF, 0xF9}, true},
		{"mp3 layer 3", []byte{0xFF, 0xFB}, false},
		{"mp4 box", []byte{0, 0, 0, 0x20, 'f', 't', 'y', 'p'}, false},
		{"short", []byte{0xFF}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := isADTS(tt.head); got != tt.want {
				t.Errorf("isADTS(% x) = %v, want %v", tt.head, got, tt.want)
			}
		})
	}
}

func TestSampleOffsets(t *testing.T) {
	t.Parallel()

	data := make([]byte, 600)
	for i := range data {
		data[i] = byte(i)
	}

	trk := &mp4.Track{
		Samples: mp4.Samples{{Size: 10}, {Size: 20}, {Size: 5}},
		Chunks:  mp4.Chunks{{DataOffset: 100, SamplesPerChunk: 2}, {DataOffset: 500, SamplesPerChunk: 1}},
	}

	u, err := sampleOffsets(bytes.NewReader(data), trk)
	if err != nil {
		t.Fatalf("sampleOffsets() error = %v", err)
	}

	wantOffsets := []int64{100, 110, 500}
	for i, want := range wantOffsets {
		if u.offsets[i] != want {
			t.Errorf("offset[%d] = %d, want %d", i, u.offsets[i], want)
		}
	}

	au, err := u.Unit(1, nil)
	if err != nil {
		t.Fatalf("Unit() error = %v", err)
	}
	if len(au) != 20 || au[0] != 110 {
		t.Errorf("Unit(1) = %d bytes starting at %d", len(au), au[0])
	}
}

func TestSampleOffsets_Inconsistent(t *testing.T) {
	t.Parallel()

	trk := &mp4.Track{
		Samples: mp4.Samples{{Size: 10}},
		Chunks:  mp4.Chunks{{DataOffset: 0, SamplesPerChunk: 3}},
	}

	if _, err := sampleOffsets(bytes.NewReader(nil), trk); !errors.Is(err, ErrBadSampleTable) {
		t.Errorf("sampleOffsets() error = %v, want ErrBadSampleTable", err)
	}
}

func TestOpenFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	adts := filepath.Join(dir, "tone.aac")
	if err := os.WriteFile(adts, adtsStream(t, 4), 0o600); err != nil {
		t.Fatal(err)
	}

	tr, closer, err := OpenFile(adts)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	if closer != nil {
		t.Error("OpenFile() kept a handle for an in-memory ADTS stream")
	}
	if tr.AccessUnits() != 4 {
		t.Errorf("AccessUnits() = %d, want 4", tr.AccessUnits())
	}

	junk := filepath.Join(dir, "junk.m4a")
	if err := os.WriteFile(junk, []byte("definitely not an mp4 file"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := OpenFile(junk); err == nil {
		t.Error("OpenFile() error = nil for junk input")
	}

	if _, _, err := OpenFile(filepath.Join(dir, "missing.m4a")); err == nil {
		t.Error("OpenFile() error = nil for a missing file")
	}
}

// mp4Builder writes ISO BMFF boxes for test fixtures.
type mp4Builder struct {
	t *testing.T
	w *mp4.Writer
}

func (b *mp4Builder) start(typ mp4.BoxType) *mp4.BoxInfo {
	b.t.Helper()

	bi, err := b.w.StartBox(&mp4.BoxInfo{Type: typ})
	if err != nil {
		b.t.Fatalf("StartBox(%s) error = %v", typ, err)
	}

	return bi
}

func (b *mp4Builder) end() {
	b.t.Helper()

	if _, err := b.w.EndBox(); err != nil {
		b.t.Fatalf("EndBox() error = %v", err)
	}
}

func (b *mp4Builder) box(typ mp4.BoxType, payload mp4.IImmutableBox) {
	b.t.Helper()

	b.start(typ)
	if _, err := mp4.Marshal(b.w, payload, mp4.Context{}); err != nil {
		b.t.Fatalf("Marshal(%s) error = %v", typ, err)
	}
	b.end()
}

// writeM4A writes a single track AAC file whose access units are split over
// two chunks, with an edit list starting at mediaTime.
func writeM4A(t *testing.T, asc []byte, aus [][]byte, mediaTime int32) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tone.m4a")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	b := &mp4Builder{t: t, w: mp4.NewWriter(f)}

	b.box(mp4.BoxTypeFtyp(), &mp4.Ftyp{
		MajorBrand:   [4]byte{'M', '4', 'A', ' '},
		MinorVersion: 0x200,
		CompatibleBrands: []mp4.CompatibleBrandElem{
			{CompatibleBrand: [4]byte{'i', 's', 'o', 'm'}},
			{CompatibleBrand: [4]byte{'m', 'p', '4', '2'}},
		},
	})

	mdat := b.start(mp4.BoxTypeMdat())
	dataOffset := mdat.Offset + mdat.HeaderSize
	sizes := make([]uint32, len(aus))
	for i, au := range aus {
		if _, err := b.w.Write(au); err != nil {
			t.Fatal(err)
		}
		sizes[i] = uint32(len(au))
	}
	b.end()

	first := len(aus) / 2
	second := dataOffset
	for _, s := range sizes[:first] {
		second += uint64(s)
	}

	n := uint32(len(aus))
	duration := n * 1024

	b.start(mp4.BoxTypeMoov())
	b.box(mp4.BoxTypeMvhd(), &mp4.Mvhd{Timescale: 44100, DurationV0: duration, Rate: 0x10000, Volume: 0x100, NextTrackID: 2})
	b.start(mp4.BoxTypeTrak())
	b.box(mp4.BoxTypeTkhd(), &mp4.Tkhd{FullBox: mp4.FullBox{Flags: [3]byte{0, 0, 3}}, TrackID: 1, DurationV0: duration})
	b.start(mp4.BoxTypeEdts())
	b.box(mp4.BoxTypeElst(), &mp4.Elst{
		EntryCount: 1,
		Entries:    []mp4.ElstEntry{{SegmentDurationV0: duration, MediaTimeV0: mediaTime, MediaRateInteger: 1}},
	})
	b.end()
	b.start(mp4.BoxTypeMdia())
	b.box(mp4.BoxTypeMdhd(), &mp4.Mdhd{Timescale: 44100, DurationV0: duration})
	b.box(mp4.BoxTypeHdlr(), &mp4.Hdlr{HandlerType: [4]byte{'s', 'o', 'u', 'n'}, Name: "SoundHandler"})
	b.start(mp4.BoxTypeMinf())
	b.start(mp4.BoxTypeStbl())
	b.start(mp4.BoxTypeStsd())
	if _, err := mp4.Marshal(b.w, &mp4.Stsd{EntryCount: 1}, mp4.Context{}); err != nil {
		t.Fatal(err)
	}
	b.start(mp4.BoxTypeMp4a())
	if _, err := mp4.Marshal(b.w, &mp4.AudioSampleEntry{
		SampleEntry:  mp4.SampleEntry{AnyTypeBox: mp4.AnyTypeBox{Type: mp4.BoxTypeMp4a()}, DataReferenceIndex: 1},
		ChannelCount: 2,
		SampleSize:   16,
		SampleRate:   44100 << 16,
	}, mp4.Context{}); err != nil {
		t.Fatal(err)
	}
	b.box(mp4.BoxTypeEsds(), &mp4.Esds{Descriptors: []mp4.Descriptor{
		{Tag: mp4.ESDescrTag, Size: 25, ESDescriptor: &mp4.ESDescriptor{ESID: 1}},
		{Tag: mp4.DecoderConfigDescrTag, Size: 17, DecoderConfigDescriptor: &mp4.DecoderConfigDescriptor{
			ObjectTypeIndication: 0x40,
			StreamType:           5,
			Reserved:             true,
		}},
		{Tag: mp4.DecSpecificInfoTag, Size: uint32(len(asc)), Data: asc},
		{Tag: mp4.SLConfigDescrTag, Size: 1, Data: []byte{2}},
	}})
	b.end() // mp4a
	b.end() // stsd
	b.box(mp4.BoxTypeStts(), &mp4.Stts{EntryCount: 1, Entries: []mp4.SttsEntry{{SampleCount: n, SampleDelta: 1024}}})
	b.box(mp4.BoxTypeStsc(), &mp4.Stsc{EntryCount: 2, Entries: []mp4.StscEntry{
		{FirstChunk: 1, SamplesPerChunk: uint32(first), SampleDescriptionIndex: 1},
		{FirstChunk: 2, SamplesPerChunk: n - uint32(first), SampleDescriptionIndex: 1},
	}})
	b.box(mp4.BoxTypeStsz(), &mp4.Stsz{SampleCount: n, EntrySize: sizes})
	b.box(mp4.BoxTypeStco(), &mp4.Stco{EntryCount: 2, ChunkOffset: []uint32{uint32(dataOffset), uint32(second)}})
	b.end() // stbl
	b.end() // minf
	b.end() // mdia
	b.end() // trak
	b.end() // moov

	return path
}

func TestOpenFile_M4A(t *testing.T) {
	t.Parallel()

	asc := []byte{0x12, 0x10}
	aus := make([][]byte, 5)
	for i := range aus {
		aus[i] = bytes.Repeat([]byte{byte(i)}, 3+i)
	}

	tr, closer, err := OpenFile(writeM4A(t, asc, aus, 2112))
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	if closer == nil {
		t.Fatal("OpenFile() returned no handle for an MP4 file")
	}
	defer closer.Close()

	if tr.Container != ContainerMP4 {
		t.Errorf("Container = %v, want mp4", tr.Container)
	}
	if tr.Channels != 2 || tr.TimeScale != 44100 {
		t.Errorf("Channels/TimeScale = %d/%d, want 2/44100", tr.Channels, tr.TimeScale)
	}
	if !bytes.Equal(tr.ASC, asc) {
		t.Errorf("ASC = % x, want % x", tr.ASC, asc)
	}
	if tr.MediaTime != 2112 {
		t.Errorf("MediaTime = %d, want 2112", tr.MediaTime)
	}
	if tr.AccessUnits() != len(aus) {
		t.Fatalf("AccessUnits() = %d, want %d", tr.AccessUnits(), len(aus))
	}

	// units 1 and 2 sit on either side of the chunk boundary
	for _, i := range []int{0, 1, 2, 4} {
		au, err := tr.units.Unit(i, nil)
		if err != nil {
			t.Fatalf("Unit(%d) error = %v", i, err)
		}
		if !bytes.Equal(au, aus[i]) {
			t.Errorf("Unit(%d) = % x, want % x", i, au, aus[i])
		}
	}

	o := &mockOpener{template: mockAACDecoder{channels: 2, sampleRate: 44100}}
	src, err := newSource(o.open, tr, nil, audio.EncodingS16LE)
	if err != nil {
		t.Fatalf("newSource() error = %v", err)
	}

	f, err := src.Format()
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if f.PrimingFrames != 2112-1024 {
		t.Errorf("PrimingFrames = %d, want %d", f.PrimingFrames, 2112-1024)
	}
	if f.TotalFrames != 4*1024 {
		t.Errorf("TotalFrames = %d, want %d", f.TotalFrames, 4*1024)
	}
}

func TestOpenFile_M4AEmptyEdit(t *testing.T) {
	t.Parallel()

	tr, closer, err := OpenFile(writeM4A(t, []byte{0x12, 0x10}, [][]byte{{1}, {2}}, -1))
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer closer.Close()

	// an empty edit carries no media time
	if tr.MediaTime != 0 {
		t.Errorf("MediaTime = %d, want 0", tr.MediaTime)
	}
}
