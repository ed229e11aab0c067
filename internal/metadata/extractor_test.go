package metadata

import (
	"bytes"
	"context"
	"encoding/binary"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	value []byte
}

func asciiEntry(tag uint16, s string) ifdEntry {
	v := append([]byte(s), 0)
	return ifdEntry{tag: tag, typ: 2, count: uint32(len(v)), value: v}
}

// buildTIFF writes a little-endian TIFF with IFD0 DateTime and an Exif sub-IFD holding
// DateTimeOriginal. Empty strings leave the tag out.
func buildTIFF(dateTime, dateTimeOriginal string) []byte {
	le := binary.LittleEndian

	var ifd0, exifIFD []ifdEntry
	if dateTime != "" {
		ifd0 = append(ifd0, asciiEntry(0x0132, dateTime))
	}
	if dateTimeOriginal != "" {
		exifIFD = append(exifIFD, asciiEntry(0x9003, dateTimeOriginal))
	}

	n0 := len(ifd0)
	if len(exifIFD) > 0 {
		n0++
	}
	ifd0Size := 2 + 12*n0 + 4
	exifOff := 8 + ifd0Size
	exifSize := 0
	if len(exifIFD) > 0 {
		exifSize = 2 + 12*len(exifIFD) + 4
	}
	dataOff := exifOff + exifSize

	if len(exifIFD) > 0 {
		ptr := make([]byte, 4)
		le.PutUint32(ptr, uint32(exifOff))
		ifd0 = append(ifd0, ifdEntry{tag: 0x8769, typ: 4, count: 1, value: ptr})
	}

	var out, data bytes.Buffer
	out.WriteString("II")
	_ = binary.Write(&out, le, uint16(42))
	_ = binary.Write(&out, le, uint32(8))

	writeIFD := func(entries []ifdEntry) {
		_ = binary.Write(&out, le, uint16(len(entries)))
		for _, e := range entries {
			_ = binary.Write(&out, le, e.tag)
			_ = binary.Write(&out, le, e.typ)
			_ = binary.Write(&out, le, e.count)
			if len(e.value) <= 4 {
				v := make([]byte, 4)
				copy(v, e.value)
				out.Write(v)
				continue
			}
			_ = binary.Write(&out, le, uint32(dataOff+data.Len()))
			data.Write(e.value)
		}
		_ = binary.Write(&out, le, uint32(0))
	}

	writeIFD(ifd0)
	if len(exifIFD) > 0 {
		writeIFD(exifIFD)
	}
	out.Write(data.Bytes())
	return out.Bytes()
}

func buildJPEG(dateTime, dateTimeOriginal string) []byte {
	tiff := buildTIFF(dateTime, dateTimeOriginal)
	payload := append([]byte("Exif\x00\x00"), tiff...)

	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8, 0xFF, 0xE1})
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(payload)+2))
	buf.Write(payload)
	buf.Write([]byte{0xFF, 0xD9})
	return buf.Bytes()
}

func TestParseCaptureDate(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want *time.Time
	}{
		{
			name: "original capture time preferred",
			data: buildJPEG("2024:06:30 08:00:00", "2024:01:01 10:20:30"),
			want: ptr(time.Date(2024, 1, 1, 10, 20, 30, 0, time.UTC)),
		},
		{
			name: "falls back to modification time",
			data: buildJPEG("2024:06:30 08:00:00", ""),
			want: ptr(time.Date(2024, 6, 30, 8, 0, 0, 0, time.UTC)),
		},
		{
			name: "no date tags",
			data: buildJPEG("", ""),
			want: nil,
		},
		{
			name: "malformed date",
			data: buildJPEG("not a date", ""),
			want: nil,
		},
		{
			name: "not an image",
			data: []byte("plain text body"),
			want: nil,
		},
		{
			name: "empty",
			data: nil,
			want: nil,
		},
		{
			name: "truncated exif",
			data: buildJPEG("2024:06:30 08:00:00", "2024:01:01 10:20:30")[:20],
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCaptureDate(bytes.NewReader(tt.data))
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "want %s got %s", tt.want, got)
		})
	}
}

func TestExtractor_CaptureDate(t *testing.T) {
	jpeg := buildJPEG("", "2024:06:01 00:00:00")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("id") {
		case "ok":
			_, _ = w.Write(jpeg)
		case "missing":
			http.NotFound(w, r)
		default:
			_, _ = w.Write([]byte("<html>virus scan warning</html>"))
		}
	}))
	defer server.Close()

	ex := NewExtractor(server.Client(), func(id string) string { return server.URL + "/uc?id=" + id })

	got, err := ex.CaptureDate(context.Background(), "ok")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), *got)

	got, err = ex.CaptureDate(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, got)

	got, err = ex.CaptureDate(context.Background(), "html")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestExtractor_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	ex := NewExtractor(nil, func(id string) string { return url + "/uc?id=" + id })

	got, err := ex.CaptureDate(context.Background(), "x")
	assert.Error(t, err)
	assert.Nil(t, got)
}

func ptr(t time.Time) *time.Time { return &t }
