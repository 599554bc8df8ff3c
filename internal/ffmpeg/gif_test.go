package ffmpeg

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateClipRange(t *testing.T) {
	tests := []struct {
		name     string
		start    float64
		end      float64
		duration float64
		wantErr  error
	}{
		{"valid", 5.0, 8.5, 60.0, nil},
		{"valid unknown duration", 5.0, 8.5, 0, nil},
		{"zero length", 5.0, 5.0, 60.0, ErrInvalidRange},
		{"reversed", 8.0, 5.0, 60.0, ErrInvalidRange},
		{"negative start", -1.0, 3.0, 60.0, ErrOutOfRange},
		{"end past duration", 55.0, 65.0, 60.0, ErrOutOfRange},
		{"end past duration but duration unknown", 55.0, 65.0, 0, nil},
		{"exactly at duration", 55.0, 60.0, 60.0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateClipRange(tt.start, tt.end, tt.duration)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateClipRange(%v, %v, %v) = %v, want nil", tt.start, tt.end, tt.duration, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateClipRange(%v, %v, %v) = %v, want %v", tt.start, tt.end, tt.duration, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeCaption(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello world", "Hello world"},
		{"it's 100%: fine", "its 100 fine"},
		{"line\nbreak", "line break"},
		{"back\\slash", "backslash"},
		{"  padded  ", "padded"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := sanitizeCaption(tt.in); got != tt.want {
			t.Errorf("sanitizeCaption(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildGIFFilter(t *testing.T) {
	filter := buildGIFFilter(GIFOptions{Caption: "Hello world"})

	for _, want := range []string{"fps=12", "scale=480:-1", "drawtext=", "text='Hello world'", "palettegen", "paletteuse"} {
		if !strings.Contains(filter, want) {
			t.Errorf("filter missing %q: %s", want, filter)
		}
	}
}

func TestBuildGIFFilterNoCaption(t *testing.T) {
	filter := buildGIFFilter(GIFOptions{})
	if strings.Contains(filter, "drawtext") {
		t.Errorf("filter should omit drawtext without a caption: %s", filter)
	}
	if !strings.Contains(filter, "palettegen") {
		t.Errorf("filter missing palette pass: %s", filter)
	}
}

func TestBuildGIFFilterFontFile(t *testing.T) {
	filter := buildGIFFilter(GIFOptions{Caption: "hi there", FontFile: "/fonts/DejaVuSans.ttf"})
	if !strings.Contains(filter, "fontfile='/fonts/DejaVuSans.ttf'") {
		t.Errorf("filter missing fontfile: %s", filter)
	}
}
