package transcode

import (
	"strings"
	"testing"
)

func TestParseHeight(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    int
		wantErr bool
	}{
		{"Plain", "720\n", 720, false},
		{"NoNewline", "1080", 1080, false},
		{"MultiStream", "480\n480\n", 480, false},
		{"CRLF", "2160\r\n", 2160, false},
		{"Empty", "", 0, true},
		{"Whitespace", "   \n", 0, true},
		{"Garbage", "N/A", 0, true},
		{"Zero", "0", 0, true},
		{"Negative", "-1", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseHeight(tt.output)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseHeight(%q) error = %v, wantErr %v", tt.output, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseHeight(%q) = %d, want %d", tt.output, got, tt.want)
			}
		})
	}
}

func TestStderrTail(t *testing.T) {
	lines := []string{"one", "two", "three", "four", "five", "six", "seven"}
	got := stderrTail(strings.Join(lines, "\n"))

	if strings.Contains(got, "one") || strings.Contains(got, "two") {
		t.Errorf("stderrTail() = %q, should drop leading lines", got)
	}
	for _, want := range []string{"three", "seven"} {
		if !strings.Contains(got, want) {
			t.Errorf("stderrTail() = %q, want to contain %q", got, want)
		}
	}

	if got := stderrTail("only line\n"); got != "only line" {
		t.Errorf("stderrTail() = %q, want %q", got, "only line")
	}
}

func TestNewFFmpegDefaults(t *testing.T) {
	runner := NewFFmpeg("", "")
	if runner.FFmpegPath != "ffmpeg" || runner.FFprobePath != "ffprobe" {
		t.Errorf("NewFFmpeg defaults = (%q, %q), want binaries on PATH", runner.FFmpegPath, runner.FFprobePath)
	}

	custom := NewFFmpeg("/opt/ffmpeg", "/opt/ffprobe")
	if custom.FFmpegPath != "/opt/ffmpeg" || custom.FFprobePath != "/opt/ffprobe" {
		t.Errorf("NewFFmpeg custom paths not kept: (%q, %q)", custom.FFmpegPath, custom.FFprobePath)
	}
}
