package audio

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// Transcoder converts extracted .wem audio payloads to mp3 by
// driving external decoder/encoder processes. Files whose duration
// falls outside [MinDuration, MaxDuration] seconds are skipped.
type Transcoder struct {
	Vgmstream string // vgmstream-cli binary
	Ffmpeg    string
	Ffprobe   string

	MinDuration float64
	MaxDuration float64

	logger *slog.Logger
}

// NewTranscoder creates a Transcoder. Empty tool paths fall back to
// PATH lookup.
func NewTranscoder(vgmstream, ffmpeg, ffprobe string, minDur, maxDur float64, logger *slog.Logger) *Transcoder {
	if vgmstream == "" {
		vgmstream = "vgmstream-cli"
	}
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transcoder{
		Vgmstream:   vgmstream,
		Ffmpeg:      ffmpeg,
		Ffprobe:     ffprobe,
		MinDuration: minDur,
		MaxDuration: maxDur,
		logger:      logger,
	}
}

// vgmstream -m reports e.g. "play duration: 5177571 samples (1:47.345 seconds)"
var playDurationRe = regexp.MustCompile(`play duration:\s*\d+ samples \((\d+):([0-9.]+) seconds\)`)

// probeWem parses the duration in seconds out of vgmstream's
// metadata output.
func (t *Transcoder) probeWem(wemPath string) (float64, error) {
	out, err := exec.Command(t.Vgmstream, "-m", wemPath).Output()
	if err != nil {
		return 0, fmt.Errorf("failed to probe %s: %w", wemPath, err)
	}

	m := playDurationRe.FindStringSubmatch(string(out))
	if m == nil {
		return 0, fmt.Errorf("no play duration in vgmstream output for %s", wemPath)
	}

	mins, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, err
	}
	secs, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, err
	}
	return mins*60 + secs, nil
}

// probeFile returns a finished file's duration in seconds via
// ffprobe.
func (t *Transcoder) probeFile(path string) (float64, error) {
	out, err := exec.Command(t.Ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("failed to probe %s: %w", path, err)
	}
	return strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
}

func (t *Transcoder) inRange(length float64) bool {
	return length >= t.MinDuration && length <= t.MaxDuration
}

// Transcode converts one .wem file to mp3 at 256kbps, going through
// an intermediate ogg. It reports whether the file was skipped for
// being outside the duration range.
func (t *Transcoder) Transcode(wemPath, mp3Path string) (skipped bool, err error) {
	length, err := t.probeWem(wemPath)
	if err != nil {
		return false, err
	}
	if !t.inRange(length) {
		t.logger.Debug("skipping wem outside duration range",
			"wem", wemPath,
			"duration", length,
		)
		return true, nil
	}

	oggPath := strings.TrimSuffix(wemPath, ".wem") + ".ogg"
	defer os.Remove(oggPath)

	if out, err := exec.Command(t.Vgmstream, "-o", oggPath, wemPath).CombinedOutput(); err != nil {
		return false, fmt.Errorf("failed to convert %s to ogg: %w: %s", wemPath, err, out)
	}

	// The wem header can over-report; re-check the decoded audio.
	length, err = t.probeFile(oggPath)
	if err != nil {
		return false, err
	}
	if !t.inRange(length) {
		t.logger.Debug("skipping ogg outside duration range",
			"ogg", oggPath,
			"duration", length,
		)
		return true, nil
	}

	t.logger.Info("transcoding", "wem", wemPath, "mp3", mp3Path)

	if out, err := exec.Command(t.Ffmpeg,
		"-i", oggPath,
		"-c:a", "libmp3lame",
		"-b:a", "256k",
		mp3Path,
	).CombinedOutput(); err != nil {
		return false, fmt.Errorf("failed to encode %s: %w: %s", mp3Path, err, out)
	}

	return false, nil
}
