package render

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type probeRunner struct {
	stdout string
	err    error
	args   []string
}

func (p *probeRunner) Run(_ context.Context, _ string, args []string, _ RunOptions) (RunResult, error) {
	p.args = args
	return RunResult{Stdout: []byte(p.stdout)}, p.err
}

func TestProbeParsesStreams(t *testing.T) {
	runner := &probeRunner{stdout: `{
  "streams": [
    {"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080},
    {"codec_type": "audio", "codec_name": "aac"}
  ],
  "format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "7.507000"}
}`}

	info, err := Probe(context.Background(), runner, "ffprobe", "/clips/1_clip.mp4")
	if err != nil {
		t.Fatalf("Probe error: %v", err)
	}
	if info.VideoStreams != 1 || info.AudioStreams != 1 || info.Width != 1920 || info.VideoCodec != "h264" {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.DurationSeconds != 7.507 {
		t.Fatalf("unexpected duration %v", info.DurationSeconds)
	}
	if runner.args[len(runner.args)-1] != "/clips/1_clip.mp4" {
		t.Fatalf("expected path as last arg, got %v", runner.args)
	}
}

func TestProbeRejectsAudioOnly(t *testing.T) {
	runner := &probeRunner{stdout: `{"streams":[{"codec_type":"audio"}],"format":{"format_name":"wav"}}`}
	_, err := Probe(context.Background(), runner, "ffprobe", "voice.mp4")
	if err == nil || !strings.Contains(err.Error(), "no video stream") {
		t.Fatalf("expected no video stream error, got %v", err)
	}
}

func TestProbeWrapsRunnerError(t *testing.T) {
	boom := errors.New("exit status 1")
	_, err := Probe(context.Background(), &probeRunner{err: boom}, "ffprobe", "bad.mp4")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped runner error, got %v", err)
	}
}

func TestLastLine(t *testing.T) {
	cases := map[string]string{
		"":                                      "",
		"frame=1\nInvalid data found\n":         "Invalid data found",
		"a\r\nNo such filter: 'drawtext'\r\n  ": "No such filter: 'drawtext'",
		"single":                                "single",
	}
	for in, want := range cases {
		if got := lastLine(in); got != want {
			t.Errorf("lastLine(%q) = %q, want %q", in, got, want)
		}
	}
}
