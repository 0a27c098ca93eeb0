package progress

import (
	"testing"

	"github.com/dmarceau/streamgate/internal/domain"
)

func TestParseDownloadLine(t *testing.T) {
	upd, ok := Parse("[download]  10.0% of ~50.00MiB at 1.23MiB/s ETA 00:30")
	if !ok {
		t.Fatal("Expected line to match")
	}
	if upd.Progress == nil || *upd.Progress != 10.0 {
		t.Errorf("Expected progress 10.0, got %v", upd.Progress)
	}
	if upd.Status == nil || *upd.Status != domain.JobStatusDownloading {
		t.Errorf("Expected downloading status, got %v", upd.Status)
	}
	if upd.TotalSize == nil || *upd.TotalSize != "50.00MiB" {
		t.Errorf("Expected total size 50.00MiB, got %v", upd.TotalSize)
	}
	if upd.ETA == nil || *upd.ETA != "00:30" {
		t.Errorf("Expected ETA 00:30, got %v", upd.ETA)
	}
}

func TestParseClampsHundredPercent(t *testing.T) {
	upd, ok := Parse("[download] 100% of 50.00MiB in 00:12")
	if !ok {
		t.Fatal("Expected line to match")
	}
	if upd.Progress == nil || *upd.Progress != 99 {
		t.Errorf("Expected progress clamped to 99, got %v", upd.Progress)
	}
	if upd.TotalSize == nil || *upd.TotalSize != "50.00MiB" {
		t.Errorf("Expected total size 50.00MiB, got %v", upd.TotalSize)
	}
	if upd.ETA != nil {
		t.Errorf("Expected no ETA, got %v", *upd.ETA)
	}
}

func TestParseDestination(t *testing.T) {
	upd, ok := Parse("[download] Destination: /tmp/job1/video.f137.mp4")
	if !ok {
		t.Fatal("Expected line to match")
	}
	if upd.OutputPath == nil || *upd.OutputPath != "/tmp/job1/video.f137.mp4" {
		t.Errorf("Expected destination path, got %v", upd.OutputPath)
	}
	if upd.Progress != nil {
		t.Error("Expected no progress on destination line")
	}
}

func TestParseMergeSupersedesDestination(t *testing.T) {
	upd, ok := Parse(`[Merger] Merging formats into "/tmp/job1/video.mp4"`)
	if !ok {
		t.Fatal("Expected line to match")
	}
	if upd.OutputPath == nil || *upd.OutputPath != "/tmp/job1/video.mp4" {
		t.Errorf("Expected merge output path, got %v", upd.OutputPath)
	}
	if upd.Stage == nil || *upd.Stage != "merging" {
		t.Errorf("Expected merging stage, got %v", upd.Stage)
	}
}

func TestParseExtractAudio(t *testing.T) {
	upd, ok := Parse("[ExtractAudio] Destination: /tmp/job1/audio.mp3")
	if !ok {
		t.Fatal("Expected line to match")
	}
	if upd.OutputPath == nil || *upd.OutputPath != "/tmp/job1/audio.mp3" {
		t.Errorf("Expected audio output path, got %v", upd.OutputPath)
	}
}

func TestParseIgnoresNoise(t *testing.T) {
	lines := []string{
		"",
		"[youtube] dQw4w9WgXcQ: Downloading webpage",
		"WARNING: unable to fetch something",
		"[info] Writing video metadata",
		"random garbage without tokens",
	}
	for _, line := range lines {
		if _, ok := Parse(line); ok {
			t.Errorf("Expected line %q to be ignored", line)
		}
	}
}

func TestParseApproximateSize(t *testing.T) {
	upd, ok := Parse("[download]   0.5% of ~ 1.20GiB at  512.00KiB/s ETA 41:12")
	if !ok {
		t.Fatal("Expected line to match")
	}
	if upd.TotalSize == nil || *upd.TotalSize != "1.20GiB" {
		t.Errorf("Expected total size 1.20GiB, got %v", upd.TotalSize)
	}
}
