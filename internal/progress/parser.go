// Package progress converts raw yt-dlp output lines into structured job
// updates. The tool's output is not a stable protocol, so parsing is a
// best-effort scan: unrecognized lines are ignored, and each recognized
// token updates only its own field.
package progress

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dmarceau/streamgate/internal/domain"
)

var (
	percentRe      = regexp.MustCompile(`\[download\]\s+(\d+(?:\.\d+)?)%`)
	totalSizeRe    = regexp.MustCompile(`of\s+~?\s*([\d.]+\s?[KMGT]?i?B)`)
	etaRe          = regexp.MustCompile(`ETA\s+([\d:]+)`)
	destinationRe  = regexp.MustCompile(`\[download\]\s+Destination:\s+(.+)$`)
	mergeRe        = regexp.MustCompile(`\[Merger\]\s+Merging formats into\s+"(.+)"`)
	extractAudioRe = regexp.MustCompile(`\[ExtractAudio\]\s+Destination:\s+(.+)$`)
)

// Parse extracts a partial job update from a single output line. The second
// return value is false when the line carried nothing recognizable.
//
// Percentages are capped just below 100 while the process is still running;
// 100 is reserved for the streaming phase. Merge and audio-extraction
// announcements supersede the previously observed destination path.
func Parse(line string) (domain.Update, bool) {
	var upd domain.Update
	matched := false

	if m := percentRe.FindStringSubmatch(line); m != nil {
		if pct, err := strconv.ParseFloat(m[1], 64); err == nil {
			if pct >= 100 {
				pct = 99
			}
			upd.Progress = &pct
			upd.Status = domain.StatusPtr(domain.JobStatusDownloading)
			upd.Stage = domain.StringPtr("downloading")
			matched = true
		}
	}

	if m := totalSizeRe.FindStringSubmatch(line); m != nil {
		size := strings.TrimSpace(m[1])
		upd.TotalSize = &size
		matched = true
	}

	if m := etaRe.FindStringSubmatch(line); m != nil {
		upd.ETA = &m[1]
		matched = true
	}

	if m := destinationRe.FindStringSubmatch(line); m != nil {
		path := strings.TrimSpace(m[1])
		upd.OutputPath = &path
		matched = true
	} else if m := mergeRe.FindStringSubmatch(line); m != nil {
		path := strings.TrimSpace(m[1])
		upd.OutputPath = &path
		upd.Stage = domain.StringPtr("merging")
		matched = true
	} else if m := extractAudioRe.FindStringSubmatch(line); m != nil {
		path := strings.TrimSpace(m[1])
		upd.OutputPath = &path
		upd.Stage = domain.StringPtr("extracting audio")
		matched = true
	}

	return upd, matched
}
