// Package ytdlp spawns the external yt-dlp binary and exposes its output as
// a line stream. It knows nothing about jobs; callers interpret the lines.
package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/dmarceau/streamgate/internal/constants"
)

// Invoker wraps one yt-dlp installation.
type Invoker struct {
	BinPath     string
	FFmpegPath  string
	CookiesFile string
}

func New(binPath, ffmpegPath, cookiesFile string) *Invoker {
	if binPath == "" {
		binPath = constants.DefaultYTDLPPath
	}
	return &Invoker{
		BinPath:     binPath,
		FFmpegPath:  ffmpegPath,
		CookiesFile: cookiesFile,
	}
}

// Options describes one download invocation.
type Options struct {
	URL            string
	FormatSelector string
	OutputTemplate string
	LimitRate      string
	AudioOnly      bool
}

// RunError reports a non-zero exit together with the tail of stderr, which
// is where yt-dlp explains itself.
type RunError struct {
	Err    error
	Stderr string
}

func (e *RunError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %s", e.Err, lastLine(msg))
}

func (e *RunError) Unwrap() error { return e.Err }

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// BuildArgs constructs the yt-dlp argument list for the given options.
// --newline forces one progress report per line so the caller can scan them.
func (inv *Invoker) BuildArgs(opts Options) []string {
	args := []string{
		"--newline",
		"--no-playlist",
		"--no-warnings",
	}

	if opts.AudioOnly {
		selector := opts.FormatSelector
		if selector == "" {
			selector = constants.FormatBestAudio
		}
		args = append(args, "-f", selector, "--extract-audio", "--audio-format", "mp3")
	} else {
		selector := opts.FormatSelector
		if selector == "" {
			selector = constants.FormatBestMP4
		}
		args = append(args, "-f", selector, "--merge-output-format", "mp4")
	}

	if opts.OutputTemplate != "" {
		args = append(args, "-o", opts.OutputTemplate)
	}
	if inv.FFmpegPath != "" && inv.FFmpegPath != constants.DefaultFFmpegPath {
		args = append(args, "--ffmpeg-location", inv.FFmpegPath)
	}
	if inv.CookiesFile != "" {
		args = append(args, "--cookies", inv.CookiesFile)
	}
	if opts.LimitRate != "" {
		args = append(args, "--limit-rate", opts.LimitRate)
	}

	args = append(args, opts.URL)
	return args
}

// Run spawns yt-dlp and feeds each stdout line to onLine as it arrives.
// It blocks until the process exits; a non-zero exit is returned as a
// *RunError carrying the stderr tail. No retries.
func (inv *Invoker) Run(ctx context.Context, opts Options, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, inv.BinPath, inv.BuildArgs(opts)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", inv.BinPath, err)
	}

	var wg sync.WaitGroup
	var stderrTail bytes.Buffer

	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if onLine != nil {
				onLine(scanner.Text())
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			line := scanner.Text()
			if stderrTail.Len() > constants.StderrTailBytes {
				stderrTail.Reset()
			}
			stderrTail.WriteString(line)
			stderrTail.WriteByte('\n')
		}
	}()

	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return &RunError{Err: err, Stderr: stderrTail.String()}
	}
	return nil
}

// Metadata is the subset of yt-dlp's --dump-json output the service needs.
type Metadata struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Uploader string   `json:"uploader"`
	Ext      string   `json:"ext"`
	Duration float64  `json:"duration"`
	Formats  []Format `json:"formats"`
}

// Format describes one downloadable variant of the source media.
type Format struct {
	FormatID   string `json:"format_id"`
	Ext        string `json:"ext"`
	Resolution string `json:"resolution"`
	Note       string `json:"format_note,omitempty"`
}

// Probe fetches metadata for a URL without downloading anything. Also serves
// as the pre-queue check that the URL is accessible at all.
func (inv *Invoker) Probe(ctx context.Context, url string) (*Metadata, error) {
	cmd := exec.CommandContext(ctx, inv.BinPath,
		"--dump-json",
		"--no-playlist",
		"--no-warnings",
		url,
	)

	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, &RunError{Err: err, Stderr: string(exitErr.Stderr)}
		}
		return nil, fmt.Errorf("failed to execute %s: %w", inv.BinPath, err)
	}

	return ParseMetadata(output)
}

// ParseMetadata decodes a --dump-json document.
func ParseMetadata(data []byte) (*Metadata, error) {
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata JSON: %w", err)
	}
	return &meta, nil
}
