package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultBinary = "yt-dlp"

// YTDLPEngine shells out to the yt-dlp CLI.
type YTDLPEngine struct {
	binary      string
	cookiesFile string
}

func NewYTDLPEngine(binary, cookiesFile string) *YTDLPEngine {
	if binary == "" {
		binary = defaultBinary
	}
	// Surface a missing binary early; the server still starts so
	// probe/submit return engine errors instead of crashing.
	if _, err := exec.LookPath(binary); err != nil {
		log.Printf("Warning: %s not found in PATH", binary)
	}
	return &YTDLPEngine{
		binary:      binary,
		cookiesFile: cookiesFile,
	}
}

// Probe fetches metadata without downloading.
func (e *YTDLPEngine) Probe(ctx context.Context, url string) (*MediaInfo, error) {
	args := []string{"--dump-json", "--skip-download", "--no-warnings", "--quiet"}
	args = append(args, e.cookieArgs()...)
	args = append(args, url)

	cmd := exec.CommandContext(ctx, e.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("probe failed: %s", firstLine(stderr.String(), err))
	}

	var info struct {
		Title     string  `json:"title"`
		Thumbnail string  `json:"thumbnail"`
		Duration  float64 `json:"duration"`
		Uploader  string  `json:"uploader"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, fmt.Errorf("failed to parse probe output: %w", err)
	}

	return &MediaInfo{
		Title:     info.Title,
		Thumbnail: info.Thumbnail,
		Duration:  int(info.Duration),
		Uploader:  info.Uploader,
	}, nil
}

// Fetch downloads and transcodes the media, reporting progress per
// output line. The terminal result is the located artifact.
func (e *YTDLPEngine) Fetch(ctx context.Context, req FetchRequest, progress ProgressFunc) (*FetchResult, error) {
	args := buildFetchArgs(req)
	args = append(args, e.cookieArgs()...)
	args = append(args, req.SourceURL)

	cmd := exec.CommandContext(ctx, e.binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", e.binary, err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if pct, ok := parseProgressLine(scanner.Text()); ok && progress != nil {
			progress(pct)
		}
	}

	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("download failed: %s", firstLine(stderr.String(), err))
	}

	path, err := locateOutput(req.OutputDir, req.Tag)
	if err != nil {
		return nil, err
	}

	return &FetchResult{
		OutputPath: path,
		Filename:   filepath.Base(path),
	}, nil
}

func (e *YTDLPEngine) cookieArgs() []string {
	if e.cookiesFile == "" {
		return nil
	}
	fi, err := os.Stat(e.cookiesFile)
	if err != nil || fi.Size() == 0 {
		return nil
	}
	return []string{"--cookies", e.cookiesFile}
}

// buildFetchArgs assembles the CLI arguments for a fetch, using the
// same format selectors the service has always used: mp4 with an
// optional height cap for video, bestaudio extracted to mp3 for
// audio.
func buildFetchArgs(req FetchRequest) []string {
	args := []string{"--newline", "--no-warnings", "--no-playlist"}

	if req.MaxFileBytes > 0 {
		args = append(args, "--max-filesize", strconv.FormatInt(req.MaxFileBytes, 10))
	}

	outtmpl := filepath.Join(req.OutputDir, "%(title)s ["+req.Tag+"].%(ext)s")
	args = append(args, "-o", outtmpl)

	if req.Format.IsAudio() {
		args = append(args,
			"-f", "bestaudio/best",
			"-x", "--audio-format", "mp3", "--audio-quality", "192K",
		)
		return args
	}

	selector := "bestvideo[ext=mp4]+bestaudio[ext=m4a]/bestvideo+bestaudio/best"
	if h := req.Format.Height(); h > 0 {
		selector = fmt.Sprintf(
			"bestvideo[height<=%d][ext=mp4]+bestaudio[ext=m4a]/bestvideo[height<=%d]+bestaudio/best[height<=%d]/best",
			h, h, h,
		)
	}
	args = append(args, "-f", selector, "--merge-output-format", "mp4")
	return args
}

// parseProgressLine extracts the percentage from yt-dlp download
// lines, e.g. "[download]  45.2% of 10.5MiB at 1.2MiB/s".
func parseProgressLine(line string) (int, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "[download]") {
		return 0, false
	}
	fields := strings.Fields(line)
	for _, f := range fields[1:] {
		if !strings.HasSuffix(f, "%") {
			continue
		}
		pct, err := strconv.ParseFloat(strings.TrimSuffix(f, "%"), 64)
		if err != nil {
			return 0, false
		}
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		return int(pct), true
	}
	return 0, false
}

// locateOutput finds the artifact carrying the job tag. The tag makes
// the lookup unambiguous even when titles collide. Glob is avoided on
// purpose: the bracketed tag would be parsed as a character class.
func locateOutput(dir, tag string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to scan output dir: %w", err)
	}
	marker := "[" + tag + "]"
	// Postprocessing can leave intermediate files behind briefly;
	// prefer the newest regular file.
	var newest string
	var newestMod int64
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.Contains(name, marker) {
			continue
		}
		if strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".ytdl") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		if mod := fi.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest, newestMod = filepath.Join(dir, name), mod
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no output file found for tag %s", tag)
	}
	return newest, nil
}

func firstLine(stderr string, fallback error) string {
	for _, line := range strings.Split(strings.TrimSpace(stderr), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	if fallback != nil {
		return fallback.Error()
	}
	return "unknown error"
}

var _ Engine = (*YTDLPEngine)(nil)
