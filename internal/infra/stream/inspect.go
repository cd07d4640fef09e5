package stream

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/faiface/beep/mp3"
	"github.com/go-audio/wav"
)

// newSourceInspector returns an inspector for local paths (resolved against root)
// and http(s) URLs.
func newSourceInspector(root string, client *http.Client) Inspector {
	return func(ctx context.Context, src string) (float64, error) {
		if isRemote(src) {
			return inspectRemote(ctx, client, src)
		}
		return inspectLocal(ctx, root, src)
	}
}

func isRemote(src string) bool {
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// LocalPath maps a source path such as "/audio/1.mp3" onto the filesystem root.
func LocalPath(root, src string) string {
	clean := filepath.FromSlash(strings.TrimPrefix(filepath.ToSlash(filepath.Clean("/"+src)), "/"))
	if root == "" {
		return clean
	}
	return filepath.Join(root, clean)
}

func inspectLocal(ctx context.Context, root, src string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	path := LocalPath(root, src)
	info, err := os.Stat(path)
	if err != nil {
		return 0, errors.Wrapf(err, "local source %s", src)
	}
	if info.IsDir() {
		return 0, errors.Newf("local source %s is a directory", src)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return mp3Duration(path)
	case ".wav":
		return wavDuration(path)
	default:
		// Playable but the length is only known from metadata.
		return 0, nil
	}
}

func mp3Duration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "failed to open mp3")
	}
	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return 0, errors.Wrap(err, "failed to decode mp3")
	}
	defer streamer.Close()

	return format.SampleRate.D(streamer.Len()).Seconds(), nil
}

func wavDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "failed to open wav")
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, errors.Newf("invalid wav file: %s", path)
	}
	d, err := dec.Duration()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read wav duration")
	}
	return d.Seconds(), nil
}

// inspectRemote checks that a remote source answers. Servers that refuse HEAD
// are asked for the first byte instead.
func inspectRemote(ctx context.Context, client *http.Client, src string) (float64, error) {
	status, err := sendRequest(ctx, client, http.MethodHead, src)
	if err != nil {
		return 0, err
	}
	if status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented {
		status, err = sendRequest(ctx, client, http.MethodGet, src)
		if err != nil {
			return 0, err
		}
	}
	if status < 200 || status >= 300 {
		return 0, errors.Newf("remote source %s returned status %d", src, status)
	}
	return 0, nil
}

func sendRequest(ctx context.Context, client *http.Client, method, src string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, src, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create request")
	}
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))

	return resp.StatusCode, nil
}
