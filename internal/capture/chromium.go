package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"fitcal/internal/dateutil"
	appLog "fitcal/internal/log"
)

// Default viewport of the month snapshot. The /calendar page is laid out
// for a landscape tablet.
const (
	DefaultWidth   = 1280
	DefaultHeight  = 800
	DefaultTimeout = 30 * time.Second
)

// readySelector is set by the /calendar page once it has rendered.
const readySelector = `[data-ready="true"]`

// Options configures a month snapshot.
type Options struct {
	// BaseURL of the running server, e.g. "http://127.0.0.1:8080".
	BaseURL string

	// OutputPath is where the PNG is written, e.g. "<data_dir>/preview.png".
	OutputPath string

	// Username / Password are sent as HTTP Basic credentials when set.
	Username string
	Password string

	Width   int
	Height  int
	Timeout time.Duration
}

func (o *Options) normalize() error {
	if o.BaseURL == "" {
		return errors.New("capture: BaseURL is required")
	}
	if o.OutputPath == "" {
		return errors.New("capture: OutputPath is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return nil
}

// PageURL is the /calendar URL for the month containing day.
func PageURL(baseURL string, day dateutil.Instant) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("capture: base URL: %w", err)
	}
	u = u.JoinPath("calendar")
	q := u.Query()
	q.Set("date", strconv.FormatInt(int64(day), 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// MonthSnapshot renders the month containing day in headless Chromium and
// writes a PNG screenshot to opts.OutputPath. The file is replaced
// atomically so /preview.png never serves a partial image.
func MonthSnapshot(parentCtx context.Context, opts Options, day dateutil.Instant) error {
	if err := opts.normalize(); err != nil {
		return err
	}
	pageURL, err := PageURL(opts.BaseURL, day)
	if err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
	}
	if opts.Username != "" {
		tasks = append(tasks,
			network.Enable(),
			network.SetExtraHTTPHeaders(network.Headers{"Authorization": basicAuth(opts.Username, opts.Password)}),
		)
	}
	tasks = append(tasks,
		chromedp.Navigate(pageURL),
		chromedp.WaitVisible(readySelector, chromedp.ByQuery),
		chromedp.FullScreenshot(&png, 100),
	)

	start := time.Now()
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := writeFileAtomic(opts.OutputPath, png); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}

	appLog.Info("month snapshot captured",
		"path", opts.OutputPath,
		"bytes", len(png),
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)
	return nil
}

func basicAuth(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".preview-*.png")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
