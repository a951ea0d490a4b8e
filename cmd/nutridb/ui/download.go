package ui

import (
	"os"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// DownloadProgress renders a byte-denominated progress bar for the
// dataset download.
type DownloadProgress struct {
	progress *mpb.Progress
	bar      *mpb.Bar
}

// NewDownloadProgress creates a download bar. Total may be <= 0 when
// the server does not report a content length; it can grow via Update.
func NewDownloadProgress(name string, total int64) *DownloadProgress {
	if total < 0 {
		total = 0
	}

	progress := mpb.New(mpb.WithWidth(64), mpb.WithOutput(os.Stderr))
	bar := progress.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DSyncSpaceR}),
			decor.CountersKibiByte("% .2f / % .2f"),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
			decor.AverageSpeed(decor.SizeB1024(0), "% .2f", decor.WC{W: 12}),
		),
	)

	return &DownloadProgress{progress: progress, bar: bar}
}

// Update sets the current byte count, growing the total when the
// server reported one.
func (d *DownloadProgress) Update(downloaded, total int64) {
	if total > 0 {
		d.bar.SetTotal(total, false)
	}
	d.bar.SetCurrent(downloaded)
}

// Finish completes the bar at the given byte count and waits for the
// final render.
func (d *DownloadProgress) Finish(downloaded int64) {
	d.bar.SetTotal(downloaded, true)
	d.progress.Wait()
}
