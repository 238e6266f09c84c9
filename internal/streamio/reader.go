// Package streamio opens decoder input files, transparently decompressing
// gzip-compressed recordings and optionally reporting read progress.
package streamio

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/pgzip"
	"github.com/schollz/progressbar/v3"
)

// Open reads the full contents of path into memory, transparently
// decompressing it first if its name ends in ".gz". When showProgress is
// true, a progress bar is drawn to stderr while the file is read, whatever
// the file's size.
func Open(path string, showProgress bool) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	var src io.Reader = f
	if showProgress {
		bar := progressbar.DefaultBytes(stat.Size(), fmt.Sprintf("reading %s", path))
		defer bar.Close()
		src = io.TeeReader(f, bar)
	}

	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream %s: %w", path, err)
		}
		defer gz.Close()
		return io.ReadAll(gz)
	}

	return io.ReadAll(src)
}
