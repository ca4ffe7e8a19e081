package run

import "io"

// ProgressReader wraps an io.Reader to report transfer progress via a
// ProgressFunc. Total should be the known total size, or 0 if unknown.
// Used by the providers' file-transfer paths.
type ProgressReader struct {
	io.Reader

	Total   int64
	Current int64
	Fn      ProgressFunc
}

// Read reads from the underlying reader and reports progress.
func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.Reader.Read(p)
	if n > 0 {
		pr.Current += int64(n)
		if pr.Fn != nil {
			pr.Fn(pr.Current, pr.Total)
		}
	}

	return n, err
}
