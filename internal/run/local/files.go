package local

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/glacio/deploy/internal/run"
)

// Upload copies a local file/dir to the destination path (also local).
// For the local provider, "remote" is just another local path.
func (e *Environment) Upload(ctx context.Context, localPath, remotePath string, opts ...run.FileOption) error {
	if e.isClosed() {
		return errors.New("cannot transfer files: environment is closed")
	}

	cfg := run.DefaultFileConfig()
	for _, o := range opts {
		o(&cfg)
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return err
	}

	if info.IsDir() {
		if !cfg.Recursive {
			return errors.New("recursive directory transfer is disabled by configuration")
		}

		return copyDir(ctx, localPath, remotePath, cfg)
	}

	mode := info.Mode()
	if cfg.Permissions != 0 {
		mode = cfg.Permissions
	}

	return copyFile(ctx, localPath, remotePath, mode, cfg.Progress)
}

// Download copies a remote file/dir to the destination path (also local).
// Symmetric to Upload for the local provider.
func (e *Environment) Download(ctx context.Context, remotePath, localPath string, opts ...run.FileOption) error {
	return e.Upload(ctx, remotePath, localPath, opts...)
}

func copyDir(ctx context.Context, src, dst string, cfg run.FileConfig) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		targetPath := filepath.Join(dst, relPath)

		if info.IsDir() {
			return os.MkdirAll(targetPath, info.Mode())
		}

		mode := info.Mode()
		if cfg.Permissions != 0 {
			mode = cfg.Permissions
		}

		return copyFile(ctx, path, targetPath, mode, cfg.Progress)
	})
}

func copyFile(ctx context.Context, src, dst string, mode os.FileMode, progress run.ProgressFunc) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}

	defer func() { _ = sourceFile.Close() }()

	var size int64
	if info, err := sourceFile.Stat(); err == nil {
		size = info.Size()
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	destFile, err := os.OpenFile(dst, os.O_RDWR|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	defer func() { _ = destFile.Close() }()

	var reader io.Reader = sourceFile
	if progress != nil {
		reader = &run.ProgressReader{Reader: sourceFile, Total: size, Fn: progress}
	}

	_, err = io.Copy(destFile, reader)

	return err
}
