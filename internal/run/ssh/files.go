package ssh

import (
	"context"
	"fmt"
	"io"
	"os"
	pathpkg "path"
	"path/filepath"
	"strings"

	"github.com/glacio/deploy/internal/run"
	"github.com/pkg/sftp"
)

// Upload copies a local file/dir to the remote path using SFTP.
func (e *Environment) Upload(ctx context.Context, localPath, remotePath string, opts ...run.FileOption) error {
	cfg := run.DefaultFileConfig()
	for _, o := range opts {
		o(&cfg)
	}

	client, err := e.newSFTPClient()
	if err != nil {
		return err
	}

	defer func() { _ = client.Close() }()

	info, err := os.Stat(localPath)
	if err != nil {
		return err
	}

	if info.IsDir() {
		if !cfg.Recursive {
			return fmt.Errorf("%q is a directory and recursive transfer is disabled", localPath)
		}

		return uploadDir(ctx, client, localPath, remotePath, cfg)
	}

	mode := info.Mode()
	if cfg.Permissions != 0 {
		mode = cfg.Permissions
	}

	return uploadFile(ctx, client, localPath, remotePath, mode, cfg.Progress)
}

// Download copies a remote file/dir to the local path using SFTP.
func (e *Environment) Download(ctx context.Context, remotePath, localPath string, opts ...run.FileOption) error {
	cfg := run.DefaultFileConfig()
	for _, o := range opts {
		o(&cfg)
	}

	client, err := e.newSFTPClient()
	if err != nil {
		return err
	}

	defer func() { _ = client.Close() }()

	info, err := client.Stat(remotePath)
	if err != nil {
		return err
	}

	if info.IsDir() {
		if !cfg.Recursive {
			return fmt.Errorf("%q is a directory and recursive transfer is disabled", remotePath)
		}

		return downloadDir(ctx, client, remotePath, localPath, cfg.Progress)
	}

	return downloadFile(ctx, client, remotePath, localPath, info.Mode(), cfg.Progress)
}

func (e *Environment) newSFTPClient() (*sftp.Client, error) {
	e.mu.Lock()

	if e.closed {
		e.mu.Unlock()

		return nil, run.ErrEnvironmentClosed
	}

	client := e.client
	e.mu.Unlock()

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		return nil, fmt.Errorf("failed to create sftp client: %w", err)
	}

	return sftpClient, nil
}

func uploadDir(ctx context.Context, client *sftp.Client, localBase, remoteBase string, cfg run.FileConfig) error {
	return filepath.Walk(localBase, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(localBase, path)
		if err != nil {
			return err
		}

		// Remote paths are always forward-slashed
		remotePath := strings.ReplaceAll(pathpkg.Join(remoteBase, relPath), "\\", "/")

		if info.IsDir() {
			if err := client.MkdirAll(remotePath); err != nil {
				return err
			}

			if cfg.Permissions != 0 {
				_ = client.Chmod(remotePath, cfg.Permissions)
			}

			return nil
		}

		mode := info.Mode()
		if cfg.Permissions != 0 {
			mode = cfg.Permissions
		}

		return uploadFile(ctx, client, path, remotePath, mode, cfg.Progress)
	})
}

func uploadFile(ctx context.Context, client *sftp.Client, localPath, remotePath string, mode os.FileMode, progress run.ProgressFunc) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	src, err := os.Open(localPath)
	if err != nil {
		return err
	}

	defer func() { _ = src.Close() }()

	var size int64
	if info, err := src.Stat(); err == nil {
		size = info.Size()
	}

	if err := client.MkdirAll(pathpkg.Dir(remotePath)); err != nil {
		return err
	}

	dst, err := client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("failed to create remote file %q: %w", remotePath, err)
	}

	defer func() { _ = dst.Close() }()

	// sftp.Create does not guarantee mode, especially with umask; chmod explicitly.
	if err := client.Chmod(remotePath, mode); err != nil {
		return fmt.Errorf("failed to chmod remote file: %w", err)
	}

	var reader io.Reader = src
	if progress != nil {
		reader = &run.ProgressReader{Reader: src, Total: size, Fn: progress}
	}

	_, err = io.Copy(dst, reader)

	return err
}

func downloadDir(ctx context.Context, client *sftp.Client, remoteBase, localBase string, progress run.ProgressFunc) error {
	walker := client.Walk(remoteBase)
	for walker.Step() {
		if err := walker.Err(); err != nil {
			return err
		}

		path := walker.Path()

		relPath, err := filepath.Rel(remoteBase, path)
		if err != nil {
			continue
		}

		localPath := filepath.Join(localBase, relPath)
		info := walker.Stat()

		if info.IsDir() {
			if err := os.MkdirAll(localPath, info.Mode()); err != nil {
				return err
			}

			continue
		}

		if err := downloadFile(ctx, client, path, localPath, info.Mode(), progress); err != nil {
			return err
		}
	}

	return nil
}

func downloadFile(ctx context.Context, client *sftp.Client, remotePath, localPath string, mode os.FileMode, progress run.ProgressFunc) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	src, err := client.Open(remotePath)
	if err != nil {
		return err
	}

	defer func() { _ = src.Close() }()

	var size int64
	if info, err := src.Stat(); err == nil {
		size = info.Size()
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}

	dst, err := os.Create(localPath)
	if err != nil {
		return err
	}

	defer func() { _ = dst.Close() }()

	if err := os.Chmod(localPath, mode); err != nil {
		return fmt.Errorf("failed to chmod local file: %w", err)
	}

	var reader io.Reader = src
	if progress != nil {
		reader = &run.ProgressReader{Reader: src, Total: size, Fn: progress}
	}

	_, err = io.Copy(dst, reader)

	return err
}
