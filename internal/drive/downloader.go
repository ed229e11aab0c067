package drive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// DownloadOptions controls how gallery images are pulled from Google Drive.
type DownloadOptions struct {
	FolderID    string
	DownloadDir string
	PageSize    int
	// Overwrite re-downloads files that already exist locally.
	Overwrite bool
}

// Downloader copies the images of a folder to local disk.
type Downloader struct {
	service *Service
}

// NewDownloader creates a new Downloader.
func NewDownloader(s *Service) *Downloader {
	return &Downloader{service: s}
}

// DownloadImages downloads every image listed in the folder into DownloadDir and returns
// the local paths, in listing order. Files already present are kept unless Overwrite is set.
func (d *Downloader) DownloadImages(ctx context.Context, opts DownloadOptions) ([]string, error) {
	if opts.FolderID == "" {
		return nil, fmt.Errorf("folder id is required")
	}
	if opts.DownloadDir == "" {
		return nil, fmt.Errorf("download dir is required")
	}
	if err := os.MkdirAll(opts.DownloadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	files, err := d.service.ListImages(ctx, opts.FolderID, opts.PageSize)
	if err != nil {
		return nil, err
	}

	used := make(map[string]struct{}, len(files))
	localPaths := make([]string, 0, len(files))
	for _, f := range files {
		select {
		case <-ctx.Done():
			return localPaths, ctx.Err()
		default:
		}

		localPath := filepath.Join(opts.DownloadDir, localName(f, used))

		if !opts.Overwrite {
			if _, err := os.Stat(localPath); err == nil {
				log.Debug().Str("path", localPath).Msg("drive: already downloaded")
				localPaths = append(localPaths, localPath)
				continue
			}
		}

		if err := d.downloadTo(ctx, f.ID, localPath); err != nil {
			return localPaths, fmt.Errorf("failed to download %s: %w", f.Name, err)
		}
		log.Info().Str("file_id", f.ID).Str("path", localPath).Msg("drive: downloaded image")
		localPaths = append(localPaths, localPath)
	}

	return localPaths, nil
}

// downloadTo writes through a temp file and renames it into place.
func (d *Downloader) downloadTo(ctx context.Context, fileID, localPath string) error {
	tmp, err := os.CreateTemp(filepath.Dir(localPath), ".download-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := d.service.DownloadFile(ctx, fileID, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), localPath)
}

// localName is the file's base name, prefixed with its ID when the name is empty or
// already taken by an earlier file in the same listing.
func localName(f File, used map[string]struct{}) string {
	name := filepath.Base(strings.TrimSpace(f.Name))
	if name == "" || name == "." || name == ".." || name == "/" {
		name = f.ID
	}
	if _, taken := used[name]; taken {
		name = f.ID + "_" + name
	}
	used[name] = struct{}{}
	return name
}
