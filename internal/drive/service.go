package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	defaultPageSize = 100
	folderMimeType  = "application/vnd.google-apps.folder"
)

// ErrFolderNotFound is returned when a path segment has no matching folder.
var ErrFolderNotFound = errors.New("folder not found")

// Service wraps the Drive v3 API calls the gallery needs.
type Service struct {
	srv *drive.Service
}

// NewService builds a Drive client on top of an authorised HTTP client.
func NewService(ctx context.Context, client *http.Client, opts ...option.ClientOption) (*Service, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)

	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Drive client: %w", err)
	}

	return &Service{srv: srv}, nil
}

// File is the subset of Drive file metadata the gallery consumes.
type File struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MimeType    string `json:"mimeType"`
	CreatedTime string `json:"createdTime,omitempty"`
}

// Created parses CreatedTime; ok is false when absent or malformed.
func (f File) Created() (time.Time, bool) {
	if f.CreatedTime == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, f.CreatedTime)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// ListImages lists non-trashed image files directly under folderID, newest upload first.
func (s *Service) ListImages(ctx context.Context, folderID string, pageSize int) ([]File, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	result, err := s.srv.Files.List().
		Q(imageQuery(folderID)).
		PageSize(int64(pageSize)).
		OrderBy("createdTime desc").
		Fields("files(id, name, mimeType, createdTime)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve files: %w", err)
	}

	files := make([]File, 0, len(result.Files))
	for _, f := range result.Files {
		files = append(files, File{
			ID:          f.Id,
			Name:        f.Name,
			MimeType:    f.MimeType,
			CreatedTime: f.CreatedTime,
		})
	}

	return files, nil
}

// GrantLinkRead makes the file readable by anyone holding its link.
// Drive accepts the same permission repeatedly, so it is safe on every aggregation.
func (s *Service) GrantLinkRead(ctx context.Context, fileID string) error {
	_, err := s.srv.Permissions.Create(fileID, &drive.Permission{
		Role: "reader",
		Type: "anyone",
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("grant link access on %s: %w", fileID, err)
	}
	return nil
}

func imageQuery(folderID string) string {
	return fmt.Sprintf("'%s' in parents and mimeType contains 'image/' and trashed = false", escapeQuery(folderID))
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// escapeQuery quotes a value for use inside a single-quoted Drive query string.
func escapeQuery(v string) string {
	return queryEscaper.Replace(v)
}

// DownloadFile streams the file content into w.
func (s *Service) DownloadFile(ctx context.Context, fileID string, w io.Writer) error {
	resp, err := s.srv.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("unable to download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("unable to read file %s: %w", fileID, err)
	}
	return nil
}

// FindFolderByPath resolves a slash separated folder path, starting at the Drive root,
// to a folder ID.
func (s *Service) FindFolderByPath(ctx context.Context, path string) (string, error) {
	currentID := "root"

	for _, folder := range strings.Split(path, "/") {
		if folder == "" {
			continue
		}

		result, err := s.srv.Files.List().
			Q(fmt.Sprintf("'%s' in parents and name = '%s' and mimeType = '%s' and trashed = false",
				escapeQuery(currentID), escapeQuery(folder), folderMimeType)).
			Fields("files(id, name)").
			Context(ctx).
			Do()
		if err != nil {
			return "", fmt.Errorf("error finding folder %s: %w", folder, err)
		}

		if len(result.Files) == 0 {
			return "", fmt.Errorf("%w: %s", ErrFolderNotFound, folder)
		}

		currentID = result.Files[0].Id
	}

	return currentID, nil
}
