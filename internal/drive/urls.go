package drive

import "net/url"

const (
	thumbnailEndpoint = "https://drive.google.com/thumbnail"
	downloadEndpoint  = "https://drive.google.com/uc"

	displaySize   = "w2048"
	thumbnailSize = "w300"
)

// DisplayURL is the large rendition of a link-readable file.
func DisplayURL(fileID string) string {
	return thumbnailURL(fileID, displaySize)
}

// ThumbnailURL is the small rendition of a link-readable file.
func ThumbnailURL(fileID string) string {
	return thumbnailURL(fileID, thumbnailSize)
}

// DownloadURL returns the original bytes of a link-readable file.
func DownloadURL(fileID string) string {
	return downloadEndpoint + "?export=download&id=" + url.QueryEscape(fileID)
}

func thumbnailURL(fileID, size string) string {
	return thumbnailEndpoint + "?id=" + url.QueryEscape(fileID) + "&sz=" + size
}
