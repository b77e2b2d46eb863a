// Package drive lists and downloads files from a user's Google Drive folder
// using a delegated OAuth token supplied with each request. The token is
// opaque to this service; it is never stored.
package drive

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/oauth2"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// FolderMIMEType marks folder entries in a Drive listing. The dispatcher
// skips these.
const FolderMIMEType = "application/vnd.google-apps.folder"

// File is one entry of a folder listing.
type File struct {
	ID       string
	Name     string
	MIMEType string
}

// Client is the remote document API consumed by the ingestion dispatcher.
type Client interface {
	ListFolder(ctx context.Context, folderID, token string) ([]File, error)
	Download(ctx context.Context, fileID, token string) ([]byte, error)
}

// GoogleClient implements Client against the Drive v3 API.
type GoogleClient struct {
	opts []option.ClientOption
}

// NewGoogleClient creates a Drive client. Extra options are only used by
// tests to point at a fake endpoint.
func NewGoogleClient(opts ...option.ClientOption) *GoogleClient {
	return &GoogleClient{opts: opts}
}

// service builds a Drive service bound to the caller's delegated token.
// Services are cheap to construct; one per call keeps tokens from leaking
// across users.
func (c *GoogleClient) service(ctx context.Context, token string) (*gdrive.Service, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, c.opts...)
	svc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("build drive service: %w", err)
	}
	return svc, nil
}

func (c *GoogleClient) ListFolder(ctx context.Context, folderID, token string) ([]File, error) {
	svc, err := c.service(ctx, token)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("'%s' in parents and trashed = false", folderID)

	var files []File
	pageToken := ""
	for {
		call := svc.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, mimeType)").
			PageSize(100).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list folder %s: %w", folderID, err)
		}

		for _, f := range page.Files {
			files = append(files, File{ID: f.Id, Name: f.Name, MIMEType: f.MimeType})
		}

		if page.NextPageToken == "" {
			return files, nil
		}
		pageToken = page.NextPageToken
	}
}

func (c *GoogleClient) Download(ctx context.Context, fileID, token string) ([]byte, error) {
	svc, err := c.service(ctx, token)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", fileID, err)
	}
	return content, nil
}

// Compile-time check that GoogleClient implements Client.
var _ Client = (*GoogleClient)(nil)
