package gemini

import (
	"context"
	"fmt"
	"io"

	"google.golang.org/genai"

	"github.com/clinwell/checkin-api/internal/domain/pipeline"
)

const defaultModel = "gemini-2.5-flash"

// Client implements pipeline.Provider on top of the Gemini Files API.
type Client struct {
	client *genai.Client
	model  string
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{client: cli, model: model}, nil
}

func (c *Client) Upload(ctx context.Context, r io.Reader, mimeType, displayName string) (*pipeline.RemoteFile, error) {
	f, err := c.client.Files.Upload(ctx, r, &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: displayName,
	})
	if err != nil {
		return nil, fmt.Errorf("files.upload: %w", err)
	}
	return &pipeline.RemoteFile{URI: f.URI, Name: f.Name, State: mapState(f.State)}, nil
}

func (c *Client) GetState(ctx context.Context, name string) (pipeline.FileState, error) {
	f, err := c.client.Files.Get(ctx, name, nil)
	if err != nil {
		return "", fmt.Errorf("files.get %s: %w", name, err)
	}
	return mapState(f.State), nil
}

func (c *Client) GenerateText(ctx context.Context, fileURI, mimeType, instruction string) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromURI(fileURI, mimeType),
		genai.NewPartFromText(instruction),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}

func (c *Client) Delete(ctx context.Context, name string) error {
	if _, err := c.client.Files.Delete(ctx, name, nil); err != nil {
		return fmt.Errorf("files.delete %s: %w", name, err)
	}
	return nil
}

func mapState(s genai.FileState) pipeline.FileState {
	switch s {
	case genai.FileStateActive:
		return pipeline.StateActive
	case genai.FileStateFailed:
		return pipeline.StateFailed
	case genai.FileStateProcessing:
		return pipeline.StateProcessing
	default:
		return pipeline.StateUploading
	}
}
