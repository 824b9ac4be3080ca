package pipeline

import (
	"context"
	"io"
)

// FileState enum: remote asset lifecycle
type FileState string

const (
	StateUploading  FileState = "UPLOADING"
	StateProcessing FileState = "PROCESSING"
	StateActive     FileState = "ACTIVE"
	StateFailed     FileState = "FAILED"
)

// RemoteFile is the provider-side copy of an uploaded video.
// Owned by exactly one pipeline invocation; never shared.
type RemoteFile struct {
	URI   string
	Name  string
	State FileState
}

// Provider port (interface untuk remote AI provider).
// Empat operasi saja; implementasi apa pun yang memenuhi kontrak ini bisa
// dipakai; ini juga seam untuk testing.
type Provider interface {
	Upload(ctx context.Context, r io.Reader, mimeType, displayName string) (*RemoteFile, error)
	GetState(ctx context.Context, name string) (FileState, error)
	GenerateText(ctx context.Context, fileURI, mimeType, instruction string) (string, error)
	Delete(ctx context.Context, name string) error
}
