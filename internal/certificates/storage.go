package certificates

import (
	"bytes"
	"context"
	"fmt"

	"trainhub/admin-portal/admin-portal-backend/pkg/storage"
)

// StorageProvider maps certificate assets onto object storage keys. Keys are
// derived from the certificate number so re-renders overwrite in place and
// the public URLs stay stable.
type StorageProvider struct {
	store storage.ObjectStore
}

func NewStorageProvider(store storage.ObjectStore) *StorageProvider {
	return &StorageProvider{store: store}
}

func (p *StorageProvider) pdfKey(number string) string {
	return fmt.Sprintf("certificates/%s/certificate.pdf", number)
}

func (p *StorageProvider) qrKey(number string) string {
	return fmt.Sprintf("certificates/%s/qr.png", number)
}

// UploadPDF stores rendered certificate bytes and returns the public URL.
func (p *StorageProvider) UploadPDF(ctx context.Context, number string, pdf []byte) (string, error) {
	url, err := p.store.Upload(ctx, p.pdfKey(number), "application/pdf", bytes.NewReader(pdf))
	if err != nil {
		return "", &StorageError{Stage: "upload-pdf", Err: err}
	}
	return url, nil
}

// UploadQR stores the verification QR image and returns the public URL.
func (p *StorageProvider) UploadQR(ctx context.Context, number string, png []byte) (string, error) {
	url, err := p.store.Upload(ctx, p.qrKey(number), "image/png", bytes.NewReader(png))
	if err != nil {
		return "", &StorageError{Stage: "upload-qr", Err: err}
	}
	return url, nil
}

// DownloadPDF fetches a previously rendered certificate for pass-through
// serving.
func (p *StorageProvider) DownloadPDF(ctx context.Context, number string) ([]byte, error) {
	data, err := p.store.Download(ctx, p.pdfKey(number))
	if err != nil {
		return nil, &StorageError{Stage: "download-pdf", Err: err}
	}
	return data, nil
}
