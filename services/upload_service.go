package services

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// UploadService pushes profile photos to the image CDN. Canvas items
// never go through here; only the profile photo is uploaded.
type UploadService struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewUploadService reads CLOUDINARY_URL from the environment. folder
// is the CDN folder uploads land in; empty means the account root.
func NewUploadService(folder string) (*UploadService, error) {
	cld, err := cloudinary.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}
	return &UploadService{cld: cld, folder: folder}, nil
}

// UploadProfilePhoto uploads the file and returns its public HTTPS URL.
func (s *UploadService) UploadProfilePhoto(ctx context.Context, file io.Reader, username string) (string, error) {
	resp, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:   s.folder,
		PublicID: "profile_" + username,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload profile photo for %s: %w", username, err)
	}

	log.Printf("UploadService: uploaded profile photo for %s", username)
	return resp.SecureURL, nil
}
