package utils

import (
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// CertificateTemplateDir is where admins drop the monthly certificate PDF
// templates, overridable for tests and deployments.
func CertificateTemplateDir() string {
	if dir := os.Getenv("CERTIFICATE_TEMPLATE_DIR"); dir != "" {
		return dir
	}
	return filepath.Join("uploads", "certificate-templates")
}

// EnsureUploadDirs creates the uploads tree if it doesn't exist.
func EnsureUploadDirs() error {
	if err := os.MkdirAll("uploads", os.ModePerm); err != nil {
		return err
	}
	return os.MkdirAll(CertificateTemplateDir(), os.ModePerm)
}

// SaveFile saves an uploaded file to the given destination path.
func SaveFile(fileHeader *multipart.FileHeader, destPath string) error {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, file)
	return err
}
