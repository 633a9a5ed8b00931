package handler

import (
	"strings"
	"unicode/utf8"

	"pageguard/internal/scan"
	dErrors "pageguard/pkg/domain-errors"
)

const maxPopupTextChars = 500

// ImageScanRequest is the HTTP request body for POST /api/scan/image.
type ImageScanRequest struct {
	ThumbnailBase64 string        `json:"thumbnail_base64"`
	SrcURL          string        `json:"src_url"`
	PageURL         string        `json:"page_url"`
	MIME            string        `json:"mime"`
	Metadata        ImageMetadata `json:"metadata"`
}

type ImageMetadata struct {
	Width     int   `json:"width"`
	Height    int   `json:"height"`
	Timestamp int64 `json:"timestamp"`
}

func (r *ImageScanRequest) Validate() error {
	if strings.TrimSpace(r.ThumbnailBase64) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "thumbnail_base64 is required")
	}
	if strings.TrimSpace(r.PageURL) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "page_url is required")
	}
	if r.Metadata.Width < 0 || r.Metadata.Height < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "metadata dimensions must be non-negative")
	}
	return nil
}

func (r *ImageScanRequest) payload() scan.ImagePayload {
	return scan.ImagePayload{
		ThumbnailBase64: r.ThumbnailBase64,
		SrcURL:          r.SrcURL,
		PageURL:         r.PageURL,
		MIME:            r.MIME,
		Metadata: scan.ImageMetadata{
			Width:     r.Metadata.Width,
			Height:    r.Metadata.Height,
			Timestamp: r.Metadata.Timestamp,
		},
	}
}

// PopupScanRequest is the HTTP request body for POST /api/scan/popup.
type PopupScanRequest struct {
	PageURL     string   `json:"page_url"`
	RawText     string   `json:"raw_text"`
	FieldLabels []string `json:"field_labels"`
}

func (r *PopupScanRequest) Validate() error {
	if strings.TrimSpace(r.PageURL) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "page_url is required")
	}
	if strings.TrimSpace(r.RawText) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "raw_text is required")
	}
	if utf8.RuneCountInString(r.RawText) > maxPopupTextChars {
		return dErrors.New(dErrors.CodeInvalidInput, "raw_text must be at most 500 characters")
	}
	return nil
}

func (r *PopupScanRequest) payload() scan.PopupPayload {
	return scan.PopupPayload{
		PageURL:     r.PageURL,
		RawText:     r.RawText,
		FieldLabels: r.FieldLabels,
	}
}
