package inspection

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxPhotoBytes caps a single attached photo.
const DefaultMaxPhotoBytes = 10 << 20

// PhotoEncoder converts an attached photo into an embeddable attachment.
type PhotoEncoder interface {
	Encode(ctx context.Context, photo Photo) (Attachment, error)
}

// DataURLEncoder embeds photos as base64 data URLs.
type DataURLEncoder struct{}

func NewDataURLEncoder() *DataURLEncoder {
	return &DataURLEncoder{}
}

func (e *DataURLEncoder) Encode(ctx context.Context, photo Photo) (Attachment, error) {
	if err := ctx.Err(); err != nil {
		return Attachment{}, err
	}
	if len(photo.Data) == 0 {
		return Attachment{}, fmt.Errorf("%s: photo is empty", photo.Filename)
	}
	contentType := photo.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(photo.Data).String()
	}
	if !strings.HasPrefix(contentType, "image/") {
		return Attachment{}, fmt.Errorf("%s: unsupported content type %s", photo.Filename, contentType)
	}
	return Attachment{
		Filename:    photo.Filename,
		ContentType: contentType,
		URL:         "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(photo.Data),
	}, nil
}

// ValidatePhoto checks an uploaded file and returns it as a Photo. The content
// type is sniffed from the bytes rather than trusted from the client.
func ValidatePhoto(filename string, data []byte, maxBytes int) (Photo, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPhotoBytes
	}
	if len(data) == 0 {
		return Photo{}, validationErr("photos", fmt.Sprintf("%s is empty", filename))
	}
	if len(data) > maxBytes {
		return Photo{}, validationErr("photos", fmt.Sprintf("%s is too large (max %dMB)", filename, maxBytes>>20))
	}
	mt := mimetype.Detect(data)
	contentType, _, _ := strings.Cut(mt.String(), ";")
	if !strings.HasPrefix(contentType, "image/") {
		return Photo{}, validationErr("photos", fmt.Sprintf("%s is not an image", filename))
	}
	return Photo{
		Filename:    filename,
		ContentType: contentType,
		Size:        len(data),
		Data:        data,
	}, nil
}
