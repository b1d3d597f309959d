package server

import (
	"io"

	"decider/internal/models"
	"decider/internal/service"

	"github.com/gofiber/fiber/v2"
)

// PictureUploadResponse is the API response after uploading a picture. Poll
// items reference it by uid.
type PictureUploadResponse struct {
	UID        string `json:"uid"`
	URL        string `json:"url"`
	PreviewURL string `json:"preview_url"`
}

// UploadPicture handles POST /api/pictures
func (s *Server) UploadPicture(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return models.RespondWithError(c, models.NewRequiredParamsError("image"), "")
	}

	src, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, models.NewAppError(models.KindBadImage, "Unable to read uploaded file"), "")
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return models.RespondWithError(c, models.NewAppError(models.KindBadImage, "Unable to read uploaded file"), "")
	}

	pic, err := s.pictureService.Upload(c.UserContext(), service.UploadPictureInput{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		return s.respondError(c, err, "Failed to upload picture")
	}

	return models.RespondCreated(c, "Picture uploaded", PictureUploadResponse{
		UID:        pic.UID,
		URL:        pic.URL,
		PreviewURL: pic.PreviewURL,
	})
}
