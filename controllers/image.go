package controllers

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"tagframe/models"
	"tagframe/store"
	"tagframe/uploads"
	"tagframe/utils"
)

// uploadField is the multipart field holding the image files.
const uploadField = "files"

// FindImages List a project's images in order, paged with ?limit= and ?offset=
func FindImages(factory store.ShareDaoFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := requireProject(factory, c, canRead)
		if !ok {
			return
		}
		opts, ok := pageOptions(c)
		if !ok {
			return
		}
		images, err := factory.Images().List(c.Request.Context(), projectID, opts...)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": images})
	}
}

// UploadImages Store the uploaded files and append them to the project
func UploadImages(factory store.ShareDaoFactory, files *uploads.Store, config *utils.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := requireProject(factory, c, canEdit)
		if !ok {
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, config.Storage.MaxUploadMB<<20)
		form, err := c.MultipartForm()
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("upload exceeds %d MB", config.Storage.MaxUploadMB)})
				return
			}
			badRequest(c, err)
			return
		}
		headers := form.File[uploadField]
		if len(headers) == 0 {
			badRequest(c, fmt.Errorf("no files in field %q", uploadField))
			return
		}

		created, err := saveUploads(c.Request.Context(), factory, files, projectID, headers)
		if err != nil {
			abortWithError(c, err)
			return
		}
		log.Info(fmt.Sprintf("Uploaded %d images to project %d", len(created), projectID))
		c.JSON(http.StatusCreated, gin.H{"data": created})
	}
}

// saveUploads Store each file and create its image row. When any file
// fails, the images already created by this call are removed again.
func saveUploads(ctx context.Context, factory store.ShareDaoFactory, files *uploads.Store, projectID uint, headers []*multipart.FileHeader) ([]models.Image, error) {
	created := make([]models.Image, 0, len(headers))
	for _, header := range headers {
		image, err := saveUpload(ctx, factory, files, projectID, header)
		if err != nil {
			for _, done := range created {
				if _, delErr := factory.Images().Delete(ctx, done.ID); delErr != nil {
					log.Warn(fmt.Sprintf("Failed to remove image %d after upload error: %v", done.ID, delErr))
					continue
				}
				files.Remove(done.Path, deref(done.LqipPath))
			}
			return nil, fmt.Errorf("%s: %w", header.Filename, err)
		}
		created = append(created, *image)
	}
	return created, nil
}

func saveUpload(ctx context.Context, factory store.ShareDaoFactory, files *uploads.Store, projectID uint, header *multipart.FileHeader) (*models.Image, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	saved, err := files.Save(header.Filename, f)
	f.Close()
	if err != nil {
		return nil, err
	}
	image, err := factory.Images().Create(ctx, &models.Image{
		ProjectID: projectID,
		FileName:  header.Filename,
		Path:      saved.Path,
		LqipPath:  saved.LqipPath,
		Width:     saved.Width,
		Height:    saved.Height,
	})
	if err != nil {
		files.Remove(saved.Path, deref(saved.LqipPath))
		return nil, err
	}
	return image, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// FindImage Get an image
func FindImage(factory store.ShareDaoFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		image, ok := requireImage(factory, c, canRead)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": image})
	}
}

// ImageFile Serve the stored image, or its placeholder with ?lqip=true
func ImageFile(factory store.ShareDaoFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		image, ok := requireImage(factory, c, canRead)
		if !ok {
			return
		}
		path := image.Path
		if c.Query("lqip") == "true" {
			if image.LqipPath == nil {
				abortWithError(c, fmt.Errorf("%w: image %d has no placeholder", store.ErrNotFound, image.ID))
				return
			}
			path = *image.LqipPath
		}
		c.File(path)
	}
}

// DeleteImage Delete an image, its annotations and its files
func DeleteImage(factory store.ShareDaoFactory, files *uploads.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		image, ok := requireImage(factory, c, canEdit)
		if !ok {
			return
		}
		deleted, err := factory.Images().Delete(c.Request.Context(), image.ID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		files.Remove(deleted.Path, deref(deleted.LqipPath))
		c.JSON(http.StatusOK, gin.H{"data": true})
	}
}

type ReorderInput struct {
	ImageIDs []uint `json:"image_ids" binding:"required"`
}

// ReorderImages Rewrite the order of a project's image list
func ReorderImages(factory store.ShareDaoFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := requireProject(factory, c, canEdit)
		if !ok {
			return
		}
		var input ReorderInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		if err := factory.Images().Reorder(c.Request.Context(), projectID, input.ImageIDs); err != nil {
			abortWithError(c, err)
			return
		}
		images, err := factory.Images().List(c.Request.Context(), projectID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": images})
	}
}
