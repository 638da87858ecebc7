package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"tagframe/models"
	"tagframe/store"
)

type SaveAnnotationsInput struct {
	Annotations []models.Annotation `json:"annotations" binding:"required"`
}

type AnnotationLabelInput struct {
	LabelID *uint `json:"label_id"`
}

// FindAnnotations List an image's annotations with their labels
func FindAnnotations(factory store.ShareDaoFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		image, ok := requireImage(factory, c, canRead)
		if !ok {
			return
		}
		annotations, err := factory.Annotations().ListForImage(c.Request.Context(), image.ID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": annotations})
	}
}

// SaveAnnotations Create or update a batch of annotations in order and
// return the image's full list
func SaveAnnotations(factory store.ShareDaoFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		image, ok := requireImage(factory, c, canEdit)
		if !ok {
			return
		}
		var input SaveAnnotationsInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}

		for i := range input.Annotations {
			a := &input.Annotations[i]
			shape, err := a.Shape()
			if err != nil {
				abortWithError(c, fmt.Errorf("annotation %d: %w", i, err))
				return
			}
			// Stored in canonical form: rectangles normalized, polygons flat.
			if err := a.SetShape(shape); err != nil {
				abortWithError(c, err)
				return
			}
		}

		saved, err := factory.Annotations().Save(c.Request.Context(), image.ID, input.Annotations)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": saved})
	}
}

// requireAnnotation Parse :id as an annotation and check access to its project
func requireAnnotation(factory store.ShareDaoFactory, c *gin.Context, need access) (uint, uint, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return 0, 0, false
	}
	projectID, err := factory.Annotations().ProjectID(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return 0, 0, false
	}
	if err := authorize(factory, c, projectID, need); err != nil {
		abortWithError(c, err)
		return 0, 0, false
	}
	return id, projectID, true
}

// UpdateAnnotationLabel Assign a project label to an annotation, or clear it
func UpdateAnnotationLabel(factory store.ShareDaoFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, projectID, ok := requireAnnotation(factory, c, canEdit)
		if !ok {
			return
		}
		var input AnnotationLabelInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		if input.LabelID != nil {
			labels, err := factory.Labels().ProjectLabels(c.Request.Context(), projectID)
			if err != nil {
				abortWithError(c, err)
				return
			}
			if !containsLabel(labels, *input.LabelID) {
				abortWithError(c, fmt.Errorf("%w: label %d is not used by this project", store.ErrInvalidInput, *input.LabelID))
				return
			}
		}
		annotation, err := factory.Annotations().UpdateLabel(c.Request.Context(), id, input.LabelID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": annotation})
	}
}

func containsLabel(labels []models.Label, id uint) bool {
	for _, l := range labels {
		if l.ID == id {
			return true
		}
	}
	return false
}

// DeleteAnnotation Delete one annotation
func DeleteAnnotation(factory store.ShareDaoFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _, ok := requireAnnotation(factory, c, canEdit)
		if !ok {
			return
		}
		if err := factory.Annotations().Delete(c.Request.Context(), id); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": true})
	}
}
