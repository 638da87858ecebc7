package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"tagframe/models"
	"tagframe/store"
)

type LabelInput struct {
	Name  string `json:"name" binding:"required"`
	Color string `json:"color" binding:"required"`
	// ProjectID attaches the new label to that project.
	ProjectID *uint `json:"project_id"`
}

type UpdateLabelInput struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

// FindLabels List every label, optionally filtered by name
func FindLabels(factory store.ShareDaoFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		labels, err := factory.Labels().List(c.Request.Context(), store.WithNameLike(c.Query("name")))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": labels})
	}
}

// CreateLabel Create a label. Attaching it to a project needs edit rights there.
func CreateLabel(factory store.ShareDaoFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input LabelInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		if input.ProjectID != nil {
			if err := authorize(factory, c, *input.ProjectID, canEdit); err != nil {
				abortWithError(c, err)
				return
			}
		}
		label, err := factory.Labels().Create(c.Request.Context(), &models.Label{Name: input.Name, Color: input.Color}, input.ProjectID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": label})
	}
}

// requireLabelEdit Load :id as a label and check edit rights in every
// project using it
func requireLabelEdit(factory store.ShareDaoFactory, c *gin.Context) (*models.Label, bool) {
	labelID, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}
	label, err := factory.Labels().Get(c.Request.Context(), labelID)
	if err != nil {
		abortWithError(c, err)
		return nil, false
	}
	for _, projectID := range label.Projects {
		if err := authorize(factory, c, projectID, canEdit); err != nil {
			abortWithError(c, err)
			return nil, false
		}
	}
	return label, true
}

// UpdateLabel Rename or recolor a label
func UpdateLabel(factory store.ShareDaoFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		label, ok := requireLabelEdit(factory, c)
		if !ok {
			return
		}
		var input UpdateLabelInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		updates := map[string]interface{}{}
		if input.Name != nil {
			updates["name"] = *input.Name
		}
		if input.Color != nil {
			updates["color"] = *input.Color
		}
		if len(updates) == 0 {
			badRequest(c, fmt.Errorf("nothing to update"))
			return
		}
		updated, err := factory.Labels().Update(c.Request.Context(), label.ID, updates)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": updated})
	}
}

// DeleteLabel Delete a label everywhere
func DeleteLabel(factory store.ShareDaoFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		label, ok := requireLabelEdit(factory, c)
		if !ok {
			return
		}
		if err := factory.Labels().Delete(c.Request.Context(), label.ID); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": true})
	}
}

// FindProjectLabels List a project's labels in order
func FindProjectLabels(factory store.ShareDaoFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := requireProject(factory, c, canRead)
		if !ok {
			return
		}
		labels, err := factory.Labels().ProjectLabels(c.Request.Context(), projectID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": labels})
	}
}

// AttachLabel Append an existing label to the project's label list
func AttachLabel(factory store.ShareDaoFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := requireProject(factory, c, canEdit)
		if !ok {
			return
		}
		labelID, ok := parseID(c, "labelId")
		if !ok {
			return
		}
		if err := factory.Labels().Attach(c.Request.Context(), projectID, labelID); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": true})
	}
}

// DetachLabel Remove a label from the project and from its annotations
func DetachLabel(factory store.ShareDaoFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := requireProject(factory, c, canEdit)
		if !ok {
			return
		}
		labelID, ok := parseID(c, "labelId")
		if !ok {
			return
		}
		if err := factory.Labels().Detach(c.Request.Context(), projectID, labelID); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": true})
	}
}

// LabelStats Count annotations per project label
func LabelStats(factory store.ShareDaoFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := requireProject(factory, c, canRead)
		if !ok {
			return
		}
		usage, err := factory.Labels().Usage(c.Request.Context(), projectID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": usage})
	}
}
