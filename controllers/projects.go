package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"tagframe/middlewares"
	"tagframe/models"
	"tagframe/store"
	"tagframe/uploads"
)

type ProjectInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateProjectInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// FindProjects List the projects the caller is a member of, newest first,
// paged with ?limit= and ?offset=
func FindProjects(factory store.ShareDaoFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		opts, ok := pageOptions(c)
		if !ok {
			return
		}
		_, email := middlewares.CurrentUser(c)
		projects, err := factory.Projects().ListForMember(c.Request.Context(), email, opts...)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": projects})
	}
}

// CreateProject Create a project owned by the caller
func CreateProject(factory store.ShareDaoFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input ProjectInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		userID, email := middlewares.CurrentUser(c)
		project := &models.Project{Name: input.Name, Description: input.Description, OwnerID: userID}
		project, err := factory.Projects().Create(c.Request.Context(), project, email)
		if err != nil {
			abortWithError(c, err)
			return
		}
		log.Info(fmt.Sprintf("User %d created project %d", userID, project.ID))
		c.JSON(http.StatusCreated, gin.H{"data": project})
	}
}

// FindProject Get a project with its members and ordered labels
func FindProject(factory store.ShareDaoFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := requireProject(factory, c, canRead)
		if !ok {
			return
		}
		project, err := factory.Projects().Get(c.Request.Context(), projectID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": project})
	}
}

// UpdateProject Edit name and description
func UpdateProject(factory store.ShareDaoFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := requireProject(factory, c, ownerOnly)
		if !ok {
			return
		}
		var input UpdateProjectInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		updates := map[string]interface{}{}
		if input.Name != nil {
			updates["name"] = *input.Name
		}
		if input.Description != nil {
			updates["description"] = *input.Description
		}
		if len(updates) == 0 {
			badRequest(c, fmt.Errorf("nothing to update"))
			return
		}
		project, err := factory.Projects().Update(c.Request.Context(), projectID, updates)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": project})
	}
}

// DeleteProject Delete a project with everything in it, files included
func DeleteProject(factory store.ShareDaoFactory, files *uploads.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := requireProject(factory, c, ownerOnly)
		if !ok {
			return
		}
		paths, err := factory.Projects().Delete(c.Request.Context(), projectID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		files.Remove(paths...)
		log.Info(fmt.Sprintf("Deleted project %d and %d files", projectID, len(paths)))
		c.JSON(http.StatusOK, gin.H{"data": true})
	}
}
