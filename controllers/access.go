package controllers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"tagframe/middlewares"
	"tagframe/models"
	"tagframe/store"
)

type access int

const (
	canRead access = iota
	canEdit
	ownerOnly
)

// authorize Check the caller's role in the project. Missing projects give
// store.ErrNotFound, non-members errNotMember.
func authorize(factory store.ShareDaoFactory, c *gin.Context, projectID uint, need access) error {
	ctx := c.Request.Context()
	_, email := middlewares.CurrentUser(c)
	role, err := factory.Members().Role(ctx, projectID, email)
	if errors.Is(err, store.ErrNotFound) {
		if _, err := factory.Graph().Project(ctx, projectID); err != nil {
			return err
		}
		return errNotMember
	}
	if err != nil {
		return err
	}

	switch need {
	case canEdit:
		if !models.CanEdit(role) {
			return errReadOnly
		}
	case ownerOnly:
		if role != models.RoleOwner {
			return errOwnerOnly
		}
	}
	return nil
}

// requireProject Parse :id as a project id and check access to it
func requireProject(factory store.ShareDaoFactory, c *gin.Context, need access) (uint, bool) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return 0, false
	}
	if err := authorize(factory, c, projectID, need); err != nil {
		abortWithError(c, err)
		return 0, false
	}
	return projectID, true
}

// requireImage Parse :id as an image id and check access to its project
func requireImage(factory store.ShareDaoFactory, c *gin.Context, need access) (*models.Image, bool) {
	imageID, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}
	image, err := factory.Images().Get(c.Request.Context(), imageID)
	if err != nil {
		abortWithError(c, err)
		return nil, false
	}
	if err := authorize(factory, c, image.ProjectID, need); err != nil {
		abortWithError(c, err)
		return nil, false
	}
	return image, true
}
