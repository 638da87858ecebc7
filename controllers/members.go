package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tagframe/store"
)

type InviteInput struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required"`
}

type RoleInput struct {
	Role string `json:"role" binding:"required"`
}

// FindMembers List the members of a project
func FindMembers(factory store.ShareDaoFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := requireProject(factory, c, canRead)
		if !ok {
			return
		}
		members, err := factory.Members().List(c.Request.Context(), projectID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": members})
	}
}

// InviteMember Add an editor or visitor to the project
func InviteMember(factory store.ShareDaoFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := requireProject(factory, c, ownerOnly)
		if !ok {
			return
		}
		var input InviteInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		member, err := factory.Members().Invite(c.Request.Context(), projectID, input.Email, input.Role)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": member})
	}
}

// UpdateMember Change a member's role
func UpdateMember(factory store.ShareDaoFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := requireProject(factory, c, ownerOnly)
		if !ok {
			return
		}
		var input RoleInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		member, err := factory.Members().UpdateRole(c.Request.Context(), projectID, c.Param("email"), input.Role)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": member})
	}
}

// RemoveMember Remove a member from the project
func RemoveMember(factory store.ShareDaoFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := requireProject(factory, c, ownerOnly)
		if !ok {
			return
		}
		if err := factory.Members().Remove(c.Request.Context(), projectID, c.Param("email")); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": true})
	}
}
