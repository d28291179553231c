package controllers

import (
	"lifeline/models"
	"lifeline/services"
	"lifeline/utils"

	"github.com/gin-gonic/gin"
)

type CategoryController struct {
	catalog services.CategoryCatalog
}

func NewCategoryController(catalog services.CategoryCatalog) *CategoryController {
	return &CategoryController{
		catalog: catalog,
	}
}

// GetCategories lists the emergency categories in display order
// @Summary List emergency categories
// @Tags Categories
// @Produce json
// @Success 200 {object} models.APIResponse{data=[]models.EmergencyCategory}
// @Router /categories [get]
func (cc *CategoryController) GetCategories(c *gin.Context) {
	utils.SuccessResponse(c, "Categories retrieved", cc.catalog.List())
}

// GetCategory returns one category with its first-aid steps and actions
// @Summary Get emergency category
// @Tags Categories
// @Produce json
// @Param categoryId path string true "Category ID"
// @Success 200 {object} models.APIResponse{data=models.EmergencyCategory}
// @Failure 404 {object} models.APIResponse
// @Router /categories/{categoryId} [get]
func (cc *CategoryController) GetCategory(c *gin.Context) {
	id := c.Param("categoryId")
	category, ok := cc.catalog.Get(models.CategoryID(id))
	if !ok {
		utils.ServiceErrorResponse(c, utils.NewCategoryNotFoundError(id))
		return
	}
	utils.SuccessResponse(c, "Category retrieved", category)
}
